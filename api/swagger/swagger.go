package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SomaShare API",
        "description": "Past exam paper sharing for university students",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Auth", "description": "Profile registration"},
        {"name": "Users", "description": "Caller profile, history and verification"},
        {"name": "Units", "description": "Course units and favorites"},
        {"name": "Papers", "description": "Past papers, ratings and downloads"},
        {"name": "Enrollments", "description": "Unit enrollments"},
        {"name": "Screens", "description": "Websocket screen sessions"},
        {"name": "System", "description": "Probes and metrics"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register the profile of the token subject",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterUserRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/User"}},
                    "409": {"description": "Already registered", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Get the caller's profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/User"}}}
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update the caller's profile",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProfileRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/User"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/me/photo": {
            "post": {
                "tags": ["Users"],
                "summary": "Upload a profile photo",
                "consumes": ["multipart/form-data"],
                "parameters": [{"in": "formData", "name": "photo", "type": "file", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/User"}},
                    "413": {"description": "Photo too large", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Remove the profile photo",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/me/history/{kind}": {
            "get": {
                "tags": ["Users"],
                "summary": "List viewed or downloaded papers",
                "parameters": [
                    {"in": "path", "name": "kind", "type": "string", "enum": ["views", "downloads"], "required": true},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/HistoryItem"}}}}
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Clear viewed or downloaded history",
                "parameters": [{"in": "path", "name": "kind", "type": "string", "enum": ["views", "downloads"], "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/me/history/{kind}/export": {
            "get": {
                "tags": ["Users"],
                "summary": "Export history as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "kind", "type": "string", "enum": ["views", "downloads"], "required": true},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/me/verification": {
            "post": {
                "tags": ["Users"],
                "summary": "Issue an email verification code",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/VerificationChallenge"}}}
            }
        },
        "/me/verification/confirm": {
            "post": {
                "tags": ["Users"],
                "summary": "Confirm an email verification code",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyCodeRequest"}}],
                "responses": {
                    "204": {"description": "Verified"},
                    "400": {"description": "Invalid or expired code", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/units": {
            "get": {
                "tags": ["Units"],
                "summary": "List units with the caller's favorite flag",
                "parameters": [
                    {"in": "query", "name": "q", "type": "string"},
                    {"in": "query", "name": "year", "type": "integer"},
                    {"in": "query", "name": "up_to_year", "type": "integer"},
                    {"in": "query", "name": "semester", "type": "integer"},
                    {"in": "query", "name": "department", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/UnitItem"}}}}
            },
            "post": {
                "tags": ["Units"],
                "summary": "Create a unit (moderator)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Unit"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Unit"}}}
            }
        },
        "/units/{id}": {
            "get": {
                "tags": ["Units"],
                "summary": "Get a unit with lecturers and favorite flag",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UnitView"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/units/{id}/papers": {
            "get": {
                "tags": ["Units"],
                "summary": "List papers of a unit",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/PaperWithRating"}}}}
            }
        },
        "/units/{id}/favorite": {
            "post": {
                "tags": ["Units"],
                "summary": "Mark a unit as favorite",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Units"],
                "summary": "Remove a unit from favorites",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/units/{id}/lecturers": {
            "post": {
                "tags": ["Units"],
                "summary": "Assign a lecturer to a unit (moderator)",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Assigned"}}
            }
        },
        "/lecturers": {
            "post": {
                "tags": ["Units"],
                "summary": "Create a lecturer (moderator)",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/favorites": {
            "get": {
                "tags": ["Units"],
                "summary": "List the caller's favorite units",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/UnitItem"}}}}
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List the caller's enrollments",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll in a unit",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Already enrolled", "schema": {"$ref": "#/definitions/APIError"}}}
            }
        },
        "/enrollments/{id}": {
            "patch": {
                "tags": ["Enrollments"],
                "summary": "Change an enrollment status",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/papers": {
            "get": {
                "tags": ["Papers"],
                "summary": "Search papers",
                "parameters": [
                    {"in": "query", "name": "q", "type": "string"},
                    {"in": "query", "name": "unit_id", "type": "integer"},
                    {"in": "query", "name": "year", "type": "integer"},
                    {"in": "query", "name": "semester", "type": "integer"},
                    {"in": "query", "name": "type", "type": "string"},
                    {"in": "query", "name": "paper_year", "type": "integer"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Papers"],
                "summary": "Upload a paper",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "file", "type": "file", "required": true},
                    {"in": "formData", "name": "name", "type": "string", "required": true},
                    {"in": "formData", "name": "unit_code", "type": "string", "required": true},
                    {"in": "formData", "name": "unit_name", "type": "string", "required": true},
                    {"in": "formData", "name": "year_of_study", "type": "integer", "required": true},
                    {"in": "formData", "name": "semester", "type": "integer", "required": true},
                    {"in": "formData", "name": "paper_year", "type": "integer", "required": true},
                    {"in": "formData", "name": "paper_type", "type": "string", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/PastPaper"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/papers/{id}": {
            "get": {
                "tags": ["Papers"],
                "summary": "Get a paper with its rating summary",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/PaperWithRating"}}}
            }
        },
        "/papers/{id}/views": {
            "post": {
                "tags": ["Papers"],
                "summary": "Record a paper view",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Recorded"}}
            }
        },
        "/papers/{id}/download": {
            "get": {
                "tags": ["Papers"],
                "summary": "Record a download and return a signed link",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/papers/{id}/rating": {
            "put": {
                "tags": ["Papers"],
                "summary": "Rate a paper",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RatePaperRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/PaperRating"}}}
            }
        },
        "/papers/{id}/verification": {
            "patch": {
                "tags": ["Papers"],
                "summary": "Set the verified flag (moderator)",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Updated"}}
            }
        },
        "/ratings/{id}/helpful": {
            "post": {
                "tags": ["Papers"],
                "summary": "Mark a rating as helpful",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Recorded"}}
            }
        },
        "/files/{token}": {
            "get": {
                "tags": ["Papers"],
                "summary": "Serve a file through a signed link",
                "security": [],
                "parameters": [{"in": "path", "name": "token", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired link"}}
            }
        },
        "/ws/screens/{screen}": {
            "get": {
                "tags": ["Screens"],
                "summary": "Open a websocket screen session",
                "parameters": [
                    {"in": "path", "name": "screen", "type": "string", "enum": ["home", "search", "unit_detail", "upload", "profile"], "required": true},
                    {"in": "query", "name": "unit_id", "type": "integer"},
                    {"in": "query", "name": "access_token", "type": "string"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}, "404": {"description": "Unknown screen"}}
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Runtime metrics snapshot",
                "security": [],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "RegisterUserRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "course": {"type": "string"},
                "department": {"type": "string"}
            }
        },
        "UpdateProfileRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "course": {"type": "string"},
                "year_of_study": {"type": "integer", "minimum": 1, "maximum": 4},
                "semester_of_study": {"type": "integer", "minimum": 1, "maximum": 2},
                "department": {"type": "string"}
            }
        },
        "User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "course": {"type": "string"},
                "year_of_study": {"type": "integer"},
                "semester_of_study": {"type": "integer"},
                "department": {"type": "string"},
                "photo_url": {"type": "string"},
                "uploaded_count": {"type": "integer"},
                "downloaded_count": {"type": "integer"},
                "is_verified": {"type": "boolean"},
                "is_active": {"type": "boolean"}
            }
        },
        "VerificationChallenge": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string", "format": "date-time"},
                "code": {"type": "string"}
            }
        },
        "VerifyCodeRequest": {
            "type": "object",
            "properties": {"code": {"type": "string"}}
        },
        "Unit": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "code": {"type": "string"},
                "name": {"type": "string"},
                "year": {"type": "integer"},
                "semester": {"type": "integer"},
                "department": {"type": "string"},
                "credits": {"type": "integer"},
                "description": {"type": "string"}
            }
        },
        "UnitItem": {
            "type": "object",
            "allOf": [
                {"$ref": "#/definitions/Unit"},
                {"type": "object", "properties": {"is_favorite": {"type": "boolean"}}}
            ]
        },
        "UnitView": {
            "type": "object",
            "properties": {
                "unit": {"$ref": "#/definitions/Unit"},
                "lecturers": {"type": "array", "items": {"type": "object"}},
                "is_favorite": {"type": "boolean"}
            }
        },
        "PastPaper": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "unit_id": {"type": "integer"},
                "unit_code": {"type": "string"},
                "unit_name": {"type": "string"},
                "year_of_study": {"type": "integer"},
                "semester": {"type": "integer"},
                "paper_year": {"type": "integer"},
                "paper_type": {"type": "string"},
                "file_url": {"type": "string"},
                "file_size": {"type": "integer"},
                "uploaded_by": {"type": "integer"},
                "download_count": {"type": "integer"},
                "view_count": {"type": "integer"},
                "is_verified": {"type": "boolean"},
                "is_active": {"type": "boolean"},
                "upload_date": {"type": "string", "format": "date-time"}
            }
        },
        "RatingSummary": {
            "type": "object",
            "properties": {
                "paper_id": {"type": "integer"},
                "average": {"type": "number"},
                "count": {"type": "integer"}
            }
        },
        "PaperWithRating": {
            "type": "object",
            "allOf": [
                {"$ref": "#/definitions/PastPaper"},
                {"type": "object", "properties": {"rating": {"$ref": "#/definitions/RatingSummary"}}}
            ]
        },
        "RatePaperRequest": {
            "type": "object",
            "properties": {
                "rating": {"type": "integer", "minimum": 1, "maximum": 5},
                "review_text": {"type": "string"}
            }
        },
        "PaperRating": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "paper_id": {"type": "integer"},
                "rating": {"type": "integer"},
                "review_text": {"type": "string"},
                "helpful_count": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "HistoryItem": {
            "type": "object",
            "properties": {
                "event_id": {"type": "integer"},
                "paper_id": {"type": "integer"},
                "paper_name": {"type": "string"},
                "unit_code": {"type": "string"},
                "paper_type": {"type": "string"},
                "paper_year": {"type": "integer"},
                "occurred_at": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
