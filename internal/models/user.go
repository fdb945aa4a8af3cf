package models

import "time"

// User is a student profile keyed locally by id and externally by the identity provider subject.
type User struct {
	ID              int64     `db:"id" json:"id"`
	ExternalID      string    `db:"external_id" json:"external_id"`
	Email           string    `db:"email" json:"email"`
	FullName        string    `db:"full_name" json:"full_name"`
	Course          string    `db:"course" json:"course"`
	YearOfStudy     int       `db:"year_of_study" json:"year_of_study"`
	SemesterOfStudy int       `db:"semester_of_study" json:"semester_of_study"`
	Department      string    `db:"department" json:"department"`
	PhotoURL        string    `db:"photo_url" json:"photo_url,omitempty"`
	PhotoKey        string    `db:"photo_key" json:"-"`
	UploadedCount   int       `db:"uploaded_count" json:"uploaded_count"`
	DownloadedCount int       `db:"downloaded_count" json:"downloaded_count"`
	IsVerified      bool      `db:"is_verified" json:"is_verified"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterUserRequest creates the profile for an authenticated subject.
type RegisterUserRequest struct {
	ExternalID string `json:"-" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	FullName   string `json:"full_name" validate:"required,min=2"`
	Course     string `json:"course"`
	Department string `json:"department"`
}

// UpdateProfileRequest is the onboarding and profile edit payload.
type UpdateProfileRequest struct {
	FullName        string `json:"full_name" validate:"required,min=2"`
	Course          string `json:"course" validate:"required"`
	YearOfStudy     int    `json:"year_of_study" validate:"required,min=1,max=4"`
	SemesterOfStudy int    `json:"semester_of_study" validate:"required,min=1,max=2"`
	Department      string `json:"department"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
