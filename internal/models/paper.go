package models

import (
	"strings"
	"time"
)

// PaperType enumerates the kinds of past papers.
type PaperType string

const (
	PaperTypeFinalExam  PaperType = "Final Exam"
	PaperTypeMidterm    PaperType = "Midterm"
	PaperTypeCAT1       PaperType = "CAT 1"
	PaperTypeCAT2       PaperType = "CAT 2"
	PaperTypeAssignment PaperType = "Assignment"
)

// PaperTypes lists every paper type in display order.
var PaperTypes = []PaperType{PaperTypeFinalExam, PaperTypeMidterm, PaperTypeCAT1, PaperTypeCAT2, PaperTypeAssignment}

// ParsePaperType matches a display name case-insensitively and falls back to Final Exam.
func ParsePaperType(raw string) PaperType {
	for _, t := range PaperTypes {
		if strings.EqualFold(strings.TrimSpace(raw), string(t)) {
			return t
		}
	}
	return PaperTypeFinalExam
}

// Valid reports whether t is one of PaperTypes.
func (t PaperType) Valid() bool {
	for _, known := range PaperTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PastPaper is an uploaded exam paper. UnitCode and UnitName are joined from units.
type PastPaper struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	UnitID        int64     `db:"unit_id" json:"unit_id"`
	UnitCode      string    `db:"unit_code" json:"unit_code"`
	UnitName      string    `db:"unit_name" json:"unit_name"`
	YearOfStudy   int       `db:"year_of_study" json:"year_of_study"`
	Semester      int       `db:"semester" json:"semester"`
	PaperYear     int       `db:"paper_year" json:"paper_year"`
	PaperType     PaperType `db:"paper_type" json:"paper_type"`
	FileKey       string    `db:"file_key" json:"-"`
	FileURL       string    `db:"file_url" json:"file_url,omitempty"`
	FileSize      int64     `db:"file_size" json:"file_size"`
	UploadedBy    *int64    `db:"uploaded_by" json:"uploaded_by,omitempty"`
	DownloadCount int       `db:"download_count" json:"download_count"`
	ViewCount     int       `db:"view_count" json:"view_count"`
	IsVerified    bool      `db:"is_verified" json:"is_verified"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	UploadDate    time.Time `db:"upload_date" json:"upload_date"`
}

// PaperFilter narrows paper listings. Zero values are ignored.
type PaperFilter struct {
	UnitID      int64     `form:"unit_id"`
	YearOfStudy int       `form:"year"`
	Semester    int       `form:"semester"`
	PaperType   PaperType `form:"type"`
	PaperYear   int       `form:"paper_year"`
	UploadedBy  int64     `form:"-"`
	Search      string    `form:"q"`
	ActiveOnly  bool      `form:"-"`
	Page        int       `form:"page"`
	PageSize    int       `form:"page_size"`
	SortBy      string    `form:"sort_by"`
	SortOrder   string    `form:"sort_order"`
}

// RatingSummary aggregates ratings for one paper.
type RatingSummary struct {
	PaperID int64   `db:"paper_id" json:"paper_id"`
	Average float64 `db:"average" json:"average"`
	Count   int     `db:"count" json:"count"`
}

// PaperWithRating is a paper joined with its rating aggregate.
type PaperWithRating struct {
	PastPaper
	Rating RatingSummary `json:"rating"`
}

// PaperRating is one user's rating of a paper.
type PaperRating struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PaperID      int64     `db:"paper_id" json:"paper_id"`
	Rating       int       `db:"rating" json:"rating"`
	ReviewText   string    `db:"review_text" json:"review_text,omitempty"`
	HelpfulCount int       `db:"helpful_count" json:"helpful_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RatePaperRequest upserts the caller's rating.
type RatePaperRequest struct {
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	ReviewText string `json:"review_text" validate:"max=2000"`
}

// UploadPaperRequest is the metadata accompanying an uploaded file.
type UploadPaperRequest struct {
	Name        string    `json:"name" form:"name" validate:"required,max=200"`
	UnitCode    string    `json:"unit_code" form:"unit_code" validate:"required,max=16"`
	UnitName    string    `json:"unit_name" form:"unit_name" validate:"required,max=200"`
	YearOfStudy int       `json:"year_of_study" form:"year_of_study" validate:"required,min=1,max=4"`
	Semester    int       `json:"semester" form:"semester" validate:"required,min=1,max=2"`
	PaperYear   int       `json:"paper_year" form:"paper_year" validate:"required,min=1900,max=9999"`
	PaperType   PaperType `json:"paper_type" form:"paper_type" validate:"required"`
	Department  string    `json:"department" form:"department"`
	FileName    string    `json:"file_name" form:"-" validate:"required"`
	ContentType string    `json:"content_type" form:"-"`
	FileSize    int64     `json:"file_size" form:"-"`
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	Paper       PastPaper `json:"paper"`
	UnitCreated bool      `json:"unit_created"`
}

// DownloadLink is the response of a download request.
type DownloadLink struct {
	PaperID int64  `json:"paper_id"`
	URL     string `json:"url"`
}
