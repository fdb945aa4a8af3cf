package models

import "time"

// Unit is an academic course unit such as CSC201.
type Unit struct {
	ID          int64     `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Year        int       `db:"year" json:"year"`
	Semester    int       `db:"semester" json:"semester"`
	Department  string    `db:"department" json:"department"`
	Credits     int       `db:"credits" json:"credits"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UnitFilter narrows unit listings. Year and UpToYear are mutually exclusive.
type UnitFilter struct {
	Year       int    `form:"year"`
	Semester   int    `form:"semester"`
	UpToYear   int    `form:"up_to_year"`
	Department string `form:"department"`
	Search     string `form:"q"`
}

// CreateUnitRequest seeds a unit.
type CreateUnitRequest struct {
	Code        string `json:"code" validate:"required,max=16"`
	Name        string `json:"name" validate:"required"`
	Year        int    `json:"year" validate:"required,min=1,max=4"`
	Semester    int    `json:"semester" validate:"required,min=1,max=2"`
	Department  string `json:"department"`
	Credits     int    `json:"credits" validate:"omitempty,min=1,max=12"`
	Description string `json:"description"`
}

// UnitItem is a unit enriched with the caller's favorite flag.
type UnitItem struct {
	Unit
	IsFavorite bool `json:"is_favorite"`
}

// UnitView is a unit joined with its lecturers and the caller's favorite flag.
type UnitView struct {
	Unit       Unit               `json:"unit"`
	Lecturers  []AssignedLecturer `json:"lecturers"`
	IsFavorite bool               `json:"is_favorite"`
}

// Lecturer teaches one or more units.
type Lecturer struct {
	ID          int64  `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"full_name"`
	Email       string `db:"email" json:"email"`
	Department  string `db:"department" json:"department"`
	PhoneNumber string `db:"phone_number" json:"phone_number,omitempty"`
}

// AssignedLecturer is a lecturer as seen from one unit.
type AssignedLecturer struct {
	Lecturer
	IsPrimary    bool   `db:"is_primary" json:"is_primary"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
}

// CreateLecturerRequest registers a lecturer.
type CreateLecturerRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	Department  string `json:"department"`
	PhoneNumber string `json:"phone_number"`
}

// AssignLecturerRequest links a lecturer to a unit.
type AssignLecturerRequest struct {
	LecturerID   int64  `json:"lecturer_id" validate:"required"`
	IsPrimary    bool   `json:"is_primary"`
	AcademicYear string `json:"academic_year" validate:"required"`
}
