package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/somashare-api/internal/models"
)

// EnrollmentRepository manages unit enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create enrolls a user and fills the generated id.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO user_enrollments (user_id, unit_id, academic_year, status) VALUES ($1, $2, $3, $4) RETURNING id, enrolled_at`
	if err := r.db.QueryRowxContext(ctx, query, enrollment.UserID, enrollment.UnitID, enrollment.AcademicYear, enrollment.Status).
		Scan(&enrollment.ID, &enrollment.EnrolledAt); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, unit_id, academic_year, status, enrolled_at FROM user_enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByUser returns a user's enrollments with unit info, newest first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID int64, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	query := `SELECT e.id, e.user_id, e.unit_id, e.academic_year, e.status, e.enrolled_at, u.code AS unit_code, u.name AS unit_name
FROM user_enrollments e
JOIN units u ON u.id = e.unit_id
WHERE e.user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += " AND e.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY e.enrolled_at DESC, e.id DESC"

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateStatus changes the status of an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE user_enrollments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return expectRow(res)
}

// IsEnrolled reports whether the user has an enrollment for the unit in the academic year.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, userID, unitID int64, academicYear string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_enrollments WHERE user_id = $1 AND unit_id = $2 AND academic_year = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, unitID, academicYear); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}
