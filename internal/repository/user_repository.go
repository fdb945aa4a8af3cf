package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/somashare-api/internal/models"
)

const userColumns = `id, external_id, email, full_name, course, year_of_study, semester_of_study, department, photo_url, photo_key, uploaded_count, downloaded_count, is_verified, is_active, created_at, updated_at`

// UserRepository provides database access for student profiles.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByExternalID returns the user registered for an identity provider subject.
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, externalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by external id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user and fills the generated id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true

	const query = `INSERT INTO users (external_id, email, full_name, course, year_of_study, semester_of_study, department, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		user.ExternalID, user.Email, user.FullName, user.Course, user.YearOfStudy, user.SemesterOfStudy, user.Department, user.IsActive, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile updates the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET full_name = $2, course = $3, year_of_study = $4, semester_of_study = $5, department = $6, updated_at = $7 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, user.ID, user.FullName, user.Course, user.YearOfStudy, user.SemesterOfStudy, user.Department, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectRow(res)
}

// UpdatePhoto stores the profile photo reference.
func (r *UserRepository) UpdatePhoto(ctx context.Context, id int64, url, key string) error {
	const query = `UPDATE users SET photo_url = $2, photo_key = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, url, key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	return expectRow(res)
}

// IncrementUploaded bumps the uploaded papers counter.
func (r *UserRepository) IncrementUploaded(ctx context.Context, id int64) error {
	const query = `UPDATE users SET uploaded_count = uploaded_count + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment uploaded count: %w", err)
	}
	return expectRow(res)
}

// IncrementDownloaded bumps the downloaded papers counter.
func (r *UserRepository) IncrementDownloaded(ctx context.Context, id int64) error {
	const query = `UPDATE users SET downloaded_count = downloaded_count + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment downloaded count: %w", err)
	}
	return expectRow(res)
}

// MarkVerified sets the verified flag.
func (r *UserRepository) MarkVerified(ctx context.Context, id int64) error {
	const query = `UPDATE users SET is_verified = TRUE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	return expectRow(res)
}

// Deactivate performs a soft delete by marking the user inactive.
func (r *UserRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE users SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return expectRow(res)
}

// expectRow maps an update that touched nothing to sql.ErrNoRows.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
