package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/somashare-api/internal/models"
)

const unitColumns = `id, code, name, year, semester, department, credits, description, created_at`

// UnitRepository provides database access for academic units and their lecturers.
type UnitRepository struct {
	db *sqlx.DB
}

// NewUnitRepository creates a new instance of UnitRepository.
func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// List returns units matching filter ordered by year, semester then code.
func (r *UnitRepository) List(ctx context.Context, filter models.UnitFilter) ([]models.Unit, error) {
	var conditions []string
	var args []interface{}

	switch {
	case filter.Year > 0:
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	case filter.UpToYear > 0:
		conditions = append(conditions, fmt.Sprintf("year <= $%d", len(args)+1))
		args = append(args, filter.UpToYear)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := `SELECT ` + unitColumns + ` FROM units`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY year, semester, code, id"

	var units []models.Unit
	if err := r.db.SelectContext(ctx, &units, query, args...); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// FindByID returns a unit by identifier.
func (r *UnitRepository) FindByID(ctx context.Context, id int64) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1 LIMIT 1`
	var unit models.Unit
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find unit by id: %w", err)
	}
	return &unit, nil
}

// FindByCode returns a unit by its upper-cased code.
func (r *UnitRepository) FindByCode(ctx context.Context, code string) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE code = $1 LIMIT 1`
	var unit models.Unit
	if err := r.db.GetContext(ctx, &unit, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find unit by code: %w", err)
	}
	return &unit, nil
}

// Create inserts a unit and fills its generated id.
func (r *UnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	if unit.Credits <= 0 {
		unit.Credits = 3
	}
	unit.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO units (code, name, year, semester, department, credits, description, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		unit.Code, unit.Name, unit.Year, unit.Semester, unit.Department, unit.Credits, unit.Description, unit.CreatedAt,
	).Scan(&unit.ID); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

// DeleteIfUnused removes a unit that no paper, favorite or enrollment refers
// to. It reports whether a row was deleted. Lecturer assignments cascade.
func (r *UnitRepository) DeleteIfUnused(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM units WHERE id = $1
AND NOT EXISTS (SELECT 1 FROM past_papers WHERE unit_id = $1)
AND NOT EXISTS (SELECT 1 FROM user_favorites WHERE unit_id = $1)
AND NOT EXISTS (SELECT 1 FROM user_enrollments WHERE unit_id = $1)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete unit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListLecturers returns the lecturers assigned to a unit, primary first.
func (r *UnitRepository) ListLecturers(ctx context.Context, unitID int64) ([]models.AssignedLecturer, error) {
	const query = `SELECT l.id, l.full_name, l.email, l.department, l.phone_number, ul.is_primary, ul.academic_year
FROM unit_lecturers ul
JOIN lecturers l ON l.id = ul.lecturer_id
WHERE ul.unit_id = $1
ORDER BY ul.is_primary DESC, l.full_name, l.id`
	var lecturers []models.AssignedLecturer
	if err := r.db.SelectContext(ctx, &lecturers, query, unitID); err != nil {
		return nil, fmt.Errorf("list unit lecturers: %w", err)
	}
	return lecturers, nil
}

// CreateLecturer inserts a lecturer and fills its generated id.
func (r *UnitRepository) CreateLecturer(ctx context.Context, lecturer *models.Lecturer) error {
	const query = `INSERT INTO lecturers (full_name, email, department, phone_number) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, lecturer.FullName, lecturer.Email, lecturer.Department, lecturer.PhoneNumber).Scan(&lecturer.ID); err != nil {
		return fmt.Errorf("create lecturer: %w", err)
	}
	return nil
}

// AssignLecturer links a lecturer to a unit, updating the link when it already exists.
func (r *UnitRepository) AssignLecturer(ctx context.Context, unitID, lecturerID int64, isPrimary bool, academicYear string) error {
	const query = `INSERT INTO unit_lecturers (unit_id, lecturer_id, is_primary, academic_year) VALUES ($1, $2, $3, $4)
ON CONFLICT (unit_id, lecturer_id) DO UPDATE SET is_primary = EXCLUDED.is_primary, academic_year = EXCLUDED.academic_year`
	if _, err := r.db.ExecContext(ctx, query, unitID, lecturerID, isPrimary, academicYear); err != nil {
		return fmt.Errorf("assign lecturer: %w", err)
	}
	return nil
}
