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

const paperSelect = `SELECT p.id, p.name, p.unit_id, u.code AS unit_code, u.name AS unit_name, p.year_of_study, p.semester, p.paper_year, p.paper_type, p.file_key, p.file_url, p.file_size, p.uploaded_by, p.download_count, p.view_count, p.is_verified, p.is_active, p.upload_date`

const paperFrom = ` FROM past_papers p JOIN units u ON u.id = p.unit_id`

// PaperRepository provides database access for past papers.
type PaperRepository struct {
	db *sqlx.DB
}

// NewPaperRepository creates a new instance of PaperRepository.
func NewPaperRepository(db *sqlx.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

// List returns papers matching filter with the total count. Ties on the sort key
// break on id in the same direction, which is insertion order.
func (r *PaperRepository) List(ctx context.Context, filter models.PaperFilter) ([]models.PastPaper, int, error) {
	baseQuery := paperFrom + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UnitID > 0 {
		conditions = append(conditions, fmt.Sprintf("p.unit_id = $%d", len(args)+1))
		args = append(args, filter.UnitID)
	}
	if filter.YearOfStudy > 0 {
		conditions = append(conditions, fmt.Sprintf("p.year_of_study = $%d", len(args)+1))
		args = append(args, filter.YearOfStudy)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("p.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.PaperType != "" {
		conditions = append(conditions, fmt.Sprintf("p.paper_type = $%d", len(args)+1))
		args = append(args, filter.PaperType)
	}
	if filter.PaperYear > 0 {
		conditions = append(conditions, fmt.Sprintf("p.paper_year = $%d", len(args)+1))
		args = append(args, filter.PaperYear)
	}
	if filter.UploadedBy > 0 {
		conditions = append(conditions, fmt.Sprintf("p.uploaded_by = $%d", len(args)+1))
		args = append(args, filter.UploadedBy)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "p.is_active = TRUE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.name) LIKE $%d OR LOWER(u.code) LIKE $%d OR LOWER(u.name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "upload_date"
	}
	allowedSorts := map[string]bool{
		"upload_date":    true,
		"paper_year":     true,
		"download_count": true,
		"view_count":     true,
		"name":           true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "upload_date"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("%s%s ORDER BY p.%s %s, p.id %s LIMIT %d OFFSET %d", paperSelect, baseQuery, sortBy, sortOrder, sortOrder, pageSize, offset)

	var papers []models.PastPaper
	if err := r.db.SelectContext(ctx, &papers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list papers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*)%s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count papers: %w", err)
	}

	return papers, total, nil
}

// FindByID returns a paper by identifier.
func (r *PaperRepository) FindByID(ctx context.Context, id int64) (*models.PastPaper, error) {
	query := paperSelect + paperFrom + ` WHERE p.id = $1 LIMIT 1`
	var paper models.PastPaper
	if err := r.db.GetContext(ctx, &paper, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find paper by id: %w", err)
	}
	return &paper, nil
}

// Create inserts a paper and fills its generated id.
func (r *PaperRepository) Create(ctx context.Context, paper *models.PastPaper) error {
	paper.IsActive = true
	if paper.UploadDate.IsZero() {
		paper.UploadDate = time.Now().UTC()
	}
	const query = `INSERT INTO past_papers (name, unit_id, year_of_study, semester, paper_year, paper_type, file_key, file_url, file_size, uploaded_by, is_active, upload_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		paper.Name, paper.UnitID, paper.YearOfStudy, paper.Semester, paper.PaperYear, paper.PaperType,
		paper.FileKey, paper.FileURL, paper.FileSize, paper.UploadedBy, paper.IsActive, paper.UploadDate,
	).Scan(&paper.ID); err != nil {
		return fmt.Errorf("create paper: %w", err)
	}
	return nil
}

// SetVerified toggles the moderation flag.
func (r *PaperRepository) SetVerified(ctx context.Context, id int64, verified bool) error {
	const query = `UPDATE past_papers SET is_verified = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, verified)
	if err != nil {
		return fmt.Errorf("set paper verified: %w", err)
	}
	return expectRow(res)
}

// SetActive hides or restores a paper.
func (r *PaperRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE past_papers SET is_active = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set paper active: %w", err)
	}
	return expectRow(res)
}

// IncrementDownload bumps download_count.
func (r *PaperRepository) IncrementDownload(ctx context.Context, id int64) error {
	const query = `UPDATE past_papers SET download_count = download_count + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	return expectRow(res)
}

// IncrementView bumps view_count.
func (r *PaperRepository) IncrementView(ctx context.Context, id int64) error {
	const query = `UPDATE past_papers SET view_count = view_count + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return expectRow(res)
}

// ListRecentlyViewed returns the distinct papers a user viewed, most recent view first.
func (r *PaperRepository) ListRecentlyViewed(ctx context.Context, userID int64, limit int) ([]models.PastPaper, error) {
	if limit <= 0 {
		limit = 3
	}
	query := paperSelect + paperFrom + `
JOIN (SELECT paper_id, MAX(viewed_at) AS last_viewed, MAX(id) AS last_id FROM paper_views WHERE user_id = $1 GROUP BY paper_id) v ON v.paper_id = p.id
WHERE p.is_active = TRUE
ORDER BY v.last_viewed DESC, v.last_id DESC
LIMIT $2`
	var papers []models.PastPaper
	if err := r.db.SelectContext(ctx, &papers, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list recently viewed papers: %w", err)
	}
	return papers, nil
}
