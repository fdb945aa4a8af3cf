package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/somashare-api/internal/models"
)

// ActivityRepository stores the append-only view and download logs.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// InsertView appends a view row.
func (r *ActivityRepository) InsertView(ctx context.Context, userID, paperID int64) (*models.PaperView, error) {
	const query = `INSERT INTO paper_views (user_id, paper_id) VALUES ($1, $2) RETURNING id, user_id, paper_id, viewed_at`
	var view models.PaperView
	if err := r.db.GetContext(ctx, &view, query, userID, paperID); err != nil {
		return nil, fmt.Errorf("insert paper view: %w", err)
	}
	return &view, nil
}

// InsertDownload appends a download row.
func (r *ActivityRepository) InsertDownload(ctx context.Context, userID, paperID int64) (*models.PaperDownload, error) {
	const query = `INSERT INTO paper_downloads (user_id, paper_id) VALUES ($1, $2) RETURNING id, user_id, paper_id, downloaded_at`
	var download models.PaperDownload
	if err := r.db.GetContext(ctx, &download, query, userID, paperID); err != nil {
		return nil, fmt.Errorf("insert paper download: %w", err)
	}
	return &download, nil
}

// ListViews returns a user's view history, newest first.
func (r *ActivityRepository) ListViews(ctx context.Context, userID int64, limit int) ([]models.HistoryItem, error) {
	const query = `SELECT v.id AS event_id, p.id AS paper_id, p.name AS paper_name, u.code AS unit_code, p.paper_type, p.paper_year, v.viewed_at AS occurred_at
FROM paper_views v
JOIN past_papers p ON p.id = v.paper_id
JOIN units u ON u.id = p.unit_id
WHERE v.user_id = $1
ORDER BY v.viewed_at DESC, v.id DESC
LIMIT $2`
	var items []models.HistoryItem
	if err := r.db.SelectContext(ctx, &items, query, userID, historyLimit(limit)); err != nil {
		return nil, fmt.Errorf("list paper views: %w", err)
	}
	return items, nil
}

// ListDownloads returns a user's download history, newest first.
func (r *ActivityRepository) ListDownloads(ctx context.Context, userID int64, limit int) ([]models.HistoryItem, error) {
	const query = `SELECT d.id AS event_id, p.id AS paper_id, p.name AS paper_name, u.code AS unit_code, p.paper_type, p.paper_year, d.downloaded_at AS occurred_at
FROM paper_downloads d
JOIN past_papers p ON p.id = d.paper_id
JOIN units u ON u.id = p.unit_id
WHERE d.user_id = $1
ORDER BY d.downloaded_at DESC, d.id DESC
LIMIT $2`
	var items []models.HistoryItem
	if err := r.db.SelectContext(ctx, &items, query, userID, historyLimit(limit)); err != nil {
		return nil, fmt.Errorf("list paper downloads: %w", err)
	}
	return items, nil
}

// ClearViews deletes every view row of a user and reports how many were removed.
func (r *ActivityRepository) ClearViews(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM paper_views WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear paper views: %w", err)
	}
	return res.RowsAffected()
}

// ClearDownloads deletes every download row of a user and reports how many were removed.
func (r *ActivityRepository) ClearDownloads(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM paper_downloads WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear paper downloads: %w", err)
	}
	return res.RowsAffected()
}

// CountDownloads returns the number of download rows for a paper.
func (r *ActivityRepository) CountDownloads(ctx context.Context, paperID int64) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM paper_downloads WHERE paper_id = $1`, paperID); err != nil {
		return 0, fmt.Errorf("count paper downloads: %w", err)
	}
	return total, nil
}

func historyLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
