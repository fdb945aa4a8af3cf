package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/somashare-api/internal/models"
)

const ratingColumns = `id, user_id, paper_id, rating, review_text, helpful_count, created_at, updated_at`

// RatingRepository provides database access for paper ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new instance of RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert stores the user's rating, replacing an earlier one for the same paper.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.PaperRating) error {
	now := time.Now().UTC()
	const query = `INSERT INTO paper_ratings (user_id, paper_id, rating, review_text, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id, paper_id) DO UPDATE SET rating = EXCLUDED.rating, review_text = EXCLUDED.review_text, updated_at = EXCLUDED.updated_at
RETURNING ` + ratingColumns
	if err := r.db.GetContext(ctx, rating, query, rating.UserID, rating.PaperID, rating.Rating, rating.ReviewText, now); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// FindByUserAndPaper returns the caller's rating of a paper.
func (r *RatingRepository) FindByUserAndPaper(ctx context.Context, userID, paperID int64) (*models.PaperRating, error) {
	query := `SELECT ` + ratingColumns + ` FROM paper_ratings WHERE user_id = $1 AND paper_id = $2 LIMIT 1`
	var rating models.PaperRating
	if err := r.db.GetContext(ctx, &rating, query, userID, paperID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &rating, nil
}

// ListForPaper returns a paper's ratings, most helpful first.
func (r *RatingRepository) ListForPaper(ctx context.Context, paperID int64) ([]models.PaperRating, error) {
	query := `SELECT ` + ratingColumns + ` FROM paper_ratings WHERE paper_id = $1 ORDER BY helpful_count DESC, updated_at DESC, id DESC`
	var ratings []models.PaperRating
	if err := r.db.SelectContext(ctx, &ratings, query, paperID); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}

// IncrementHelpful bumps a rating's helpful counter.
func (r *RatingRepository) IncrementHelpful(ctx context.Context, ratingID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE paper_ratings SET helpful_count = helpful_count + 1 WHERE id = $1`, ratingID)
	if err != nil {
		return fmt.Errorf("increment helpful count: %w", err)
	}
	return expectRow(res)
}

// SummaryForPaper returns the average and count for one paper. Unrated papers yield zeros.
func (r *RatingRepository) SummaryForPaper(ctx context.Context, paperID int64) (models.RatingSummary, error) {
	const query = `SELECT $1::BIGINT AS paper_id, COALESCE(AVG(rating), 0)::FLOAT8 AS average, COUNT(*) AS count FROM paper_ratings WHERE paper_id = $1`
	var summary models.RatingSummary
	if err := r.db.GetContext(ctx, &summary, query, paperID); err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}
	return summary, nil
}

// SummariesByPaperIDs returns summaries for the rated papers among ids.
func (r *RatingRepository) SummariesByPaperIDs(ctx context.Context, ids []int64) (map[int64]models.RatingSummary, error) {
	if len(ids) == 0 {
		return map[int64]models.RatingSummary{}, nil
	}
	const query = `SELECT paper_id, AVG(rating)::FLOAT8 AS average, COUNT(*) AS count FROM paper_ratings WHERE paper_id = ANY($1) GROUP BY paper_id`
	var rows []models.RatingSummary
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("rating summaries: %w", err)
	}
	return indexSummaries(rows), nil
}

// SummariesByUnit returns summaries for the rated papers of a unit.
func (r *RatingRepository) SummariesByUnit(ctx context.Context, unitID int64) (map[int64]models.RatingSummary, error) {
	const query = `SELECT pr.paper_id, AVG(pr.rating)::FLOAT8 AS average, COUNT(*) AS count
FROM paper_ratings pr
JOIN past_papers p ON p.id = pr.paper_id
WHERE p.unit_id = $1
GROUP BY pr.paper_id`
	var rows []models.RatingSummary
	if err := r.db.SelectContext(ctx, &rows, query, unitID); err != nil {
		return nil, fmt.Errorf("unit rating summaries: %w", err)
	}
	return indexSummaries(rows), nil
}

func indexSummaries(rows []models.RatingSummary) map[int64]models.RatingSummary {
	out := make(map[int64]models.RatingSummary, len(rows))
	for _, row := range rows {
		out[row.PaperID] = row
	}
	return out
}
