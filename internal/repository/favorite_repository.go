package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/somashare-api/internal/models"
)

// FavoriteRepository provides database access for favorited units.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository creates a new instance of FavoriteRepository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add favorites a unit. It reports false when the unit was already a favorite.
func (r *FavoriteRepository) Add(ctx context.Context, userID, unitID int64) (bool, error) {
	const query = `INSERT INTO user_favorites (user_id, unit_id) VALUES ($1, $2) ON CONFLICT (user_id, unit_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, userID, unitID)
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return n > 0, nil
}

// Remove unfavorites a unit. It reports false when there was nothing to remove.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, unitID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_favorites WHERE user_id = $1 AND unit_id = $2`, userID, unitID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return n > 0, nil
}

// Exists reports whether a unit is a favorite of the user.
func (r *FavoriteRepository) Exists(ctx context.Context, userID, unitID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM user_favorites WHERE user_id = $1 AND unit_id = $2)`, userID, unitID); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// ListUnitIDs returns the ids of every favorited unit.
func (r *FavoriteRepository) ListUnitIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT unit_id FROM user_favorites WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID); err != nil {
		return nil, fmt.Errorf("list favorite ids: %w", err)
	}
	return ids, nil
}

// ListUnits returns the favorited units, most recently favorited first.
func (r *FavoriteRepository) ListUnits(ctx context.Context, userID int64) ([]models.FavoriteUnit, error) {
	const query = `SELECT u.id, u.code, u.name, u.year, u.semester, u.department, u.credits, u.description, u.created_at, f.created_at AS favorited_at
FROM user_favorites f
JOIN units u ON u.id = f.unit_id
WHERE f.user_id = $1
ORDER BY f.created_at DESC, f.id DESC`
	var units []models.FavoriteUnit
	if err := r.db.SelectContext(ctx, &units, query, userID); err != nil {
		return nil, fmt.Errorf("list favorite units: %w", err)
	}
	return units, nil
}
