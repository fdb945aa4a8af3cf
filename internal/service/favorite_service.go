package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

type favoriteRepository interface {
	Add(ctx context.Context, userID, unitID int64) (bool, error)
	Remove(ctx context.Context, userID, unitID int64) (bool, error)
	Exists(ctx context.Context, userID, unitID int64) (bool, error)
	ListUnitIDs(ctx context.Context, userID int64) ([]int64, error)
	ListUnits(ctx context.Context, userID int64) ([]models.FavoriteUnit, error)
}

type unitFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Unit, error)
}

// FavoriteService manages the user's favorite units.
type FavoriteService struct {
	repo     favoriteRepository
	units    unitFinder
	feed     changefeed.Feed
	notifier notifier
	logger   *zap.Logger
}

// NewFavoriteService constructs a FavoriteService.
func NewFavoriteService(repo favoriteRepository, units unitFinder, feed changefeed.Feed, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := newNotifier(feed, logger)
	return &FavoriteService{repo: repo, units: units, feed: n.feed, notifier: n, logger: logger}
}

// Add favorites a unit. Adding an existing favorite is a no-op.
func (s *FavoriteService) Add(ctx context.Context, userID, unitID int64) error {
	if _, err := s.units.FindByID(ctx, unitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "unit not found")
		}
		return appErrors.Internal(err, "failed to load unit")
	}
	created, err := s.repo.Add(ctx, userID, unitID)
	if err != nil {
		return appErrors.Internal(err, "failed to add favorite")
	}
	if created {
		s.notifier.notify(ctx, favoritesTopic(userID))
	}
	return nil
}

// Remove unfavorites a unit. Removing a missing favorite is a no-op.
func (s *FavoriteService) Remove(ctx context.Context, userID, unitID int64) error {
	removed, err := s.repo.Remove(ctx, userID, unitID)
	if err != nil {
		return appErrors.Internal(err, "failed to remove favorite")
	}
	if removed {
		s.notifier.notify(ctx, favoritesTopic(userID))
	}
	return nil
}

// SetFavorite adds or removes the favorite so that it matches favorite.
func (s *FavoriteService) SetFavorite(ctx context.Context, userID, unitID int64, favorite bool) (models.FavoriteStatus, error) {
	var err error
	if favorite {
		err = s.Add(ctx, userID, unitID)
	} else {
		err = s.Remove(ctx, userID, unitID)
	}
	if err != nil {
		return models.FavoriteStatus{}, err
	}
	return models.FavoriteStatus{UnitID: unitID, IsFavorite: favorite}, nil
}

// Toggle flips the favorite flag of a unit.
func (s *FavoriteService) Toggle(ctx context.Context, userID, unitID int64) (models.FavoriteStatus, error) {
	exists, err := s.IsFavorite(ctx, userID, unitID)
	if err != nil {
		return models.FavoriteStatus{}, err
	}
	return s.SetFavorite(ctx, userID, unitID, !exists)
}

// IsFavorite reports whether a unit is a favorite.
func (s *FavoriteService) IsFavorite(ctx context.Context, userID, unitID int64) (bool, error) {
	exists, err := s.repo.Exists(ctx, userID, unitID)
	if err != nil {
		return false, appErrors.Internal(err, "failed to check favorite")
	}
	return exists, nil
}

// ListUnits returns the favorited units, most recent first.
func (s *FavoriteService) ListUnits(ctx context.Context, userID int64) ([]models.FavoriteUnit, error) {
	units, err := s.repo.ListUnits(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list favorites")
	}
	return units, nil
}

// FavoriteIDs returns the favorite unit ids as a set.
func (s *FavoriteService) FavoriteIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	ids, err := s.repo.ListUnitIDs(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list favorites")
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// StreamFavoriteIDs emits the favorite id set now and after every change.
func (s *FavoriteService) StreamFavoriteIDs(ctx context.Context, userID int64) <-chan stream.Snapshot[map[int64]bool] {
	return stream.Watch(ctx, s.feed, func(ctx context.Context) (map[int64]bool, error) {
		return s.FavoriteIDs(ctx, userID)
	}, favoritesTopic(userID))
}
