package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

const uniqueViolation = "23505"

type unitRepository interface {
	List(ctx context.Context, filter models.UnitFilter) ([]models.Unit, error)
	FindByID(ctx context.Context, id int64) (*models.Unit, error)
	FindByCode(ctx context.Context, code string) (*models.Unit, error)
	Create(ctx context.Context, unit *models.Unit) error
	DeleteIfUnused(ctx context.Context, id int64) (bool, error)
	ListLecturers(ctx context.Context, unitID int64) ([]models.AssignedLecturer, error)
	CreateLecturer(ctx context.Context, lecturer *models.Lecturer) error
	AssignLecturer(ctx context.Context, unitID, lecturerID int64, isPrimary bool, academicYear string) error
}

type favoriteIDStreamer interface {
	FavoriteIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	StreamFavoriteIDs(ctx context.Context, userID int64) <-chan stream.Snapshot[map[int64]bool]
}

// UnitSpec identifies a unit by code and describes it in case it has to be created.
type UnitSpec struct {
	Code       string
	Name       string
	Year       int
	Semester   int
	Department string
}

// UnitServiceConfig tunes the unit catalog cache.
type UnitServiceConfig struct {
	CacheTTL time.Duration
}

// UnitService serves the unit catalog joined with lecturers and favorites.
type UnitService struct {
	repo      unitRepository
	favorites favoriteIDStreamer
	cache     *CacheService
	feed      changefeed.Feed
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	cfg       UnitServiceConfig
}

// NewUnitService constructs a UnitService.
func NewUnitService(repo unitRepository, favorites favoriteIDStreamer, cache *CacheService, feed changefeed.Feed, validate *validator.Validate, logger *zap.Logger, cfg UnitServiceConfig) *UnitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	n := newNotifier(feed, logger)
	return &UnitService{repo: repo, favorites: favorites, cache: cache, feed: n.feed, notifier: n, validator: validate, logger: logger, cfg: cfg}
}

// NormalizeUnitCode trims and upper-cases a unit code.
func NormalizeUnitCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// List returns units matching filter, served from cache when enabled.
func (s *UnitService) List(ctx context.Context, filter models.UnitFilter) ([]models.Unit, error) {
	key := fmt.Sprintf("units:list:%d:%d:%d:%s:%s", filter.Year, filter.Semester, filter.UpToYear, filter.Department, strings.ToLower(filter.Search))
	units, err := cached(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) ([]models.Unit, error) {
		return s.repo.List(ctx, filter)
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list units")
	}
	return units, nil
}

// ListForUser returns units with the caller's favorite flags.
func (s *UnitService) ListForUser(ctx context.Context, userID int64, filter models.UnitFilter) ([]models.UnitItem, error) {
	units, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	favorites, err := s.favorites.FavoriteIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return withFavorites(units, favorites), nil
}

// Get returns a unit by id.
func (s *UnitService) Get(ctx context.Context, id int64) (*models.Unit, error) {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unit not found")
		}
		return nil, appErrors.Internal(err, "failed to load unit")
	}
	return unit, nil
}

// Lecturers returns the lecturers of a unit.
func (s *UnitService) Lecturers(ctx context.Context, unitID int64) ([]models.AssignedLecturer, error) {
	lecturers, err := s.repo.ListLecturers(ctx, unitID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list lecturers")
	}
	if lecturers == nil {
		lecturers = []models.AssignedLecturer{}
	}
	return lecturers, nil
}

// GetView returns a unit joined with its lecturers and the caller's favorite flag.
func (s *UnitService) GetView(ctx context.Context, userID, id int64) (*models.UnitView, error) {
	unit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lecturers, err := s.Lecturers(ctx, id)
	if err != nil {
		return nil, err
	}
	favorites, err := s.favorites.FavoriteIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UnitView{Unit: *unit, Lecturers: lecturers, IsFavorite: favorites[id]}, nil
}

// Create seeds a unit. Codes are unique after normalisation.
func (s *UnitService) Create(ctx context.Context, req models.CreateUnitRequest) (*models.Unit, error) {
	req.Code = NormalizeUnitCode(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unit payload")
	}
	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "unit code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check unit code")
	}

	unit := &models.Unit{
		Code:        req.Code,
		Name:        req.Name,
		Year:        req.Year,
		Semester:    req.Semester,
		Department:  strings.TrimSpace(req.Department),
		Credits:     req.Credits,
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.repo.Create(ctx, unit); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "unit code already exists")
		}
		return nil, appErrors.Internal(err, "failed to create unit")
	}
	s.unitsChanged(ctx)
	return unit, nil
}

// EnsureByCode returns the unit with want.Code, creating it when missing.
// created reports whether this call inserted the unit.
func (s *UnitService) EnsureByCode(ctx context.Context, want UnitSpec) (*models.Unit, bool, error) {
	code := NormalizeUnitCode(want.Code)
	if code == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unit code is required")
	}
	unit, err := s.repo.FindByCode(ctx, code)
	if err == nil {
		return unit, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Internal(err, "failed to look up unit")
	}

	unit = &models.Unit{
		Code:       code,
		Name:       strings.TrimSpace(want.Name),
		Year:       want.Year,
		Semester:   want.Semester,
		Department: strings.TrimSpace(want.Department),
	}
	if err := s.repo.Create(ctx, unit); err != nil {
		if isUniqueViolation(err) {
			// Another upload created it first.
			existing, findErr := s.repo.FindByCode(ctx, code)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, appErrors.Internal(err, "failed to create unit")
	}
	s.logger.Info("unit created on upload", zap.String("code", code), zap.Int64("unit_id", unit.ID))
	s.unitsChanged(ctx)
	return unit, true, nil
}

// DeleteIfUnused removes a unit nothing refers to yet. A unit that gained a
// paper, favorite or enrollment in the meantime is kept.
func (s *UnitService) DeleteIfUnused(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteIfUnused(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete unit")
	}
	if !deleted {
		s.logger.Info("unit kept, it is already in use", zap.Int64("unit_id", id))
		return nil
	}
	s.unitsChanged(ctx)
	s.notifier.notify(ctx, TopicPapers)
	return nil
}

// CreateLecturer registers a lecturer.
func (s *UnitService) CreateLecturer(ctx context.Context, req models.CreateLecturerRequest) (*models.Lecturer, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecturer payload")
	}
	lecturer := &models.Lecturer{FullName: req.FullName, Email: strings.TrimSpace(req.Email), Department: req.Department, PhoneNumber: req.PhoneNumber}
	if err := s.repo.CreateLecturer(ctx, lecturer); err != nil {
		return nil, appErrors.Internal(err, "failed to create lecturer")
	}
	return lecturer, nil
}

// AssignLecturer links a lecturer to a unit.
func (s *UnitService) AssignLecturer(ctx context.Context, unitID int64, req models.AssignLecturerRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.Get(ctx, unitID); err != nil {
		return err
	}
	if err := s.repo.AssignLecturer(ctx, unitID, req.LecturerID, req.IsPrimary, strings.TrimSpace(req.AcademicYear)); err != nil {
		return appErrors.Internal(err, "failed to assign lecturer")
	}
	s.notifier.notify(ctx, lecturersTopic(unitID))
	return nil
}

// StreamUnits emits the units matching filter now and after every unit change.
func (s *UnitService) StreamUnits(ctx context.Context, filter models.UnitFilter) <-chan stream.Snapshot[[]models.Unit] {
	return stream.Watch(ctx, s.feed, func(ctx context.Context) ([]models.Unit, error) {
		units, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list units")
		}
		return units, nil
	}, TopicUnits)
}

// StreamUnitsWithFavorites joins the unit stream with the caller's favorite ids.
// Units are shown unfavorited until the favorites stream first emits.
func (s *UnitService) StreamUnitsWithFavorites(ctx context.Context, userID int64, filter models.UnitFilter) <-chan stream.Snapshot[[]models.UnitItem] {
	return stream.Join(ctx,
		s.StreamUnits(ctx, filter),
		s.favorites.StreamFavoriteIDs(ctx, userID),
		map[int64]bool{},
		withFavorites,
	)
}

// StreamUnitView joins a unit with its lecturers and the caller's favorite flag.
func (s *UnitService) StreamUnitView(ctx context.Context, userID, unitID int64) <-chan stream.Snapshot[models.UnitView] {
	unit := stream.Watch(ctx, s.feed, func(ctx context.Context) (*models.Unit, error) {
		return s.Get(ctx, unitID)
	}, TopicUnits)
	lecturers := stream.Watch(ctx, s.feed, func(ctx context.Context) ([]models.AssignedLecturer, error) {
		return s.Lecturers(ctx, unitID)
	}, lecturersTopic(unitID))

	return stream.Join3(ctx, unit, lecturers, s.favorites.StreamFavoriteIDs(ctx, userID),
		[]models.AssignedLecturer{}, map[int64]bool{},
		func(u *models.Unit, l []models.AssignedLecturer, favorites map[int64]bool) models.UnitView {
			return models.UnitView{Unit: *u, Lecturers: l, IsFavorite: favorites[unitID]}
		},
	)
}

func (s *UnitService) unitsChanged(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "units:*")
	s.notifier.notify(ctx, TopicUnits)
}

func withFavorites(units []models.Unit, favorites map[int64]bool) []models.UnitItem {
	items := make([]models.UnitItem, len(units))
	for i, unit := range units {
		items[i] = models.UnitItem{Unit: unit, IsFavorite: favorites[unit.ID]}
	}
	return items
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
