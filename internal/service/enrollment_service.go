package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID int64, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error)
	UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error
	IsEnrolled(ctx context.Context, userID, unitID int64, academicYear string) (bool, error)
}

// EnrollmentService manages the caller's unit registrations.
type EnrollmentService struct {
	repo      enrollmentRepository
	units     unitFinder
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, units unitFinder, feed changefeed.Feed, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, units: units, notifier: newNotifier(feed, logger), validator: validate, logger: logger}
}

// Create enrolls the user to a unit for an academic year.
func (s *EnrollmentService) Create(ctx context.Context, userID int64, req models.CreateEnrollmentRequest) (*models.Enrollment, error) {
	req.AcademicYear = strings.TrimSpace(req.AcademicYear)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.units.FindByID(ctx, req.UnitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unit not found")
		}
		return nil, appErrors.Internal(err, "failed to load unit")
	}
	enrolled, err := s.repo.IsEnrolled(ctx, userID, req.UnitID, req.AcademicYear)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled for this academic year")
	}

	enrollment := &models.Enrollment{
		UserID:       userID,
		UnitID:       req.UnitID,
		AcademicYear: req.AcademicYear,
		Status:       models.EnrollmentStatusActive,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled for this academic year")
		}
		return nil, appErrors.Internal(err, "failed to create enrollment")
	}
	s.notifier.notify(ctx, enrollmentsTopic(userID))
	return enrollment, nil
}

// List returns the user's enrollments, optionally narrowed to one status.
func (s *EnrollmentService) List(ctx context.Context, userID int64, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	if status != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}
	items, err := s.repo.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, nil
}

// UpdateStatus changes the status of one of the user's enrollments.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, userID, id int64, req models.UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	if enrollment.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another user")
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Internal(err, "failed to update enrollment")
	}
	enrollment.Status = req.Status
	s.notifier.notify(ctx, enrollmentsTopic(userID))
	return enrollment, nil
}
