package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/saga"
	"github.com/noah-isme/somashare-api/pkg/storage"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePhoto(ctx context.Context, id int64, url, key string) error
	Deactivate(ctx context.Context, id int64) error
}

// PhotoUpload carries a profile photo.
type PhotoUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UserServiceConfig holds upload limits for profile photos.
type UserServiceConfig struct {
	MaxPhotoBytes int64
}

// UserService manages student profiles.
type UserService struct {
	repo      userRepository
	blobs     storage.BlobStore
	feed      changefeed.Feed
	notifier  notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       UserServiceConfig
	suffix    func() string
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, blobs storage.BlobStore, feed changefeed.Feed, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg UserServiceConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxPhotoBytes <= 0 {
		cfg.MaxPhotoBytes = 5 * 1024 * 1024
	}
	n := newNotifier(feed, logger)
	return &UserService{repo: repo, blobs: blobs, feed: n.feed, notifier: n, metrics: metrics, validator: validate, logger: logger, cfg: cfg, suffix: storage.NewSuffix}
}

// Register creates the profile of an authenticated subject. Year and semester
// start at 1 until onboarding sets them.
func (s *UserService) Register(ctx context.Context, req models.RegisterUserRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.repo.FindByExternalID(ctx, req.ExternalID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "profile already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check profile")
	}

	user := &models.User{
		ExternalID:      req.ExternalID,
		Email:           req.Email,
		FullName:        req.FullName,
		Course:          strings.TrimSpace(req.Course),
		Department:      strings.TrimSpace(req.Department),
		YearOfStudy:     1,
		SemesterOfStudy: 1,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create profile")
	}
	s.logger.Info("profile registered", zap.Int64("user_id", user.ID))
	s.notifier.notify(ctx, userTopic(user.ID))
	return user, nil
}

// Get returns a profile by id.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Internal(err, "failed to load profile")
	}
	return user, nil
}

// UpdateProfile applies onboarding or profile edits.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, req models.UpdateProfileRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Course = strings.TrimSpace(req.Course)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FullName = req.FullName
	user.Course = req.Course
	user.YearOfStudy = req.YearOfStudy
	user.SemesterOfStudy = req.SemesterOfStudy
	user.Department = strings.TrimSpace(req.Department)
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to update profile")
	}
	s.notifier.notify(ctx, userTopic(id))
	return user, nil
}

// UploadPhoto stores a new avatar and points the profile at it. The stored file
// is removed again when the profile update fails.
func (s *UserService) UploadPhoto(ctx context.Context, id int64, photo PhotoUpload) (*models.User, error) {
	if photo.Content == nil || photo.FileName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo file is required")
	}
	if !strings.HasPrefix(strings.ToLower(photo.ContentType), "image/") {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, "photo must be an image")
	}
	if photo.Size > s.cfg.MaxPhotoBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "photo exceeds the allowed size")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.ProfilePhotoKey(id, storage.UniqueFileName(photo.FileName, s.suffix()))
	var obj *storage.Object
	run := saga.New("profile_photo", s.logger).
		OnCompensate(s.metrics.RecordCompensation).
		Then(saga.Step{
			Name: "store_photo",
			Do: func(ctx context.Context) error {
				var err error
				obj, err = s.blobs.Put(ctx, key, newLimitedReader(photo.Content, s.cfg.MaxPhotoBytes), photo.Size, photo.ContentType)
				if errors.Is(err, storage.ErrObjectExists) {
					return appErrors.Clone(appErrors.ErrConflict, "a photo is already stored under this name, please retry")
				}
				return err
			},
			Compensate: func(ctx context.Context) error {
				if obj == nil || obj.Key == user.PhotoKey {
					return nil
				}
				return s.blobs.Delete(ctx, obj.Key)
			},
		}).
		Then(saga.Step{
			Name: "update_profile",
			Do: func(ctx context.Context) error {
				return s.repo.UpdatePhoto(ctx, id, obj.URL, key)
			},
		})
	if err := run.Run(ctx); err != nil {
		return nil, uploadFailure(err, "Photo upload failed")
	}

	if user.PhotoKey != "" && user.PhotoKey != key {
		if err := s.blobs.Delete(ctx, user.PhotoKey); err != nil {
			s.logger.Warn("failed to delete previous photo", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	user.PhotoURL, user.PhotoKey = obj.URL, key
	s.notifier.notify(ctx, userTopic(id))
	return user, nil
}

// DeletePhoto clears the avatar.
func (s *UserService) DeletePhoto(ctx context.Context, id int64) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.PhotoKey == "" {
		return nil
	}
	if err := s.repo.UpdatePhoto(ctx, id, "", ""); err != nil {
		return appErrors.Internal(err, "failed to clear photo")
	}
	if err := s.blobs.Delete(ctx, user.PhotoKey); err != nil {
		s.logger.Warn("failed to delete photo file", zap.Int64("user_id", id), zap.Error(err))
	}
	s.notifier.notify(ctx, userTopic(id))
	return nil
}

// Deactivate soft-deletes a profile.
func (s *UserService) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return appErrors.Internal(err, "failed to deactivate profile")
	}
	s.notifier.notify(ctx, userTopic(id))
	return nil
}

// StreamProfile emits the profile now and after every change to it.
func (s *UserService) StreamProfile(ctx context.Context, id int64) <-chan stream.Snapshot[*models.User] {
	return stream.Watch(ctx, s.feed, func(ctx context.Context) (*models.User, error) {
		return s.Get(ctx, id)
	}, userTopic(id))
}
