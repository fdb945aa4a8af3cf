package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/events"
	"github.com/noah-isme/somashare-api/pkg/saga"
	"github.com/noah-isme/somashare-api/pkg/storage"
)

const uploadSaga = "paper_upload"

type unitResolver interface {
	EnsureByCode(ctx context.Context, want UnitSpec) (*models.Unit, bool, error)
	DeleteIfUnused(ctx context.Context, id int64) error
}

type paperCreator interface {
	Create(ctx context.Context, paper *models.PastPaper) error
}

type uploadCounter interface {
	IncrementUploaded(ctx context.Context, id int64) error
}

type uploadedFeed interface {
	AddUploaded(ctx context.Context, res models.Resource) (string, error)
}

// UploadConfig limits accepted files.
type UploadConfig struct {
	MaxFileBytes int64
	AllowedMIMEs []string
}

// UploadDeps groups the collaborators of UploadService.
type UploadDeps struct {
	Blobs      storage.BlobStore
	Units      unitResolver
	Papers     paperCreator
	Users      uploadCounter
	Resources  uploadedFeed
	Dispatcher ActivityDispatcher
	Feed       changefeed.Feed
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Config     UploadConfig
}

// UploadService stores paper files and registers them as papers.
type UploadService struct {
	blobs      storage.BlobStore
	units      unitResolver
	papers     paperCreator
	users      uploadCounter
	resources  uploadedFeed
	dispatcher ActivityDispatcher
	notifier   notifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        UploadConfig
	allowed    map[string]struct{}
	suffix     func() string
}

// NewUploadService constructs an UploadService.
func NewUploadService(deps UploadDeps) *UploadService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = nopDispatcher{}
	}
	if deps.Config.MaxFileBytes <= 0 {
		deps.Config.MaxFileBytes = 20 * 1024 * 1024
	}
	allowed := make(map[string]struct{}, len(deps.Config.AllowedMIMEs))
	for _, mime := range deps.Config.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(mime))] = struct{}{}
	}
	return &UploadService{
		blobs:      deps.Blobs,
		units:      deps.Units,
		papers:     deps.Papers,
		users:      deps.Users,
		resources:  deps.Resources,
		dispatcher: deps.Dispatcher,
		notifier:   newNotifier(deps.Feed, deps.Logger),
		metrics:    deps.Metrics,
		validator:  deps.Validator,
		logger:     deps.Logger,
		cfg:        deps.Config,
		allowed:    allowed,
		suffix:     storage.NewSuffix,
	}
}

// MaxFileBytes reports the largest accepted file.
func (s *UploadService) MaxFileBytes() int64 {
	return s.cfg.MaxFileBytes
}

// Upload stores the file, resolves or creates the unit and inserts the paper.
// Every upload writes a fresh object key. A failure after the file was stored
// deletes that object again, together with a unit created by this upload.
func (s *UploadService) Upload(ctx context.Context, userID int64, req models.UploadPaperRequest, content io.Reader) (*models.UploadResult, error) {
	if err := s.validate(&req, content); err != nil {
		s.metrics.RecordUpload("rejected")
		return nil, err
	}

	key := storage.PaperKey(req.UnitCode, req.PaperYear, string(req.PaperType), storage.UniqueFileName(req.FileName, s.suffix()))
	var (
		obj         *storage.Object
		unit        *models.Unit
		unitCreated bool
		paper       *models.PastPaper
	)

	run := saga.New(uploadSaga, s.logger).
		OnCompensate(s.metrics.RecordCompensation).
		Then(saga.Step{
			Name: "store_file",
			Do: func(ctx context.Context) error {
				var err error
				obj, err = s.blobs.Put(ctx, key, newLimitedReader(content, s.cfg.MaxFileBytes), req.FileSize, req.ContentType)
				if errors.Is(err, storage.ErrObjectExists) {
					return appErrors.Clone(appErrors.ErrConflict, "a file is already stored under this name, please retry")
				}
				return err
			},
			Compensate: func(ctx context.Context) error {
				if obj == nil {
					return nil
				}
				return s.blobs.Delete(ctx, obj.Key)
			},
		}).
		Then(saga.Step{
			Name: "resolve_unit",
			Do: func(ctx context.Context) error {
				var err error
				unit, unitCreated, err = s.units.EnsureByCode(ctx, UnitSpec{
					Code:       req.UnitCode,
					Name:       req.UnitName,
					Year:       req.YearOfStudy,
					Semester:   req.Semester,
					Department: req.Department,
				})
				return err
			},
			Compensate: func(ctx context.Context) error {
				if !unitCreated {
					return nil
				}
				return s.units.DeleteIfUnused(ctx, unit.ID)
			},
		}).
		Then(saga.Step{
			Name: "create_paper",
			Do: func(ctx context.Context) error {
				uploader := userID
				paper = &models.PastPaper{
					Name:        req.Name,
					UnitID:      unit.ID,
					UnitCode:    unit.Code,
					UnitName:    unit.Name,
					YearOfStudy: req.YearOfStudy,
					Semester:    req.Semester,
					PaperYear:   req.PaperYear,
					PaperType:   req.PaperType,
					FileKey:     key,
					FileURL:     obj.URL,
					FileSize:    obj.Size,
					UploadedBy:  &uploader,
				}
				return s.papers.Create(ctx, paper)
			},
		})

	if err := run.Run(ctx); err != nil {
		s.metrics.RecordUpload("failed")
		s.logger.Warn("paper upload failed", zap.Int64("user_id", userID), zap.String("unit_code", req.UnitCode), zap.Error(err))
		return nil, uploadFailure(err, "Upload failed")
	}

	s.afterCommit(ctx, userID, paper)
	s.metrics.RecordUpload("success")
	return &models.UploadResult{Paper: *paper, UnitCreated: unitCreated}, nil
}

func (s *UploadService) validate(req *models.UploadPaperRequest, content io.Reader) error {
	req.Name = strings.TrimSpace(req.Name)
	req.UnitCode = NormalizeUnitCode(req.UnitCode)
	req.UnitName = strings.TrimSpace(req.UnitName)
	req.Department = strings.TrimSpace(req.Department)
	req.ContentType = strings.ToLower(strings.TrimSpace(req.ContentType))
	if content == nil {
		return appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Please fill in all required fields")
	}
	if !req.PaperType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown paper type")
	}
	if req.FileSize > s.cfg.MaxFileBytes {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds the allowed size")
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[req.ContentType]; !ok {
			return appErrors.Clone(appErrors.ErrUnsupportedMedia, "file type is not allowed")
		}
	}
	return nil
}

// afterCommit runs the follow-ups of a stored paper. Failures are logged only.
func (s *UploadService) afterCommit(ctx context.Context, userID int64, paper *models.PastPaper) {
	ctx = context.WithoutCancel(ctx)
	if err := s.users.IncrementUploaded(ctx, userID); err != nil {
		s.logger.Warn("failed to update uploaded count", zap.Int64("user_id", userID), zap.Error(err))
	}
	if s.resources != nil {
		_, err := s.resources.AddUploaded(ctx, models.Resource{
			UserID:   userID,
			PaperID:  paper.ID,
			Title:    paper.Name,
			UnitCode: paper.UnitCode,
			FileURL:  paper.FileURL,
		})
		if err != nil {
			s.logger.Warn("failed to record uploaded resource", zap.Int64("paper_id", paper.ID), zap.Error(err))
		}
	}
	s.notifier.notify(ctx, TopicPapers, userTopic(userID))
	s.metrics.RecordActivity(models.EventUpload)
	s.dispatcher.Dispatch(events.Activity{
		Kind:     string(models.EventUpload),
		UserID:   userID,
		TargetID: paper.ID,
		Metadata: map[string]string{"unit_code": paper.UnitCode, "paper_type": string(paper.PaperType)},
	})
}
