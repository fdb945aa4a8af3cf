package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/events"
	"github.com/noah-isme/somashare-api/pkg/storage"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

const downloadedFeedLimit = 50

type activityRepository interface {
	InsertView(ctx context.Context, userID, paperID int64) (*models.PaperView, error)
	InsertDownload(ctx context.Context, userID, paperID int64) (*models.PaperDownload, error)
	ListViews(ctx context.Context, userID int64, limit int) ([]models.HistoryItem, error)
	ListDownloads(ctx context.Context, userID int64, limit int) ([]models.HistoryItem, error)
	ClearViews(ctx context.Context, userID int64) (int64, error)
	ClearDownloads(ctx context.Context, userID int64) (int64, error)
}

type paperCounter interface {
	FindByID(ctx context.Context, id int64) (*models.PastPaper, error)
	IncrementDownload(ctx context.Context, id int64) error
	IncrementView(ctx context.Context, id int64) error
}

type ratingWriter interface {
	Upsert(ctx context.Context, rating *models.PaperRating) error
	IncrementHelpful(ctx context.Context, ratingID int64) error
}

type userCounter interface {
	IncrementDownloaded(ctx context.Context, id int64) error
}

type downloadedFeed interface {
	AddDownloaded(ctx context.Context, res models.Resource) (string, error)
	WatchDownloaded(ctx context.Context, userID int64, limit int) <-chan stream.Snapshot[[]models.Resource]
}

// ActivityDispatcher receives activity events for asynchronous delivery.
type ActivityDispatcher interface {
	Dispatch(activity events.Activity)
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(events.Activity) {}

// ActivityDeps groups the collaborators of ActivityService.
type ActivityDeps struct {
	Activity   activityRepository
	Papers     paperCounter
	Ratings    ratingWriter
	Users      userCounter
	Resources  downloadedFeed
	Blobs      storage.BlobStore
	Dispatcher ActivityDispatcher
	Feed       changefeed.Feed
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// ActivityService records views, downloads and ratings and serves the user's history.
type ActivityService struct {
	activity   activityRepository
	papers     paperCounter
	ratings    ratingWriter
	users      userCounter
	resources  downloadedFeed
	blobs      storage.BlobStore
	dispatcher ActivityDispatcher
	notifier   notifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(deps ActivityDeps) *ActivityService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = nopDispatcher{}
	}
	return &ActivityService{
		activity:   deps.Activity,
		papers:     deps.Papers,
		ratings:    deps.Ratings,
		users:      deps.Users,
		resources:  deps.Resources,
		blobs:      deps.Blobs,
		dispatcher: deps.Dispatcher,
		notifier:   newNotifier(deps.Feed, deps.Logger),
		metrics:    deps.Metrics,
		validator:  deps.Validator,
		logger:     deps.Logger,
	}
}

// RecordEvent appends an event of kind and bumps the matching counters. Ratings
// read "rating" and "review" from metadata.
func (s *ActivityService) RecordEvent(ctx context.Context, kind models.EventKind, userID, targetID int64, metadata map[string]string) error {
	switch kind {
	case models.EventView:
		return s.RecordView(ctx, userID, targetID)
	case models.EventDownload:
		_, err := s.RecordDownload(ctx, userID, targetID)
		return err
	case models.EventRating:
		value, err := strconv.Atoi(metadata["rating"])
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "rating must be a number")
		}
		_, err = s.RatePaper(ctx, userID, targetID, models.RatePaperRequest{Rating: value, ReviewText: metadata["review"]})
		return err
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown event kind")
	}
}

// RecordView stores a view and increments the paper's view_count.
func (s *ActivityService) RecordView(ctx context.Context, userID, paperID int64) error {
	paper, err := s.activePaper(ctx, paperID)
	if err != nil {
		return err
	}
	if _, err := s.activity.InsertView(ctx, userID, paperID); err != nil {
		return appErrors.Internal(err, "failed to record view")
	}
	if err := s.papers.IncrementView(ctx, paperID); err != nil {
		return appErrors.Internal(err, "failed to update view count")
	}
	s.notifier.notify(ctx, viewsTopic(userID), TopicPapers)
	s.emit(models.EventView, userID, paperID, map[string]string{"unit_code": paper.UnitCode})
	return nil
}

// RecordDownload stores a download, increments the paper's download_count and the
// user's downloaded_count, and returns a link to the file.
func (s *ActivityService) RecordDownload(ctx context.Context, userID, paperID int64) (*models.DownloadLink, error) {
	paper, err := s.activePaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	url, err := s.fileURL(ctx, paper)
	if err != nil {
		return nil, err
	}
	if _, err := s.activity.InsertDownload(ctx, userID, paperID); err != nil {
		return nil, appErrors.Internal(err, "failed to record download")
	}
	if err := s.papers.IncrementDownload(ctx, paperID); err != nil {
		return nil, appErrors.Internal(err, "failed to update download count")
	}
	if err := s.users.IncrementDownloaded(ctx, userID); err != nil {
		return nil, appErrors.Internal(err, "failed to update downloaded count")
	}

	if s.resources != nil {
		_, err := s.resources.AddDownloaded(ctx, models.Resource{
			UserID:   userID,
			PaperID:  paperID,
			Title:    paper.Name,
			UnitCode: paper.UnitCode,
			FileURL:  paper.FileURL,
		})
		if err != nil {
			s.logger.Warn("failed to record downloaded resource", zap.Int64("paper_id", paperID), zap.Error(err))
		}
	}
	s.notifier.notify(ctx, downloadsTopic(userID), userTopic(userID), TopicPapers)
	s.emit(models.EventDownload, userID, paperID, map[string]string{"unit_code": paper.UnitCode})
	return &models.DownloadLink{PaperID: paperID, URL: url}, nil
}

// RatePaper upserts the caller's rating of a paper.
func (s *ActivityService) RatePaper(ctx context.Context, userID, paperID int64, req models.RatePaperRequest) (*models.PaperRating, error) {
	req.ReviewText = strings.TrimSpace(req.ReviewText)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}
	if _, err := s.activePaper(ctx, paperID); err != nil {
		return nil, err
	}
	rating := &models.PaperRating{UserID: userID, PaperID: paperID, Rating: req.Rating, ReviewText: req.ReviewText}
	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return nil, appErrors.Internal(err, "failed to rate paper")
	}
	s.notifier.notify(ctx, TopicRatings)
	s.emit(models.EventRating, userID, paperID, map[string]string{"rating": strconv.Itoa(req.Rating)})
	return rating, nil
}

// MarkHelpful increments a rating's helpful counter.
func (s *ActivityService) MarkHelpful(ctx context.Context, ratingID int64) error {
	if err := s.ratings.IncrementHelpful(ctx, ratingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return appErrors.Internal(err, "failed to mark rating helpful")
	}
	s.notifier.notify(ctx, TopicRatings)
	return nil
}

// History returns the caller's views or downloads, newest first.
func (s *ActivityService) History(ctx context.Context, userID int64, kind models.EventKind, limit int) ([]models.HistoryItem, error) {
	var (
		items []models.HistoryItem
		err   error
	)
	switch kind {
	case models.EventView:
		items, err = s.activity.ListViews(ctx, userID, limit)
	case models.EventDownload:
		items, err = s.activity.ListDownloads(ctx, userID, limit)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown history kind")
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load history")
	}
	if items == nil {
		items = []models.HistoryItem{}
	}
	return items, nil
}

// ClearHistory deletes the caller's views or downloads. Counters are left as they are.
func (s *ActivityService) ClearHistory(ctx context.Context, userID int64, kind models.EventKind) (int64, error) {
	var (
		removed int64
		err     error
		topic   string
	)
	switch kind {
	case models.EventView:
		removed, err = s.activity.ClearViews(ctx, userID)
		topic = viewsTopic(userID)
	case models.EventDownload:
		removed, err = s.activity.ClearDownloads(ctx, userID)
		topic = downloadsTopic(userID)
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "unknown history kind")
	}
	if err != nil {
		return 0, appErrors.Internal(err, "failed to clear history")
	}
	s.notifier.notify(ctx, topic)
	return removed, nil
}

// StreamDownloaded emits the caller's downloaded resources from the document store.
func (s *ActivityService) StreamDownloaded(ctx context.Context, userID int64) <-chan stream.Snapshot[[]models.Resource] {
	if s.resources == nil {
		return stream.Just([]models.Resource{}, nil)
	}
	return s.resources.WatchDownloaded(ctx, userID, downloadedFeedLimit)
}

func (s *ActivityService) activePaper(ctx context.Context, id int64) (*models.PastPaper, error) {
	paper, err := s.papers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Internal(err, "failed to load paper")
	}
	if !paper.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
	}
	return paper, nil
}

func (s *ActivityService) fileURL(ctx context.Context, paper *models.PastPaper) (string, error) {
	if s.blobs != nil && paper.FileKey != "" {
		url, err := s.blobs.URL(ctx, paper.FileKey)
		if err == nil {
			return url, nil
		}
		if paper.FileURL == "" {
			return "", appErrors.Internal(err, "failed to resolve file link")
		}
		s.logger.Warn("falling back to stored file url", zap.Int64("paper_id", paper.ID), zap.Error(err))
	}
	if paper.FileURL == "" {
		return "", appErrors.Clone(appErrors.ErrNotFound, "paper file not found")
	}
	return paper.FileURL, nil
}

func (s *ActivityService) emit(kind models.EventKind, userID, targetID int64, metadata map[string]string) {
	s.metrics.RecordActivity(kind)
	s.dispatcher.Dispatch(events.Activity{Kind: string(kind), UserID: userID, TargetID: targetID, Metadata: metadata})
}
