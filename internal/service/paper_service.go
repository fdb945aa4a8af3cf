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

const recentlyViewedLimit = 3

type paperRepository interface {
	List(ctx context.Context, filter models.PaperFilter) ([]models.PastPaper, int, error)
	FindByID(ctx context.Context, id int64) (*models.PastPaper, error)
	Create(ctx context.Context, paper *models.PastPaper) error
	SetVerified(ctx context.Context, id int64, verified bool) error
	SetActive(ctx context.Context, id int64, active bool) error
	IncrementDownload(ctx context.Context, id int64) error
	IncrementView(ctx context.Context, id int64) error
	ListRecentlyViewed(ctx context.Context, userID int64, limit int) ([]models.PastPaper, error)
}

type ratingSummaryReader interface {
	SummaryForPaper(ctx context.Context, paperID int64) (models.RatingSummary, error)
	SummariesByPaperIDs(ctx context.Context, ids []int64) (map[int64]models.RatingSummary, error)
	SummariesByUnit(ctx context.Context, unitID int64) (map[int64]models.RatingSummary, error)
}

// PaperList is one page of papers with their rating aggregates.
type PaperList struct {
	Items      []models.PaperWithRating
	Pagination models.Pagination
}

// PaperService serves past papers joined with rating aggregates.
type PaperService struct {
	repo     paperRepository
	ratings  ratingSummaryReader
	feed     changefeed.Feed
	notifier notifier
	logger   *zap.Logger
}

// NewPaperService constructs a PaperService.
func NewPaperService(repo paperRepository, ratings ratingSummaryReader, feed changefeed.Feed, logger *zap.Logger) *PaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := newNotifier(feed, logger)
	return &PaperService{repo: repo, ratings: ratings, feed: n.feed, notifier: n, logger: logger}
}

// List returns one page of active papers with their ratings.
func (s *PaperService) List(ctx context.Context, filter models.PaperFilter) (*PaperList, error) {
	filter.ActiveOnly = true
	if filter.PaperType != "" && !filter.PaperType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown paper type")
	}
	papers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list papers")
	}
	items, err := s.withRatings(ctx, papers)
	if err != nil {
		return nil, err
	}
	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return &PaperList{Items: items, Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: total}}, nil
}

// Get returns an active paper with its rating.
func (s *PaperService) Get(ctx context.Context, id int64) (*models.PaperWithRating, error) {
	paper, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.ratings.SummaryForPaper(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load rating")
	}
	return &models.PaperWithRating{PastPaper: *paper, Rating: summary}, nil
}

// find loads a paper and hides inactive ones.
func (s *PaperService) find(ctx context.Context, id int64) (*models.PastPaper, error) {
	paper, err := s.repo.FindByID(ctx, id)
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

// SetVerified marks a paper as checked by a moderator.
func (s *PaperService) SetVerified(ctx context.Context, id int64, verified bool) error {
	if err := s.repo.SetVerified(ctx, id, verified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return appErrors.Internal(err, "failed to update paper")
	}
	s.notifier.notify(ctx, TopicPapers)
	return nil
}

// SetActive hides or restores a paper.
func (s *PaperService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return appErrors.Internal(err, "failed to update paper")
	}
	s.notifier.notify(ctx, TopicPapers)
	return nil
}

// StreamPapers emits the papers matching filter with ratings after every paper or rating change.
func (s *PaperService) StreamPapers(ctx context.Context, filter models.PaperFilter) <-chan stream.Snapshot[[]models.PaperWithRating] {
	return stream.Watch(ctx, s.feed, func(ctx context.Context) ([]models.PaperWithRating, error) {
		list, err := s.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return list.Items, nil
	}, TopicPapers, TopicRatings)
}

// StreamUnitPapers joins the papers of a unit with the unit's rating aggregates.
// Papers are shown unrated until the rating stream first emits.
func (s *PaperService) StreamUnitPapers(ctx context.Context, unitID int64) <-chan stream.Snapshot[[]models.PaperWithRating] {
	papers := stream.Watch(ctx, s.feed, func(ctx context.Context) ([]models.PastPaper, error) {
		items, _, err := s.repo.List(ctx, models.PaperFilter{UnitID: unitID, ActiveOnly: true, PageSize: 100, SortBy: "paper_year"})
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list papers")
		}
		return items, nil
	}, TopicPapers)
	ratings := stream.Watch(ctx, s.feed, func(ctx context.Context) (map[int64]models.RatingSummary, error) {
		summaries, err := s.ratings.SummariesByUnit(ctx, unitID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load ratings")
		}
		return summaries, nil
	}, TopicRatings)

	return stream.Join(ctx, papers, ratings, map[int64]models.RatingSummary{}, attachRatings)
}

// RecentlyViewed returns the caller's last viewed papers.
func (s *PaperService) RecentlyViewed(ctx context.Context, userID int64) ([]models.PastPaper, error) {
	papers, err := s.repo.ListRecentlyViewed(ctx, userID, recentlyViewedLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list recently viewed papers")
	}
	if papers == nil {
		papers = []models.PastPaper{}
	}
	return papers, nil
}

// StreamRecentlyViewed emits the caller's last viewed papers after every view or paper change.
func (s *PaperService) StreamRecentlyViewed(ctx context.Context, userID int64) <-chan stream.Snapshot[[]models.PastPaper] {
	return stream.Watch(ctx, s.feed, func(ctx context.Context) ([]models.PastPaper, error) {
		return s.RecentlyViewed(ctx, userID)
	}, viewsTopic(userID), TopicPapers)
}

func (s *PaperService) withRatings(ctx context.Context, papers []models.PastPaper) ([]models.PaperWithRating, error) {
	if len(papers) == 0 {
		return []models.PaperWithRating{}, nil
	}
	ids := make([]int64, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	summaries, err := s.ratings.SummariesByPaperIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load ratings")
	}
	return attachRatings(papers, summaries), nil
}

// attachRatings pairs each paper with its summary. Papers without ratings get a zero summary.
func attachRatings(papers []models.PastPaper, summaries map[int64]models.RatingSummary) []models.PaperWithRating {
	items := make([]models.PaperWithRating, len(papers))
	for i, p := range papers {
		summary, ok := summaries[p.ID]
		if !ok {
			summary = models.RatingSummary{PaperID: p.ID}
		}
		items[i] = models.PaperWithRating{PastPaper: p, Rating: summary}
	}
	return items
}
