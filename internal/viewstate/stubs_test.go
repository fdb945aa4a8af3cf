package viewstate

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// world is an in-memory stand-in for the service layer. Every stream is a
// stream.Watch over one shared feed, so writes re-emit like they do in production.
type world struct {
	feed *changefeed.Memory

	mu          sync.Mutex
	user        *models.User
	units       []models.UnitItem
	view        models.UnitView
	papers      []models.PaperWithRating
	downloaded  []models.Resource
	paperErr    error
	favoriteErr error
	updateErr   error
	uploadErr   error
	favorites   []bool
	views       []int64
	paperFilter models.PaperFilter
	uploaded    []byte
	uploadReq   models.UploadPaperRequest
	maxBytes    int64
}

func newWorld() *world {
	return &world{
		feed:     changefeed.NewMemory(0),
		user:     &models.User{ID: 1, FullName: "Amina Otieno", YearOfStudy: 2, SemesterOfStudy: 1},
		maxBytes: 1 << 20,
	}
}

func (w *world) deps() Deps {
	return Deps{
		Profiles:  w,
		Units:     w,
		Papers:    w,
		Favorites: w,
		Activity:  w,
		Uploads:   w,
		Now:       func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) },
	}
}

func (w *world) publish(topic string) {
	_ = w.feed.Publish(context.Background(), topic)
}

func (w *world) setUser(fn func(u *models.User)) {
	w.mu.Lock()
	u := *w.user
	fn(&u)
	w.user = &u
	w.mu.Unlock()
	w.publish("user")
}

func (w *world) StreamProfile(ctx context.Context, id int64) <-chan stream.Snapshot[*models.User] {
	return stream.Watch(ctx, w.feed, func(context.Context) (*models.User, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		u := *w.user
		return &u, nil
	}, "user")
}

func (w *world) UpdateProfile(_ context.Context, id int64, req models.UpdateProfileRequest) (*models.User, error) {
	if w.updateErr != nil {
		return nil, w.updateErr
	}
	w.setUser(func(u *models.User) {
		u.FullName, u.YearOfStudy, u.SemesterOfStudy = req.FullName, req.YearOfStudy, req.SemesterOfStudy
	})
	w.mu.Lock()
	defer w.mu.Unlock()
	u := *w.user
	return &u, nil
}

func (w *world) StreamUnitsWithFavorites(ctx context.Context, userID int64, filter models.UnitFilter) <-chan stream.Snapshot[[]models.UnitItem] {
	return stream.Watch(ctx, w.feed, func(context.Context) ([]models.UnitItem, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		out := []models.UnitItem{}
		for _, u := range w.units {
			if (filter.Year == 0 || u.Year == filter.Year) && (filter.Semester == 0 || u.Semester == filter.Semester) {
				out = append(out, u)
			}
		}
		return out, nil
	}, "units")
}

func (w *world) StreamUnitView(ctx context.Context, userID, unitID int64) <-chan stream.Snapshot[models.UnitView] {
	return stream.Watch(ctx, w.feed, func(context.Context) (models.UnitView, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.view, nil
	}, "units")
}

func (w *world) StreamPapers(ctx context.Context, filter models.PaperFilter) <-chan stream.Snapshot[[]models.PaperWithRating] {
	w.mu.Lock()
	w.paperFilter = filter
	w.mu.Unlock()
	return stream.Watch(ctx, w.feed, w.loadPapers, "papers")
}

func (w *world) StreamUnitPapers(ctx context.Context, unitID int64) <-chan stream.Snapshot[[]models.PaperWithRating] {
	return stream.Watch(ctx, w.feed, w.loadPapers, "papers")
}

func (w *world) loadPapers(context.Context) ([]models.PaperWithRating, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paperErr != nil {
		return nil, w.paperErr
	}
	return append([]models.PaperWithRating(nil), w.papers...), nil
}

func (w *world) StreamRecentlyViewed(ctx context.Context, userID int64) <-chan stream.Snapshot[[]models.PastPaper] {
	return stream.Watch(ctx, w.feed, func(context.Context) ([]models.PastPaper, error) {
		return []models.PastPaper{}, nil
	}, "views")
}

func (w *world) SetFavorite(_ context.Context, userID, unitID int64, favorite bool) (models.FavoriteStatus, error) {
	w.mu.Lock()
	w.favorites = append(w.favorites, favorite)
	err := w.favoriteErr
	w.mu.Unlock()
	return models.FavoriteStatus{UnitID: unitID, IsFavorite: favorite}, err
}

func (w *world) RecordView(_ context.Context, userID, paperID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.views = append(w.views, paperID)
	return nil
}

func (w *world) RatePaper(_ context.Context, userID, paperID int64, req models.RatePaperRequest) (*models.PaperRating, error) {
	return &models.PaperRating{UserID: userID, PaperID: paperID, Rating: req.Rating}, nil
}

func (w *world) StreamDownloaded(ctx context.Context, userID int64) <-chan stream.Snapshot[[]models.Resource] {
	return stream.Watch(ctx, w.feed, func(context.Context) ([]models.Resource, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return append([]models.Resource{}, w.downloaded...), nil
	}, "downloads")
}

func (w *world) Upload(_ context.Context, userID int64, req models.UploadPaperRequest, content io.Reader) (*models.UploadResult, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.uploaded, w.uploadReq = data, req
	if w.uploadErr != nil {
		return nil, w.uploadErr
	}
	return &models.UploadResult{Paper: models.PastPaper{ID: 42, Name: req.Name}}, nil
}

func (w *world) MaxFileBytes() int64 { return w.maxBytes }

func intent(kind, payload string) Intent {
	in := Intent{Type: kind}
	if payload != "" {
		in.Payload = []byte(payload)
	}
	return in
}
