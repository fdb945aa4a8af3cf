package service

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/events"
	"github.com/noah-isme/somashare-api/pkg/storage"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
	urlErr  error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (*storage.Object, error) {
	if b.putErr != nil {
		return nil, b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; ok {
		return nil, storage.ErrObjectExists
	}
	b.objects[key] = data
	return &storage.Object{Key: key, URL: "/files/" + key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	return b.has(key), nil
}

func (b *memBlobs) URL(_ context.Context, key string) (string, error) {
	if b.urlErr != nil {
		return "", b.urlErr
	}
	return "https://files.test/" + key, nil
}

func (b *memBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

type fakeUnitRepo struct {
	mu        sync.Mutex
	units     map[int64]*models.Unit
	nextID    int64
	createErr error
	lecturers map[int64][]models.AssignedLecturer
	inUse     func(id int64) bool
}

func newFakeUnitRepo(units ...models.Unit) *fakeUnitRepo {
	r := &fakeUnitRepo{units: map[int64]*models.Unit{}, lecturers: map[int64][]models.AssignedLecturer{}}
	for i := range units {
		u := units[i]
		r.units[u.ID] = &u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *fakeUnitRepo) List(_ context.Context, filter models.UnitFilter) ([]models.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Unit
	for _, u := range r.units {
		if filter.Year != 0 && u.Year != filter.Year {
			continue
		}
		if filter.Semester != 0 && u.Semester != filter.Semester {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUnitRepo) FindByID(_ context.Context, id int64) (*models.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.units[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUnitRepo) FindByCode(_ context.Context, code string) (*models.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units {
		if u.Code == code {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUnitRepo) Create(_ context.Context, unit *models.Unit) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	unit.ID = r.nextID
	copy := *unit
	r.units[unit.ID] = &copy
	return nil
}

func (r *fakeUnitRepo) DeleteIfUnused(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[id]; !ok || (r.inUse != nil && r.inUse(id)) {
		return false, nil
	}
	delete(r.units, id)
	return true, nil
}

func (r *fakeUnitRepo) ListLecturers(_ context.Context, unitID int64) ([]models.AssignedLecturer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lecturers[unitID], nil
}

func (r *fakeUnitRepo) CreateLecturer(_ context.Context, lecturer *models.Lecturer) error {
	lecturer.ID = 1
	return nil
}

func (r *fakeUnitRepo) AssignLecturer(_ context.Context, unitID, lecturerID int64, isPrimary bool, academicYear string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lecturers[unitID] = append(r.lecturers[unitID], models.AssignedLecturer{
		Lecturer:     models.Lecturer{ID: lecturerID},
		IsPrimary:    isPrimary,
		AcademicYear: academicYear,
	})
	return nil
}

func (r *fakeUnitRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.units)
}

type fakePaperRepo struct {
	mu        sync.Mutex
	papers    map[int64]*models.PastPaper
	nextID    int64
	createErr error
	incErr    error
	viewed    map[int64][]int64
}

func newFakePaperRepo(papers ...models.PastPaper) *fakePaperRepo {
	r := &fakePaperRepo{papers: map[int64]*models.PastPaper{}, viewed: map[int64][]int64{}}
	for i := range papers {
		p := papers[i]
		r.papers[p.ID] = &p
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
	}
	return r
}

func (r *fakePaperRepo) List(_ context.Context, filter models.PaperFilter) ([]models.PastPaper, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PastPaper
	for _, p := range r.papers {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.UnitID != 0 && p.UnitID != filter.UnitID {
			continue
		}
		if filter.PaperType != "" && p.PaperType != filter.PaperType {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakePaperRepo) FindByID(_ context.Context, id int64) (*models.PastPaper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.papers[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakePaperRepo) Create(_ context.Context, paper *models.PastPaper) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	paper.ID = r.nextID
	paper.IsActive = true
	copy := *paper
	r.papers[paper.ID] = &copy
	return nil
}

func (r *fakePaperRepo) SetVerified(_ context.Context, id int64, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.papers[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.IsVerified = verified
	return nil
}

func (r *fakePaperRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.papers[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.IsActive = active
	return nil
}

func (r *fakePaperRepo) IncrementDownload(_ context.Context, id int64) error {
	if r.incErr != nil {
		return r.incErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.papers[id].DownloadCount++
	return nil
}

func (r *fakePaperRepo) IncrementView(_ context.Context, id int64) error {
	if r.incErr != nil {
		return r.incErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.papers[id].ViewCount++
	return nil
}

func (r *fakePaperRepo) ListRecentlyViewed(_ context.Context, userID int64, limit int) ([]models.PastPaper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PastPaper
	ids := r.viewed[userID]
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *r.papers[ids[i]])
	}
	return out, nil
}

func (r *fakePaperRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.papers)
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	nextID   int64
	photoErr error
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int64]*models.User{}}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *fakeUserRepo) get(id int64) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	copy := *u
	return &copy, nil
}

func (r *fakeUserRepo) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ExternalID == externalID {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	user.IsActive = true
	copy := *user
	r.users[user.ID] = &copy
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(user.ID); err != nil {
		return err
	}
	copy := *user
	r.users[user.ID] = &copy
	return nil
}

func (r *fakeUserRepo) UpdatePhoto(_ context.Context, id int64, url, key string) error {
	if r.photoErr != nil {
		return r.photoErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.PhotoURL, u.PhotoKey = url, key
	return nil
}

func (r *fakeUserRepo) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.IsActive = false
	return nil
}

func (r *fakeUserRepo) IncrementUploaded(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.UploadedCount++
	return nil
}

func (r *fakeUserRepo) IncrementDownloaded(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.DownloadedCount++
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.IsVerified = true
	return nil
}

type favoriteKey struct{ user, unit int64 }

type fakeFavoriteRepo struct {
	mu     sync.Mutex
	rows   map[favoriteKey]bool
	addErr error
}

func newFakeFavoriteRepo() *fakeFavoriteRepo {
	return &fakeFavoriteRepo{rows: map[favoriteKey]bool{}}
}

func (r *fakeFavoriteRepo) Add(_ context.Context, userID, unitID int64) (bool, error) {
	if r.addErr != nil {
		return false, r.addErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := favoriteKey{userID, unitID}
	if r.rows[k] {
		return false, nil
	}
	r.rows[k] = true
	return true, nil
}

func (r *fakeFavoriteRepo) Remove(_ context.Context, userID, unitID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := favoriteKey{userID, unitID}
	if !r.rows[k] {
		return false, nil
	}
	delete(r.rows, k)
	return true, nil
}

func (r *fakeFavoriteRepo) Exists(_ context.Context, userID, unitID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[favoriteKey{userID, unitID}], nil
}

func (r *fakeFavoriteRepo) ListUnitIDs(_ context.Context, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for k := range r.rows {
		if k.user == userID {
			ids = append(ids, k.unit)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeFavoriteRepo) ListUnits(ctx context.Context, userID int64) ([]models.FavoriteUnit, error) {
	ids, _ := r.ListUnitIDs(ctx, userID)
	out := make([]models.FavoriteUnit, len(ids))
	for i, id := range ids {
		out[i] = models.FavoriteUnit{Unit: models.Unit{ID: id}}
	}
	return out, nil
}

type fakeActivityRepo struct {
	mu        sync.Mutex
	views     []models.PaperView
	downloads []models.PaperDownload
}

func (r *fakeActivityRepo) InsertView(_ context.Context, userID, paperID int64) (*models.PaperView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := models.PaperView{ID: int64(len(r.views) + 1), UserID: userID, PaperID: paperID}
	r.views = append(r.views, v)
	return &v, nil
}

func (r *fakeActivityRepo) InsertDownload(_ context.Context, userID, paperID int64) (*models.PaperDownload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := models.PaperDownload{ID: int64(len(r.downloads) + 1), UserID: userID, PaperID: paperID}
	r.downloads = append(r.downloads, d)
	return &d, nil
}

func (r *fakeActivityRepo) ListViews(_ context.Context, userID int64, _ int) ([]models.HistoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.HistoryItem
	for i := len(r.views) - 1; i >= 0; i-- {
		if r.views[i].UserID == userID {
			out = append(out, models.HistoryItem{EventID: r.views[i].ID, PaperID: r.views[i].PaperID})
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) ListDownloads(_ context.Context, userID int64, _ int) ([]models.HistoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.HistoryItem
	for i := len(r.downloads) - 1; i >= 0; i-- {
		if r.downloads[i].UserID == userID {
			out = append(out, models.HistoryItem{EventID: r.downloads[i].ID, PaperID: r.downloads[i].PaperID})
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) ClearViews(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept, removed := r.views[:0], int64(0)
	for _, v := range r.views {
		if v.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	r.views = kept
	return removed, nil
}

func (r *fakeActivityRepo) ClearDownloads(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept, removed := r.downloads[:0], int64(0)
	for _, d := range r.downloads {
		if d.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	r.downloads = kept
	return removed, nil
}

func (r *fakeActivityRepo) downloadRows(paperID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.downloads {
		if d.PaperID == paperID {
			n++
		}
	}
	return n
}

type fakeRatingRepo struct {
	mu        sync.Mutex
	ratings   map[favoriteKey]*models.PaperRating
	summaries map[int64]models.RatingSummary
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{ratings: map[favoriteKey]*models.PaperRating{}, summaries: map[int64]models.RatingSummary{}}
}

func (r *fakeRatingRepo) Upsert(_ context.Context, rating *models.PaperRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := favoriteKey{rating.UserID, rating.PaperID}
	if existing, ok := r.ratings[k]; ok {
		rating.ID = existing.ID
	} else {
		rating.ID = int64(len(r.ratings) + 1)
	}
	copy := *rating
	r.ratings[k] = &copy
	return nil
}

func (r *fakeRatingRepo) IncrementHelpful(_ context.Context, ratingID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rating := range r.ratings {
		if rating.ID == ratingID {
			rating.HelpfulCount++
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *fakeRatingRepo) SummaryForPaper(_ context.Context, paperID int64) (models.RatingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.summaries[paperID]; ok {
		return s, nil
	}
	return models.RatingSummary{PaperID: paperID}, nil
}

func (r *fakeRatingRepo) SummariesByPaperIDs(_ context.Context, ids []int64) (map[int64]models.RatingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64]models.RatingSummary{}
	for _, id := range ids {
		if s, ok := r.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (r *fakeRatingRepo) SummariesByUnit(_ context.Context, _ int64) (map[int64]models.RatingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]models.RatingSummary, len(r.summaries))
	for k, v := range r.summaries {
		out[k] = v
	}
	return out, nil
}

func (r *fakeRatingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ratings)
}

type fakeResources struct {
	mu         sync.Mutex
	uploaded   []models.Resource
	downloaded []models.Resource
}

func (f *fakeResources) AddUploaded(_ context.Context, res models.Resource) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, res)
	return "u", nil
}

func (f *fakeResources) AddDownloaded(_ context.Context, res models.Resource) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloaded = append(f.downloaded, res)
	return "d", nil
}

func (f *fakeResources) WatchDownloaded(_ context.Context, _ int64, _ int) <-chan stream.Snapshot[[]models.Resource] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return stream.Just(append([]models.Resource(nil), f.downloaded...), nil)
}

type recordingDispatcher struct {
	mu         sync.Mutex
	activities []events.Activity
}

func (d *recordingDispatcher) Dispatch(activity events.Activity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activities = append(d.activities, activity)
}

func (d *recordingDispatcher) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.activities))
	for i, a := range d.activities {
		out[i] = a.Kind
	}
	return out
}
