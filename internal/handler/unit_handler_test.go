package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/internal/service"
)

type unitServiceMock struct {
	lastFilter models.UnitFilter
	lastUser   int64
}

func (m *unitServiceMock) ListForUser(_ context.Context, userID int64, filter models.UnitFilter) ([]models.UnitItem, error) {
	m.lastUser, m.lastFilter = userID, filter
	return []models.UnitItem{{Unit: models.Unit{ID: 1, Code: "CSC201"}, IsFavorite: true}}, nil
}

func (m *unitServiceMock) GetView(_ context.Context, userID, id int64) (*models.UnitView, error) {
	return &models.UnitView{Unit: models.Unit{ID: id}}, nil
}

func (m *unitServiceMock) Create(_ context.Context, req models.CreateUnitRequest) (*models.Unit, error) {
	return &models.Unit{ID: 2, Code: req.Code}, nil
}

func (m *unitServiceMock) CreateLecturer(_ context.Context, req models.CreateLecturerRequest) (*models.Lecturer, error) {
	return &models.Lecturer{ID: 1, FullName: req.FullName}, nil
}

func (m *unitServiceMock) AssignLecturer(context.Context, int64, models.AssignLecturerRequest) error {
	return nil
}

type favoriteServiceMock struct {
	favorites map[int64]bool
}

func (m *favoriteServiceMock) Add(_ context.Context, userID, unitID int64) error {
	m.favorites[unitID] = true
	return nil
}

func (m *favoriteServiceMock) Remove(_ context.Context, userID, unitID int64) error {
	delete(m.favorites, unitID)
	return nil
}

func (m *favoriteServiceMock) ListUnits(context.Context, int64) ([]models.FavoriteUnit, error) {
	return []models.FavoriteUnit{}, nil
}

func newUnitRouter(units *unitServiceMock, favorites *favoriteServiceMock, papers *paperServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewUnitHandler(units, favorites, papers)
	r := gin.New()
	r.Use(withUser(5))
	r.GET("/units", h.List)
	r.GET("/units/:id/papers", h.Papers)
	r.POST("/units/:id/favorite", h.AddFavorite)
	r.DELETE("/units/:id/favorite", h.RemoveFavorite)
	return r
}

func TestUnitHandlerList(t *testing.T) {
	units := &unitServiceMock{}
	r := newUnitRouter(units, &favoriteServiceMock{favorites: map[int64]bool{}}, &paperServiceMock{})

	req, _ := http.NewRequest(http.MethodGet, "/units?up_to_year=3&q=data", nil)
	resp := performRequest(r, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(5), units.lastUser)
	assert.Equal(t, 3, units.lastFilter.UpToYear)
	assert.Equal(t, "data", units.lastFilter.Search)
	assert.Contains(t, resp.Body.String(), `"is_favorite":true`)

	req, _ = http.NewRequest(http.MethodGet, "/units?year=2&up_to_year=3", nil)
	assert.Equal(t, http.StatusBadRequest, performRequest(r, req).Code)
}

func TestUnitHandlerFavoriteRoundTrip(t *testing.T) {
	favorites := &favoriteServiceMock{favorites: map[int64]bool{}}
	r := newUnitRouter(&unitServiceMock{}, favorites, &paperServiceMock{})

	req, _ := http.NewRequest(http.MethodPost, "/units/3/favorite", nil)
	resp := performRequest(r, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"is_favorite":true`)
	assert.True(t, favorites.favorites[3])

	req, _ = http.NewRequest(http.MethodDelete, "/units/3/favorite", nil)
	require.Equal(t, http.StatusOK, performRequest(r, req).Code)
	assert.Empty(t, favorites.favorites)
}

func TestUnitHandlerPapersScopesUnit(t *testing.T) {
	papers := &paperServiceMock{}
	r := newUnitRouter(&unitServiceMock{}, &favoriteServiceMock{}, papers)

	req, _ := http.NewRequest(http.MethodGet, "/units/7/papers?type=CAT%201", nil)
	require.Equal(t, http.StatusOK, performRequest(r, req).Code)
	assert.Equal(t, int64(7), papers.lastFilter.UnitID)
	assert.Equal(t, models.PaperTypeCAT1, papers.lastFilter.PaperType)
}

var _ paperLister = (*service.PaperService)(nil)
