package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/internal/service"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/response"
)

type unitService interface {
	ListForUser(ctx context.Context, userID int64, filter models.UnitFilter) ([]models.UnitItem, error)
	GetView(ctx context.Context, userID, id int64) (*models.UnitView, error)
	Create(ctx context.Context, req models.CreateUnitRequest) (*models.Unit, error)
	CreateLecturer(ctx context.Context, req models.CreateLecturerRequest) (*models.Lecturer, error)
	AssignLecturer(ctx context.Context, unitID int64, req models.AssignLecturerRequest) error
}

type favoriteService interface {
	Add(ctx context.Context, userID, unitID int64) error
	Remove(ctx context.Context, userID, unitID int64) error
	ListUnits(ctx context.Context, userID int64) ([]models.FavoriteUnit, error)
}

type paperLister interface {
	List(ctx context.Context, filter models.PaperFilter) (*service.PaperList, error)
}

// UnitHandler serves units, their papers and favorites.
type UnitHandler struct {
	units     unitService
	favorites favoriteService
	papers    paperLister
}

// NewUnitHandler constructs UnitHandler.
func NewUnitHandler(units unitService, favorites favoriteService, papers paperLister) *UnitHandler {
	return &UnitHandler{units: units, favorites: favorites, papers: papers}
}

// List godoc
// @Summary List units
// @Tags Units
// @Produce json
// @Param year query int false "Year of study"
// @Param semester query int false "Semester"
// @Param up_to_year query int false "All years up to and including"
// @Param department query string false "Department"
// @Param q query string false "Code or name search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /units [get]
func (h *UnitHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var filter models.UnitFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	if filter.Year != 0 && filter.UpToYear != 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year and up_to_year cannot be combined"))
		return
	}
	units, err := h.units.ListForUser(c.Request.Context(), userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// Get godoc
// @Summary Unit detail with lecturers
// @Tags Units
// @Produce json
// @Param id path int true "Unit ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /units/{id} [get]
func (h *UnitHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.units.GetView(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Papers godoc
// @Summary Papers of a unit
// @Tags Units
// @Produce json
// @Param id path int true "Unit ID"
// @Param type query string false "Paper type"
// @Param paper_year query int false "Paper year"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /units/{id}/papers [get]
func (h *UnitHandler) Papers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var filter models.PaperFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	filter.UnitID = id
	list, err := h.papers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Items, &list.Pagination)
}

// Create godoc
// @Summary Seed a unit
// @Tags Units
// @Accept json
// @Produce json
// @Param payload body models.CreateUnitRequest true "Unit"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /units [post]
func (h *UnitHandler) Create(c *gin.Context) {
	var req models.CreateUnitRequest
	if !bindJSON(c, &req) {
		return
	}
	unit, err := h.units.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, unit)
}

// CreateLecturer godoc
// @Summary Add a lecturer
// @Tags Units
// @Accept json
// @Produce json
// @Param payload body models.CreateLecturerRequest true "Lecturer"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /lecturers [post]
func (h *UnitHandler) CreateLecturer(c *gin.Context) {
	var req models.CreateLecturerRequest
	if !bindJSON(c, &req) {
		return
	}
	lecturer, err := h.units.CreateLecturer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecturer)
}

// AssignLecturer godoc
// @Summary Assign a lecturer to a unit
// @Tags Units
// @Accept json
// @Param id path int true "Unit ID"
// @Param payload body models.AssignLecturerRequest true "Assignment"
// @Success 204
// @Security BearerAuth
// @Router /units/{id}/lecturers [post]
func (h *UnitHandler) AssignLecturer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.AssignLecturerRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.units.AssignLecturer(c.Request.Context(), id, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddFavorite godoc
// @Summary Favorite a unit
// @Tags Favorites
// @Param id path int true "Unit ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /units/{id}/favorite [post]
func (h *UnitHandler) AddFavorite(c *gin.Context) {
	h.setFavorite(c, true)
}

// RemoveFavorite godoc
// @Summary Unfavorite a unit
// @Tags Favorites
// @Param id path int true "Unit ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /units/{id}/favorite [delete]
func (h *UnitHandler) RemoveFavorite(c *gin.Context) {
	h.setFavorite(c, false)
}

func (h *UnitHandler) setFavorite(c *gin.Context, favorite bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var err error
	if favorite {
		err = h.favorites.Add(c.Request.Context(), userID, id)
	} else {
		err = h.favorites.Remove(c.Request.Context(), userID, id)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.FavoriteStatus{UnitID: id, IsFavorite: favorite}, nil)
}

// Favorites godoc
// @Summary Favorite units
// @Tags Favorites
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites [get]
func (h *UnitHandler) Favorites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	units, err := h.favorites.ListUnits(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}
