package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/internal/service"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/response"
)

type paperService interface {
	List(ctx context.Context, filter models.PaperFilter) (*service.PaperList, error)
	Get(ctx context.Context, id int64) (*models.PaperWithRating, error)
	SetVerified(ctx context.Context, id int64, verified bool) error
}

type activityService interface {
	RecordView(ctx context.Context, userID, paperID int64) error
	RecordDownload(ctx context.Context, userID, paperID int64) (*models.DownloadLink, error)
	RatePaper(ctx context.Context, userID, paperID int64, req models.RatePaperRequest) (*models.PaperRating, error)
	MarkHelpful(ctx context.Context, ratingID int64) error
}

type uploadService interface {
	Upload(ctx context.Context, userID int64, req models.UploadPaperRequest, content io.Reader) (*models.UploadResult, error)
	MaxFileBytes() int64
}

// multipartOverhead is the allowance for form fields on top of the file limit.
const multipartOverhead = 1 << 20

// PaperHandler serves papers and the activity recorded on them.
type PaperHandler struct {
	papers   paperService
	activity activityService
	uploads  uploadService
}

// NewPaperHandler constructs PaperHandler.
func NewPaperHandler(papers paperService, activity activityService, uploads uploadService) *PaperHandler {
	return &PaperHandler{papers: papers, activity: activity, uploads: uploads}
}

// List godoc
// @Summary List papers
// @Tags Papers
// @Produce json
// @Param unit_id query int false "Unit"
// @Param year query int false "Year of study"
// @Param semester query int false "Semester"
// @Param type query string false "Paper type"
// @Param paper_year query int false "Paper year"
// @Param q query string false "Name or unit search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "upload_date, paper_year, download_count or name"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers [get]
func (h *PaperHandler) List(c *gin.Context) {
	var filter models.PaperFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	list, err := h.papers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Items, &list.Pagination)
}

// Get godoc
// @Summary Paper detail with rating aggregate
// @Tags Papers
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id} [get]
func (h *PaperHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	paper, err := h.papers.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Upload godoc
// @Summary Upload a past paper
// @Tags Papers
// @Accept mpfd
// @Produce json
// @Param file formData file true "Paper PDF"
// @Param name formData string true "Paper name"
// @Param unit_code formData string true "Unit code"
// @Param unit_name formData string true "Unit name"
// @Param year_of_study formData int true "Year of study"
// @Param semester formData int true "Semester"
// @Param paper_year formData int true "Paper year"
// @Param paper_type formData string true "Paper type"
// @Param department formData string false "Department"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Security BearerAuth
// @Router /papers [post]
func (h *PaperHandler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if max := h.uploads.MaxFileBytes(); max > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max+multipartOverhead)
	}

	var req models.UploadPaperRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Please fill in all required fields"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	req.FileName = header.Filename
	req.ContentType = header.Header.Get("Content-Type")
	req.FileSize = header.Size

	result, err := h.uploads.Upload(c.Request.Context(), userID, req, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RecordView godoc
// @Summary Record that the caller opened a paper
// @Tags Papers
// @Param id path int true "Paper ID"
// @Success 204
// @Security BearerAuth
// @Router /papers/{id}/views [post]
func (h *PaperHandler) RecordView(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.activity.RecordView(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Record a download and return the file link
// @Tags Papers
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id}/download [get]
func (h *PaperHandler) Download(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	link, err := h.activity.RecordDownload(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Rate godoc
// @Summary Rate a paper
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path int true "Paper ID"
// @Param payload body models.RatePaperRequest true "Rating"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id}/rating [put]
func (h *PaperHandler) Rate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.RatePaperRequest
	if !bindJSON(c, &req) {
		return
	}
	rating, err := h.activity.RatePaper(c.Request.Context(), userID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// Helpful godoc
// @Summary Mark a rating helpful
// @Tags Papers
// @Param id path int true "Rating ID"
// @Success 204
// @Security BearerAuth
// @Router /ratings/{id}/helpful [post]
func (h *PaperHandler) Helpful(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.activity.MarkHelpful(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type verificationPayload struct {
	Verified *bool `json:"verified"`
}

// SetVerification godoc
// @Summary Set the moderator verification flag
// @Tags Papers
// @Accept json
// @Param id path int true "Paper ID"
// @Param payload body verificationPayload true "Flag"
// @Success 204
// @Security BearerAuth
// @Router /papers/{id}/verification [patch]
func (h *PaperHandler) SetVerification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var payload verificationPayload
	if !bindJSON(c, &payload) {
		return
	}
	if payload.Verified == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "verified is required"))
		return
	}
	if err := h.papers.SetVerified(c.Request.Context(), id, *payload.Verified); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
