package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/internal/service"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, req models.UpdateProfileRequest) (*models.User, error)
	UploadPhoto(ctx context.Context, id int64, photo service.PhotoUpload) (*models.User, error)
	DeletePhoto(ctx context.Context, id int64) error
}

type historyService interface {
	History(ctx context.Context, userID int64, kind models.EventKind, limit int) ([]models.HistoryItem, error)
	ClearHistory(ctx context.Context, userID int64, kind models.EventKind) (int64, error)
}

type historyExporter interface {
	History(ctx context.Context, userID int64, kind models.EventKind, format string) (*service.ExportFile, error)
}

type verifier interface {
	Issue(ctx context.Context, userID int64) (*models.VerificationChallenge, error)
	Verify(ctx context.Context, userID int64, req models.VerifyCodeRequest) error
}

// UserHandler serves the caller's profile, history and verification.
type UserHandler struct {
	users        profileService
	history      historyService
	exports      historyExporter
	verification verifier
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users profileService, history historyService, exports historyExporter, verification verifier) *UserHandler {
	return &UserHandler{users: users, history: history, exports: exports, verification: verification}
}

// Me godoc
// @Summary Current profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateMe godoc
// @Summary Update profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UploadPhoto godoc
// @Summary Upload profile photo
// @Tags Profile
// @Accept mpfd
// @Produce json
// @Param photo formData file true "Image"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/photo [post]
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	header, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "photo is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read photo"))
		return
	}
	defer file.Close()

	user, err := h.users.UploadPhoto(c.Request.Context(), userID, service.PhotoUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// DeletePhoto godoc
// @Summary Remove profile photo
// @Tags Profile
// @Success 204
// @Security BearerAuth
// @Router /me/photo [delete]
func (h *UserHandler) DeletePhoto(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.users.DeletePhoto(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Viewed or downloaded papers
// @Tags Profile
// @Produce json
// @Param kind path string true "views or downloads"
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/history/{kind} [get]
func (h *UserHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	kind, ok := historyKind(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.history.History(c.Request.Context(), userID, kind, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ClearHistory godoc
// @Summary Clear viewed or downloaded history
// @Tags Profile
// @Produce json
// @Param kind path string true "views or downloads"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/history/{kind} [delete]
func (h *UserHandler) ClearHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	kind, ok := historyKind(c)
	if !ok {
		return
	}
	removed, err := h.history.ClearHistory(c.Request.Context(), userID, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

// ExportHistory godoc
// @Summary Export history as CSV or PDF
// @Tags Profile
// @Produce application/octet-stream
// @Param kind path string true "views or downloads"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /me/history/{kind}/export [get]
func (h *UserHandler) ExportHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	kind, ok := historyKind(c)
	if !ok {
		return
	}
	file, err := h.exports.History(c.Request.Context(), userID, kind, c.DefaultQuery("format", service.FormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.FileName, file.ContentType, file.Data)
}

// IssueVerification godoc
// @Summary Send a verification code
// @Tags Profile
// @Produce json
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /me/verification [post]
func (h *UserHandler) IssueVerification(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	challenge, err := h.verification.Issue(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, challenge)
}

// ConfirmVerification godoc
// @Summary Confirm a verification code
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.VerifyCodeRequest true "Code"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Security BearerAuth
// @Router /me/verification/confirm [post]
func (h *UserHandler) ConfirmVerification(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.verification.Verify(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"verified": true}, nil)
}
