package handler

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/response"
	"github.com/noah-isme/somashare-api/pkg/storage"
)

// FileHandler serves blobs of the filesystem store behind signed tokens.
type FileHandler struct {
	files *storage.FileStorage
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(files *storage.FileStorage) *FileHandler {
	return &FileHandler{files: files}
}

// Serve godoc
// @Summary Download a stored file
// @Tags Files
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	key, err := h.files.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link"))
		return
	}
	file, err := h.files.Open(key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		response.Error(c, appErrors.Internal(err, "failed to open file"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat file"))
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `inline; filename="`+filepath.Base(key)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
