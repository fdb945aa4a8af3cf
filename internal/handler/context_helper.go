package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/somashare-api/internal/middleware"
	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// currentUserID writes 401 and returns false when the caller has no profile.
func currentUserID(c *gin.Context) (int64, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == 0 {
		response.Error(c, appErrors.ErrUnauthorized)
		return 0, false
	}
	return claims.UserID, true
}

// pathID parses a positive integer path parameter, writing 400 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return false
	}
	return true
}

func historyKind(c *gin.Context) (models.EventKind, bool) {
	switch c.Param("kind") {
	case "views":
		return models.EventView, true
	case "downloads":
		return models.EventDownload, true
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown history"))
		return "", false
	}
}
