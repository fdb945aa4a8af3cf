package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/response"
)

type registrar interface {
	Register(ctx context.Context, req models.RegisterUserRequest) (*models.User, error)
}

// AuthHandler creates profiles for identity provider subjects.
type AuthHandler struct {
	users registrar
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(users registrar) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register godoc
// @Summary Register the profile of the token subject
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.RegisterUserRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.UserID != 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "profile already registered"))
		return
	}

	var req models.RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ExternalID = claims.Subject
	if req.Email == "" {
		req.Email = claims.Email
	}
	if req.FullName == "" {
		req.FullName = claims.Name
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}
