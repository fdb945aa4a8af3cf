package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/somashare-api/internal/middleware"
	"github.com/noah-isme/somashare-api/internal/models"
)

// Handlers groups every HTTP handler of the API. Files is nil when blobs are
// served by an object store.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Units       *UnitHandler
	Papers      *PaperHandler
	Enrollments *EnrollmentHandler
	Screens     *ScreenHandler
	Files       *FileHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API under api. authn authenticates every route
// except signed file downloads.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, authn gin.HandlerFunc) {
	if h.Files != nil {
		api.GET("/files/:token", h.Files.Serve)
	}
	if h.Metrics != nil {
		api.GET("/system/metrics", h.Metrics.Status)
	}

	authed := api.Group("", authn)
	authed.POST("/auth/register", h.Auth.Register)

	user := authed.Group("", middleware.RequireProfile())
	moderator := user.Group("", middleware.RequireRoles(models.RoleModerator))

	user.GET("/me", h.Users.Me)
	user.PUT("/me", h.Users.UpdateMe)
	user.POST("/me/photo", h.Users.UploadPhoto)
	user.DELETE("/me/photo", h.Users.DeletePhoto)
	user.GET("/me/history/:kind", h.Users.History)
	user.DELETE("/me/history/:kind", h.Users.ClearHistory)
	user.GET("/me/history/:kind/export", h.Users.ExportHistory)
	user.POST("/me/verification", h.Users.IssueVerification)
	user.POST("/me/verification/confirm", h.Users.ConfirmVerification)

	user.GET("/units", h.Units.List)
	user.GET("/units/:id", h.Units.Get)
	user.GET("/units/:id/papers", h.Units.Papers)
	user.POST("/units/:id/favorite", h.Units.AddFavorite)
	user.DELETE("/units/:id/favorite", h.Units.RemoveFavorite)
	user.GET("/favorites", h.Units.Favorites)
	moderator.POST("/units", h.Units.Create)
	moderator.POST("/units/:id/lecturers", h.Units.AssignLecturer)
	moderator.POST("/lecturers", h.Units.CreateLecturer)

	user.GET("/enrollments", h.Enrollments.List)
	user.POST("/enrollments", h.Enrollments.Create)
	user.PATCH("/enrollments/:id", h.Enrollments.UpdateStatus)

	user.GET("/papers", h.Papers.List)
	user.POST("/papers", h.Papers.Upload)
	user.GET("/papers/:id", h.Papers.Get)
	user.POST("/papers/:id/views", h.Papers.RecordView)
	user.GET("/papers/:id/download", h.Papers.Download)
	user.PUT("/papers/:id/rating", h.Papers.Rate)
	user.POST("/ratings/:id/helpful", h.Papers.Helpful)
	moderator.PATCH("/papers/:id/verification", h.Papers.SetVerification)

	user.GET("/ws/screens/:screen", h.Screens.Serve)
}
