package api

import (
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/handlers"
	"github.com/charlesng35/hrmatrix/internal/middleware"
	"github.com/charlesng35/hrmatrix/internal/permissions"
)

func registerCVRoutes(protected *gin.RouterGroup, checker *permissions.Checker, handler *handlers.CVHandler) {
	cvs := protected.Group("/cv")
	{
		cvs.GET("", middleware.RequirePermission(checker, permissions.CVView), handler.List)
		cvs.POST("/upload", middleware.RequirePermission(checker, permissions.CVUpload), handler.Upload)
		cvs.GET("/:id", middleware.RequirePermission(checker, permissions.CVView), handler.Get)
		cvs.GET("/:id/file", middleware.RequirePermission(checker, permissions.CVView), handler.File)
		cvs.PATCH("/:id/status", middleware.RequirePermission(checker, permissions.CVStatus), handler.UpdateStatus)
		cvs.POST("/:id/review", middleware.RequirePermission(checker, permissions.CVReview), handler.Review)
	}
}

// registerUploadRoutes serves stored CV files under their public path, still tenant scoped.
func registerUploadRoutes(r *gin.Engine, publicPath string, requireAuth gin.HandlerFunc, checker *permissions.Checker, handler *handlers.CVHandler) {
	publicPath = path.Clean("/" + strings.Trim(strings.TrimSpace(publicPath), "/"))
	if publicPath == "/" || strings.HasPrefix(publicPath, "/api") {
		return
	}

	r.GET(publicPath+"/*name", requireAuth, middleware.RequirePermission(checker, permissions.CVView), handler.StoredFile)
}
