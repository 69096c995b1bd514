package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/handlers"
	"github.com/charlesng35/hrmatrix/internal/middleware"
	"github.com/charlesng35/hrmatrix/internal/permissions"
)

func registerJobPostingRoutes(protected *gin.RouterGroup, checker *permissions.Checker, handler *handlers.JobPostingHandler) {
	postings := protected.Group("/job-postings")
	{
		postings.GET("", middleware.RequirePermission(checker, permissions.JobPostingView), handler.List)
		postings.POST("", middleware.RequirePermission(checker, permissions.JobPostingManage), handler.Create)
	}
}

func registerTeamRoutes(protected *gin.RouterGroup, checker *permissions.Checker, handler *handlers.UserHandler) {
	protected.GET("/team", middleware.RequirePermission(checker, permissions.TeamView), handler.Team)
	protected.GET("/users/:id", middleware.RequirePermission(checker, permissions.CVView), handler.Get)
}

func registerProfileRoutes(protected *gin.RouterGroup, checker *permissions.Checker, handler *handlers.ProfileHandler) {
	profile := protected.Group("/profile")
	{
		profile.GET("", handler.Get)
		profile.PUT("/update", middleware.RequirePermission(checker, permissions.ProfileUpdate), handler.Update)
		profile.POST("/update", middleware.RequirePermission(checker, permissions.ProfileUpdate), handler.Update)
	}
}

func registerAuditRoutes(protected *gin.RouterGroup, checker *permissions.Checker, handler *handlers.AuditHandler) {
	protected.GET("/audit", middleware.RequirePermission(checker, permissions.AuditView), handler.List)
}
