package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/handlers"
	"github.com/charlesng35/hrmatrix/internal/middleware"
	"github.com/charlesng35/hrmatrix/internal/permissions"
)

// The token is the credential for validate and accept, so both stay outside the auth group.
func registerInviteRoutes(public, protected *gin.RouterGroup, checker *permissions.Checker, handler *handlers.InviteHandler) {
	public.GET("/invite/validate", handler.Validate)
	public.POST("/invite/accept", handler.Accept)

	invites := protected.Group("/invite")
	invites.Use(middleware.RequirePermission(checker, permissions.InviteCreate))
	{
		invites.GET("", handler.List)
		invites.POST("", handler.Create)
	}
}
