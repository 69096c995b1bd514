package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/handlers"
)

func registerAuthRoutes(public, protected *gin.RouterGroup, handler *handlers.AuthHandler) {
	auth := public.Group("/auth")
	{
		auth.POST("/login", handler.Login)
		auth.POST("/signup", handler.Signup)
	}

	protected.GET("/auth/me", handler.Me)
}
