package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, handler *handlers.HealthHandler) {
	for _, router := range []gin.IRouter{r, r.Group("/api")} {
		router.GET("/health", handler.Overall)
		router.GET("/health/live", handler.Live)
		router.GET("/health/ready", handler.Ready)
	}
}
