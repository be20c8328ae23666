package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/venuelens/social-indexer/internal/api/middleware"
	"github.com/venuelens/social-indexer/internal/config"
)

// SetupRoutes registers the REST routes. Everything except the health
// probe sits behind authentication.
func SetupRoutes(router *gin.Engine, handler *Handler, authCfg config.AuthConfig) {
	router.GET("/healthz", handler.Healthz)

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(authCfg))
	{
		v1.POST("/entities", handler.CreateEntity)
		v1.GET("/entities", handler.ListEntities)
		v1.GET("/entities/:id", handler.GetEntity)

		v1.POST("/profiles", handler.CreateProfile)
		v1.GET("/profiles/:id", handler.GetProfile)
		v1.PATCH("/profiles/:id/active", handler.SetProfileActive)
		v1.GET("/profiles/:id/records", handler.ListProfileRecords)
		v1.POST("/profiles/:id/refresh", handler.RefreshProfile)

		v1.GET("/fetch-logs", handler.ListFetchLogs)
		v1.GET("/cycles/:date/stats", handler.GetCycleStats)
	}
}
