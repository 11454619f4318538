package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/top3hunter/recommend-service/pkg/middleware"
)

// RegisterRoutes mounts the public and admin API on the router.
func RegisterRoutes(r *gin.Engine, recommend *RecommendHandler, admin *AdminHandler, auth *middleware.AuthMiddleware) {
	r.GET("/health", Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/search", recommend.Recommend)
		v1.POST("/admin/login", admin.Login)

		protected := v1.Group("/admin", auth.RequireAuth())
		{
			protected.GET("/config", admin.ListConfig)
			protected.GET("/config/groups/:group", admin.ListConfigGroup)
			protected.PUT("/config/:key", admin.UpdateConfig)
			protected.POST("/config/batch", admin.BatchUpdateConfig)
			protected.DELETE("/config/:key", admin.DeleteConfig)
			protected.POST("/cache/invalidate", admin.InvalidateCache)
		}
	}
}
