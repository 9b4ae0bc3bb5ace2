package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mattfreire/moviedb/internal/handler"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/movies", h.ListMovies)

	// ==================== 数据维护 ====================
	admin := r.Group("/admin")
	{
		admin.POST("/ingest", h.Ingest)
		admin.POST("/relink", h.Relink)
		admin.DELETE("/catalog", h.ClearCatalog)
	}
}
