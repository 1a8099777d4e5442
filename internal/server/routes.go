package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/user/markhub/internal/logger"
)

// NewRouter wires the API routes. Handlers bind typed requests and
// delegate to the services behind them.
func NewRouter(h *Handlers, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	v1.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1.POST("/pages", h.SavePage)
	v1.POST("/pages/bulk", h.BulkImport)

	v1.POST("/sync", h.TriggerSync)
	v1.GET("/sync/status", h.SyncStatus)
	v1.PUT("/sync/settings", h.UpdateSyncSettings)

	v1.POST("/bookmarks/:id/retry", h.RetryBookmark)

	v1.POST("/import", h.ImportArchive)
	v1.GET("/export", h.ExportArchive)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("http request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
