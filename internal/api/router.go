package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"talenthub/internal/api/middleware"
	"talenthub/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎并挂载基础中间件与探活端点。
func NewRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
