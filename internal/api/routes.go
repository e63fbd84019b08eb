package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up the API routes. Metrics from gatherer are served on
// /metrics when it is not nil.
func SetupRoutes(handler *Handler, gatherer prometheus.Gatherer, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger))

	// Health check
	router.GET("/health", handler.HealthCheck)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		mirrors := v1.Group("/mirrors")
		{
			mirrors.GET("", handler.ListMirrors)
			mirrors.GET("/:name", handler.GetMirror)
		}

		runs := v1.Group("/runs")
		{
			runs.GET("", handler.ListRuns)
			runs.POST("", handler.TriggerRun)
		}

		v1.GET("/summary", handler.GetSummary)
	}

	return router
}
