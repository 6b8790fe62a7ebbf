package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/exoplanet-classifier/internal/infra/config"
)

// RelayPath is where the relay endpoint is mounted.
const RelayPath = "/api/proxy"

// NewRouter wires up the HTTP handlers and returns a configured server.
// relay may be nil when the relay endpoint is disabled.
func NewRouter(cfg *config.Config, handler *Handler, relay *RelayHandler, gatherer prometheus.Gatherer, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		errorHandlingMiddleware(logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if relay != nil {
		router.Any(RelayPath, relay.Handle)
	}

	api := router.Group("/api/v1", corsMiddleware(cfg.HTTP.AllowedOrigins))
	{
		api.OPTIONS("/*path", func(c *gin.Context) {})

		api.POST("/classify", handler.Classify)
		api.POST("/validate", handler.Validate)
		api.GET("/parameters", handler.Parameters)
		api.GET("/history", handler.History)
		api.POST("/history/similar", handler.Similar)
		api.POST("/exports/single", handler.ExportSingle)

		api.POST("/batches", handler.SubmitBatch)
		api.POST("/batches/jobs", handler.EnqueueBatch)
		api.GET("/batches/jobs/:id", handler.BatchJob)
		api.GET("/batches/jobs/:id/export", handler.ExportBatch)

		api.GET("/backend/status", handler.BackendStatus)
		api.POST("/backend/warmup", handler.WarmUp)
		api.GET("/backend/model", handler.ModelInfo)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
