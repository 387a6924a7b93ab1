// Package webapp exposes a read-mostly HTTP facade over the snapshot store
// for dashboards and operational tooling.
package webapp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guildgate/guildgate-bot/internal/health"
	"github.com/guildgate/guildgate-bot/internal/storage"
	"github.com/guildgate/guildgate-bot/pkg/config"
	"github.com/guildgate/guildgate-bot/pkg/graceful"
	"github.com/guildgate/guildgate-bot/pkg/logger"
)

// NewRouter assembles the gin engine with all facade routes.
func NewRouter(store *storage.Store, checker *health.Checker, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(correlationMiddleware())
	router.Use(requestLogMiddleware(log))

	h := &Handler{Store: store}

	api := router.Group("/api")
	{
		api.GET("/applications/pending", h.PendingApplications)
		api.GET("/applications/insights", h.Insights)
		api.GET("/applications/:id/status", h.ApplicationStatus)
		api.GET("/admins", h.Admins)
		api.POST("/admins", h.AddAdmin)
		api.DELETE("/admins/:id", h.RemoveAdmin)
		api.GET("/xp", h.Leaderboard)
		api.GET("/cups", h.Cups)
	}

	router.GET("/health", healthHandler(checker))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// NewServer wraps the facade router in the graceful HTTP server.
func NewServer(cfg config.WebappConfig, store *storage.Store, checker *health.Checker, log *slog.Logger) *graceful.Server {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewRouter(store, checker, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return graceful.NewServer(log, srv, cfg.ShutdownTimeout)
}

func healthHandler(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		results := checker.Check(c.Request.Context())
		status := http.StatusOK
		if !health.Healthy(results) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, results)
	}
}

func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Request = c.Request.WithContext(logger.WithCorrelationID(c.Request.Context(), correlationID))
		c.Header("X-Correlation-ID", correlationID)
		c.Next()
	}
}

func requestLogMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("correlation_id", logger.CorrelationIDFromContext(c.Request.Context())),
		)
	}
}
