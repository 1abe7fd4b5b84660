package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/service"
	"github.com/content-threads-api/internal/storage"
)

const requestIDHeader = "X-Request-Id"

// HealthChecker is a backing store that can report its reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the router serves
type Deps struct {
	Services *service.Services
	Store    storage.ObjectStore
	// Checks are pinged by /health, keyed by name
	Checks map[string]HealthChecker
}

// NewRouter creates and configures the Gin router
func NewRouter(deps Deps, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadSize

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	articleHandler := NewArticleHandler(deps.Services, cfg, log)
	commentHandler := NewCommentHandler(deps.Services, log)
	settingsHandler := NewSettingsHandler(deps.Services, log)
	statsHandler := NewStatsHandler(deps.Services, log)
	fileHandler := NewFileHandler(deps.Store, log)

	// Health check
	router.GET("/health", healthCheck(deps.Checks))
	router.GET("/metrics", metricsHandler(deps.Services))
	router.GET("/files/:id", fileHandler.Download)

	// API v1
	v1 := router.Group("/v1", authMiddleware(&cfg.Auth, log))
	{
		articles := v1.Group("/articles")
		{
			articles.POST("", articleHandler.Create)
			articles.GET("", articleHandler.List)
			articles.GET("/exists", articleHandler.ExistsByTitle)
			articles.GET("/uri/:uri", articleHandler.GetByURI)
			articles.PUT("/state", articleHandler.ChangeStatesBulk)
			articles.GET("/:id", articleHandler.GetOne)
			articles.PATCH("/:id", articleHandler.Update)
			articles.DELETE("/:id", articleHandler.Remove)
			articles.PUT("/:id/state", articleHandler.ChangeState)
			articles.PUT("/:id/images/:kind", articleHandler.SaveImage)
			articles.DELETE("/:id/images/:kind", articleHandler.RemoveImage)
		}

		comments := v1.Group("/comments")
		{
			comments.GET("", commentHandler.ListRoots)
			comments.GET("/:id", commentHandler.GetOne)
			comments.GET("/:id/answers", commentHandler.GetAnswers)
			comments.POST("/:id/answers", commentHandler.Answer)
			comments.PUT("/:id/read", commentHandler.MarkRead)
		}

		settings := v1.Group("/users/:id/comment-settings")
		{
			settings.GET("", settingsHandler.Get)
			settings.PUT("", settingsHandler.Save)
		}

		stats := v1.Group("/stats/comments", adminOnly(log))
		{
			stats.GET("", statsHandler.List)
			stats.POST("/rollup", statsHandler.Rollup)
			stats.GET("/runs/latest", statsHandler.LatestRun)
		}
	}

	return router
}

// healthCheck pings every backing store
func healthCheck(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check.HealthCheck(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    results,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "content-threads-api",
		})
	}
}

// metricsHandler reports the rollup scheduler state
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"rollup":    services.Scheduler.Snapshot(c.Request.Context()),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				status, name, description := apperr.Describe(fmt.Errorf("panic: %v", err))
				c.AbortWithStatusJSON(status, errorResponse{Code: status, Name: name, Description: description})
			}
		}()
		c.Next()
	}
}

// requestIDMiddleware propagates or assigns a request id
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+settingsTTLHeader+", "+requestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", settingsTTLHeader+", "+requestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
