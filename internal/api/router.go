package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ai-post-manager/internal/config"
	"github.com/ai-post-manager/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	welcomeMessage  = "Welcome to the AI Post Manager!"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	preflightMaxAge = time.Hour
	healthTimeout   = 2 * time.Second
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(requestIDMiddleware())
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigin))

	postHandler := NewPostHandler(services, log)

	router.GET("/", home)

	// Health check
	router.GET("/health", healthCheck(services, log))
	router.GET("/metrics", metricsHandler(services, log))

	api := router.Group("/api")
	{
		api.GET("/posts", postHandler.ListPosts)
		api.POST("/posts", postHandler.CreatePost)
		api.POST("/generate_post", postHandler.GeneratePost)
		api.OPTIONS("/generate_post", preflight)
	}

	return router
}

func home(c *gin.Context) {
	c.String(http.StatusOK, welcomeMessage)
}

// healthCheck returns the health status, 503 when the store cannot be reached
func healthCheck(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := services.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().Format(time.RFC3339),
				"service":   "ai-post-manager",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "ai-post-manager",
		})
	}
}

// metricsHandler returns post counts by status
func metricsHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := services.Post.Stats(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to collect post stats")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect metrics"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"posts":     stats,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// preflight answers OPTIONS requests with an empty 200
func preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// requestIDMiddleware propagates X-Request-ID or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("request_id", c.GetString(requestIDKey)).
					Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
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
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("Request completed")
	}
}

// corsMiddleware allows the single configured browser origin.
// Preflight requests end here with an empty 200.
func corsMiddleware(origin string) gin.HandlerFunc {
	maxAge := strconv.Itoa(int(preflightMaxAge.Seconds()))
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
