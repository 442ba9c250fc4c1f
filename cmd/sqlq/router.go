package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"sqlq/executor"
	"sqlq/shared/logger"
)

// status is what the HTTP endpoints report on.
type status interface {
	Ping(ctx context.Context) error
	IsLoaded() bool
	Stats() executor.Stats
}

// newRouter builds the status endpoints. Each setup function runs before
// the routes are added so its middleware covers them.
func newRouter(s status, setup ...func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())
	for _, fn := range setup {
		fn(r)
	}

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.Ping(ctx); err != nil {
			logger.Log.Warn("Health check failed", logger.Err(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": err.Error(),
			})
			return
		}
		if !s.IsLoaded() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "starting",
				"message": "Compound tables are still being created.",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "The engine is running.",
		})
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Stats())
	})
	return r
}

// requestLogger logs each request once it completes, with the trace id when
// a span is active.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.String("remote_addr", c.ClientIP()),
			logger.Duration("duration", time.Since(start)),
			logger.Int("response_size", c.Writer.Size()),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, logger.String("trace_id", sc.TraceID().String()))
		}
		logger.Log.Debug("HTTP Response", fields...)
	}
}
