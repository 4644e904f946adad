// Package httpapi is the internal-only HTTP surface: enqueue clustering
// jobs, read or invalidate cached results, and report health, all behind
// a shared-secret header, the way the service's gin surfaces are wired.
package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rclong1221/sploot-media-clustering/internal/logger"
	"github.com/rclong1221/sploot-media-clustering/internal/metrics"
)

// TokenHeader is the header carrying the shared internal auth token.
const TokenHeader = "X-Internal-Token"

// AuthMiddleware rejects requests whose token header doesn't match token,
// comparing in constant time so timing can't leak the secret. A nil m
// skips metrics, for tests that don't wire a registry.
func AuthMiddleware(token string, m *metrics.Metrics) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(TokenHeader))
		if len(got) != len(want) || subtle.ConstantTimeCompare(got, want) != 1 {
			if m != nil {
				m.AuthFailuresTotal.Inc()
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid internal token"})
			return
		}
		c.Next()
	}
}

// MetricsMiddleware records request count and latency per route.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(route, statusClass(c.Writer.Status())).Inc()
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// RequestIDMiddleware assigns a request id to every request that doesn't
// already carry one, and echoes it back in the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// LoggerMiddleware logs one structured line per request, including the
// pet and job ids when a handler has resolved them.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get("request_id")
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.Any("request_id", requestID),
		}
		if petID := c.GetString("pet_id"); petID != "" {
			fields = append(fields, logger.String("pet_id", petID))
		}
		if jobID := c.GetString("job_id"); jobID != "" {
			fields = append(fields, logger.String("job_id", jobID))
		}
		log.Info("request", fields...)
	}
}

// RecoveryMiddleware converts a panic into a 500 instead of crashing the
// process, logging the recovered value.
func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", logger.Any("panic", r), logger.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
