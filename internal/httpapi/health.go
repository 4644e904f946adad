package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
)

// HealthChecker reports whether a dependency is currently reachable.
type HealthChecker func(c *gin.Context) error

// RegisterLivenessRoute wires the bare liveness probe, the only internal
// endpoint allowed to skip the shared-secret token check.
func RegisterLivenessRoute(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterHealthChecks wires one GET /health/<name> route per named
// dependency check under r. Callers must mount r behind AuthMiddleware;
// unlike the liveness probe, dependency checks require the token.
func RegisterHealthChecks(r gin.IRouter, checks map[string]HealthChecker) {
	for name, check := range checks {
		name, check := name, check
		r.GET("/health/"+name, func(c *gin.Context) {
			if err := check(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}

// RedisHealthChecker pings the stream client's underlying Redis connection
// and verifies the worker consumer group is registered on the stream, so a
// broker that answers PING but lost its group state still reports down.
func RedisHealthChecker(client streamclient.Client, stream, group string) HealthChecker {
	return func(c *gin.Context) error {
		ctx := c.Request.Context()
		if err := client.Ping(ctx); err != nil {
			return err
		}
		exists, err := client.GroupExists(ctx, stream, group)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("consumer group %s missing on %s", group, stream)
		}
		return nil
	}
}
