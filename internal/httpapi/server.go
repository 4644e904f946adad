package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rclong1221/sploot-media-clustering/internal/logger"
	"github.com/rclong1221/sploot-media-clustering/internal/metrics"
)

// Config controls the internal API's listener and timeouts.
type Config struct {
	Host            string
	Port            int
	InternalToken   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the internal HTTP API: enqueue, read, invalidate, health.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
	shutdownTO time.Duration
}

// NewServer builds a gin engine with the standard middleware chain and
// registers every route, ready to Start. Every /internal route requires
// the shared-secret token, including dependency health checks; only the
// bare /healthz liveness probe is exempt.
func NewServer(cfg Config, handlers *Handlers, checks map[string]HealthChecker, log logger.Logger, m *metrics.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(RecoveryMiddleware(log), RequestIDMiddleware(), LoggerMiddleware(log), MetricsMiddleware(m))

	RegisterLivenessRoute(engine)

	internal := engine.Group("/internal")
	internal.Use(AuthMiddleware(cfg.InternalToken, m))
	internal.POST("/cluster-jobs", handlers.EnqueueJob)
	internal.GET("/pets/:pet_id/clusters", handlers.GetCluster)
	internal.POST("/pets/:pet_id/invalidate", handlers.InvalidateCluster)
	RegisterHealthChecks(internal, checks)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log:        log,
		shutdownTO: cfg.ShutdownTimeout,
	}
}

// Start listens and serves until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("http server starting", logger.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: listen and serve: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTO)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
