package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rclong1221/sploot-media-clustering/internal/logger"
)

// Server exposes /metrics on its own listener, separate from the internal
// API surface, so scraping it never competes with request traffic.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// NewServer builds a metrics Server bound to addr, serving reg's registry.
func NewServer(addr string, reg *prometheus.Registry, log logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		log: log,
	}
}

// Start listens and serves until the server is shut down. It is meant to
// run in its own goroutine.
func (s *Server) Start() error {
	s.log.Info("metrics server starting", logger.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics: listen and serve: %w", err)
	}
	return nil
}

// Shutdown stops the metrics server gracefully within timeout.
func (s *Server) Shutdown(ctx context.Context, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
