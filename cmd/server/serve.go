package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rclong1221/sploot-media-clustering/internal/cachestore"
	"github.com/rclong1221/sploot-media-clustering/internal/config"
	"github.com/rclong1221/sploot-media-clustering/internal/httpapi"
	"github.com/rclong1221/sploot-media-clustering/internal/logger"
	"github.com/rclong1221/sploot-media-clustering/internal/metrics"
	"github.com/rclong1221/sploot-media-clustering/internal/queue"
	"github.com/rclong1221/sploot-media-clustering/internal/redisclient"
	"github.com/rclong1221/sploot-media-clustering/internal/strategy"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
	"github.com/rclong1221/sploot-media-clustering/internal/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, worker pool, and metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("serve: load config: %w", err)
	}

	log := logger.Must(logger.Config{Level: cfg.LogLevel, Development: cfg.Environment == "local"})
	defer func() { _ = log.Sync() }()

	log.Info("starting", logger.String("app", cfg.AppName), logger.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("serve: connect redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	streamClient := streamclient.New(rdb)
	if err := streamClient.EnsureGroup(ctx, cfg.Stream.StreamKey, cfg.Stream.ConsumerGroup); err != nil {
		return fmt.Errorf("serve: ensure consumer group: %w", err)
	}

	cache := cachestore.New(rdb, cfg.Cache.Namespace)
	attempts := queue.NewAttemptsTracker(rdb, cfg.Cache.Namespace, cfg.Stream.RetryIdle*time.Duration(cfg.Stream.MaxAttempts+1))
	producer := queue.NewProducer(streamClient, cfg.Stream.StreamKey, cfg.Stream.MaxLen, cfg.Stream.ApproximateTrim)
	strat := strategy.New()

	pool, err := worker.NewPool(
		ctx, workerConfig(cfg), streamClient, attempts, cache, strat,
		cfg.Stream.StreamKey, cfg.Stream.DeadLetterStream, cfg.Stream.ConsumerGroup, cfg.Stream.WorkerConsumerName,
		cfg.Stream.ReadCount, cfg.Stream.ReadTimeout, cfg.Stream.RetryIdle, cfg.Cache.TTL,
		cfg.Cache.MaxClusterSize, log, m,
	)
	if err != nil {
		return fmt.Errorf("serve: build worker pool: %w", err)
	}
	pool.Start(ctx)

	healthMonitor := worker.NewHealthMonitor(pool, streamClient, cfg.Stream.StreamKey, cfg.Stream.ConsumerGroup, cfg.Redis.HealthcheckInterval, log)
	go healthMonitor.Run(ctx)

	httpServer := httpapi.NewServer(
		httpapi.Config{
			Host:            cfg.HTTP.Host,
			Port:            cfg.HTTP.Port,
			InternalToken:   cfg.HTTP.InternalToken,
			ReadTimeout:     cfg.HTTP.ReadTimeout,
			WriteTimeout:    cfg.HTTP.WriteTimeout,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		},
		&httpapi.Handlers{Producer: producer, Cache: cache, Metrics: m},
		map[string]httpapi.HealthChecker{"redis": httpapi.RedisHealthChecker(streamClient, cfg.Stream.StreamKey, cfg.Stream.ConsumerGroup)},
		log,
		m,
	)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port), registry, log)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error("metrics server failed", logger.Error(err))
			}
		}()
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error("http server failed", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx := context.Background()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Error(err))
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("worker pool did not drain cleanly", logger.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx, 5*time.Second); err != nil {
			log.Error("metrics server shutdown failed", logger.Error(err))
		}
	}

	log.Info("shutdown complete")
	return nil
}

func workerConfig(cfg *config.Config) worker.Config {
	return worker.Config{
		PoolSize:            cfg.Worker.PoolSize,
		JobTimeout:          cfg.Stream.ReadTimeout + cfg.Stream.RetryIdle,
		DrainTimeout:        cfg.Worker.DrainTimeout,
		ReclaimEveryNTicks:  cfg.Worker.ReclaimEveryNTicks,
		MaxPendingPerWorker: cfg.Worker.MaxPendingPerWorker,
		ReclaimBatchSize:    cfg.Worker.ReclaimBatchSize,
		MaxAttempts:         cfg.Stream.MaxAttempts,
	}
}
