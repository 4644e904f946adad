package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rclong1221/sploot-media-clustering/internal/logger"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
)

// Status summarizes pool health for a single point in time.
type Status struct {
	PoolState   PoolState
	WorkerCount int
	BusyWorkers int
	SuccessRate float64
}

// HealthMonitor periodically samples the pool and the underlying stream,
// publishing gauges and logging when the pool looks unhealthy.
type HealthMonitor struct {
	pool         *Pool
	streamClient streamclient.Client
	stream       string
	group        string
	interval     time.Duration
	log          logger.Logger
}

// NewHealthMonitor builds a HealthMonitor for pool.
func NewHealthMonitor(pool *Pool, streamClient streamclient.Client, stream, group string, interval time.Duration, log logger.Logger) *HealthMonitor {
	return &HealthMonitor{pool: pool, streamClient: streamClient, stream: stream, group: group, interval: interval, log: log}
}

// Run ticks until ctx is done, sampling pool and queue health each
// interval.
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sample(ctx)
		}
	}
}

func (h *HealthMonitor) sample(ctx context.Context) {
	status := h.Check()
	h.pool.metrics.WorkerBusy.Set(float64(status.BusyWorkers))

	if depth, err := h.streamClient.Len(ctx, h.stream); err == nil {
		h.pool.metrics.QueueDepth.Set(float64(depth))
	}

	if pending, _, err := h.streamClient.PendingSummary(ctx, h.stream, h.group); err == nil {
		h.pool.metrics.PendingDepth.Set(float64(pending))
	}

	if status.SuccessRate < 0.5 && status.WorkerCount > 0 {
		h.log.Warn("worker pool success rate degraded", logger.Float64("success_rate", status.SuccessRate))
	}
}

// Check computes the current Status without side effects.
func (h *HealthMonitor) Check() Status {
	busy := 0
	var processed, succeeded int64
	for _, w := range h.pool.workers {
		if w.State() == WorkerBusy {
			busy++
		}
		processed += atomic.LoadInt64(&w.stats.Processed)
		succeeded += atomic.LoadInt64(&w.stats.Succeeded)
	}

	rate := 1.0
	if processed > 0 {
		rate = float64(succeeded) / float64(processed)
	}

	return Status{
		PoolState:   PoolState(h.pool.state.Load()),
		WorkerCount: len(h.pool.workers),
		BusyWorkers: busy,
		SuccessRate: rate,
	}
}
