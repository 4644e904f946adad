// Package worker runs the consumer-group worker pool: each worker reads
// jobs, runs the clustering strategy, caches the result, and acknowledges
// or dead-letters the delivery.
package worker

import (
	"fmt"
	"time"
)

// Config controls the pool's shape, timeouts, and reclaim cadence.
type Config struct {
	PoolSize            int
	JobTimeout          time.Duration
	DrainTimeout        time.Duration
	ReclaimEveryNTicks  int
	MaxPendingPerWorker int64
	ReclaimBatchSize    int64
	MaxAttempts         int
}

// Validate checks the configuration is internally consistent before the
// pool starts.
func (c Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("worker: PoolSize must be positive, got %d", c.PoolSize)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("worker: JobTimeout must be positive, got %s", c.JobTimeout)
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("worker: DrainTimeout must be positive, got %s", c.DrainTimeout)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("worker: MaxAttempts must be positive, got %d", c.MaxAttempts)
	}
	return nil
}
