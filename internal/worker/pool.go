package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rclong1221/sploot-media-clustering/internal/cachestore"
	"github.com/rclong1221/sploot-media-clustering/internal/logger"
	"github.com/rclong1221/sploot-media-clustering/internal/metrics"
	"github.com/rclong1221/sploot-media-clustering/internal/queue"
	"github.com/rclong1221/sploot-media-clustering/internal/strategy"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
)

// PoolState is the atomic lifecycle state of the whole pool.
type PoolState int32

const (
	PoolStarting PoolState = iota
	PoolRunning
	PoolDraining
	PoolStopped
)

// Pool owns a fixed number of Workers, each with its own consumer group
// identity, and drives the read/reclaim/process loop for all of them.
type Pool struct {
	cfg     Config
	workers []*Worker
	log     logger.Logger
	metrics *metrics.Metrics

	state  atomic.Int32
	tick   int64
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool builds the consumers and workers for cfg.PoolSize workers sharing
// streamClient and baseConsumerName, each with a unique suffix.
func NewPool(
	ctx context.Context,
	cfg Config,
	streamClient streamclient.Client,
	attempts queue.AttemptsTracker,
	cache cachestore.Store,
	strat strategy.Strategy,
	stream, deadLetterStream, group, baseConsumerName string,
	readCount int64,
	readBlock, retryIdle, cacheTTL time.Duration,
	maxClusterSize int,
	log logger.Logger,
	m *metrics.Metrics,
) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool := &Pool{cfg: cfg, log: log, metrics: m}
	pool.metrics.WorkerPoolSize.Set(float64(cfg.PoolSize))

	for i := 0; i < cfg.PoolSize; i++ {
		consumerName := fmt.Sprintf("%s-%d", baseConsumerName, i)
		consumer, err := queue.NewConsumer(ctx, streamClient, attempts, queue.Config{
			Stream:    stream,
			Group:     group,
			Consumer:  consumerName,
			ReadCount: readCount,
			ReadBlock: readBlock,
			RetryIdle: retryIdle,
		})
		if err != nil {
			return nil, fmt.Errorf("worker: build consumer %s: %w", consumerName, err)
		}

		w := NewWorker(consumerName, consumer, cache, strat, deadLetterStream, cfg.MaxAttempts, maxClusterSize, cacheTTL, cfg.JobTimeout, log, m)
		pool.workers = append(pool.workers, w)
	}

	return pool, nil
}

// Start launches every worker's loop goroutine. The HealthMonitor is not
// started here; its Run is launched separately.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state.Store(int32(PoolRunning))

	for _, w := range p.workers {
		p.wg.Add(1)
		go p.run(runCtx, w)
	}
}

// Broker-failure backoff bounds for the read loop.
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

func (p *Pool) run(ctx context.Context, w *Worker) {
	defer p.wg.Done()

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			w.state.Store(int32(WorkerStopped))
			return
		default:
		}

		tick := atomic.AddInt64(&p.tick, 1)
		if p.cfg.ReclaimEveryNTicks > 0 && tick%int64(p.cfg.ReclaimEveryNTicks) == 0 {
			p.reclaim(ctx, w)
		}

		if p.pendingTooDeep(ctx, w) {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		jobs, err := w.consumer.ReadNew(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.log.Error("read failed, backing off",
				logger.String("worker_id", w.id),
				logger.Duration("backoff", backoff),
				logger.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = initialBackoff

		if len(jobs) == 0 {
			p.reclaim(ctx, w)
			continue
		}

		for _, job := range jobs {
			w.ProcessOne(ctx, job)
		}
	}
}

// pendingTooDeep reports whether w already has more unacknowledged
// deliveries than MaxPendingPerWorker allows, in which case the caller
// should skip reading new messages and let reclaim catch up instead.
func (p *Pool) pendingTooDeep(ctx context.Context, w *Worker) bool {
	if p.cfg.MaxPendingPerWorker <= 0 {
		return false
	}
	pending, err := w.consumer.PendingCount(ctx)
	if err != nil {
		p.log.Error("pending count failed", logger.String("worker_id", w.id), logger.Error(err))
		return false
	}
	return pending > p.cfg.MaxPendingPerWorker
}

// defaultReclaimBatchSize backstops an unset ReclaimBatchSize.
const defaultReclaimBatchSize = 50

func (p *Pool) reclaim(ctx context.Context, w *Worker) {
	batchSize := p.cfg.ReclaimBatchSize
	if batchSize <= 0 {
		batchSize = defaultReclaimBatchSize
	}
	jobs, err := w.consumer.ReclaimIdle(ctx, batchSize)
	if err != nil {
		p.log.Error("reclaim failed", logger.String("worker_id", w.id), logger.Error(err))
		return
	}
	if len(jobs) > 0 {
		p.metrics.ReclaimsTotal.Add(float64(len(jobs)))
	}
	for _, job := range jobs {
		w.ProcessOne(ctx, job)
	}
}

// Stop signals every worker to exit and waits up to DrainTimeout for them
// to finish in-flight jobs.
func (p *Pool) Stop(ctx context.Context) error {
	p.state.Store(int32(PoolDraining))
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.state.Store(int32(PoolStopped))
		return nil
	case <-time.After(p.cfg.DrainTimeout):
		p.state.Store(int32(PoolStopped))
		return fmt.Errorf("worker: pool did not drain within %s", p.cfg.DrainTimeout)
	case <-ctx.Done():
		p.state.Store(int32(PoolStopped))
		return ctx.Err()
	}
}

// Stats returns a snapshot of every worker's counters, keyed by worker id.
func (p *Pool) Stats() map[string]Stats {
	out := make(map[string]Stats, len(p.workers))
	for _, w := range p.workers {
		out[w.id] = Stats{
			Processed:    atomic.LoadInt64(&w.stats.Processed),
			Succeeded:    atomic.LoadInt64(&w.stats.Succeeded),
			Failed:       atomic.LoadInt64(&w.stats.Failed),
			DeadLettered: atomic.LoadInt64(&w.stats.DeadLettered),
		}
	}
	return out
}
