package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/cachestore"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
	"github.com/rclong1221/sploot-media-clustering/internal/logger"
	"github.com/rclong1221/sploot-media-clustering/internal/metrics"
	"github.com/rclong1221/sploot-media-clustering/internal/queue"
	"github.com/rclong1221/sploot-media-clustering/internal/strategy"
)

// WorkerState is the atomic lifecycle state of a single worker.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerBusy
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerBusy:
		return "busy"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats accumulates per-worker counters, read via atomics so the health
// monitor can sample them without locking.
type Stats struct {
	Processed    int64
	Succeeded    int64
	Failed       int64
	DeadLettered int64
}

// SuccessRate returns Succeeded / Processed, or 1 when nothing has run yet.
func (s *Stats) SuccessRate() float64 {
	processed := atomic.LoadInt64(&s.Processed)
	if processed == 0 {
		return 1
	}
	return float64(atomic.LoadInt64(&s.Succeeded)) / float64(processed)
}

// Worker owns one consumer identity within the shared consumer group and
// runs the read → cluster → cache → ack cycle.
type Worker struct {
	id             string
	consumer       *queue.Consumer
	cache          cachestore.Store
	strategy       strategy.Strategy
	deadLetter     string
	maxAttempts    int
	maxClusterSize int
	cacheTTL       time.Duration
	jobTimeout     time.Duration
	log            logger.Logger
	metrics        *metrics.Metrics

	state atomic.Int32
	stats Stats
}

// NewWorker builds a Worker identified by id.
func NewWorker(
	id string,
	consumer *queue.Consumer,
	cache cachestore.Store,
	strat strategy.Strategy,
	deadLetterStream string,
	maxAttempts int,
	maxClusterSize int,
	cacheTTL time.Duration,
	jobTimeout time.Duration,
	log logger.Logger,
	m *metrics.Metrics,
) *Worker {
	return &Worker{
		id:             id,
		consumer:       consumer,
		cache:          cache,
		strategy:       strat,
		deadLetter:     deadLetterStream,
		maxAttempts:    maxAttempts,
		maxClusterSize: maxClusterSize,
		cacheTTL:       cacheTTL,
		jobTimeout:     jobTimeout,
		log:            log.With(logger.String("worker_id", id)),
		metrics:        m,
	}
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// ProcessOne consumes one ConsumedJob through the full pipeline: cluster,
// cache, and ack, or dead-letter on decode failure or exhausted attempts.
func (w *Worker) ProcessOne(ctx context.Context, job queue.ConsumedJob) {
	if !w.state.CompareAndSwap(int32(WorkerIdle), int32(WorkerBusy)) {
		return
	}
	defer w.state.Store(int32(WorkerIdle))

	start := time.Now()
	atomic.AddInt64(&w.stats.Processed, 1)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	outcome := w.process(jobCtx, job)

	w.metrics.JobDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	w.metrics.JobsProcessedTotal.WithLabelValues(outcome).Inc()

	switch outcome {
	case "success":
		atomic.AddInt64(&w.stats.Succeeded, 1)
	case "dead_lettered":
		atomic.AddInt64(&w.stats.DeadLettered, 1)
	default:
		atomic.AddInt64(&w.stats.Failed, 1)
	}
}

func (w *Worker) process(ctx context.Context, consumed queue.ConsumedJob) string {
	if consumed.Job.JobID == "" {
		w.log.Error("dropping undecodable message, dead-lettering", logger.String("message_id", consumed.MessageID))
		w.deadLetterJob(ctx, consumed, "decode")
		return "dead_lettered"
	}

	if int(consumed.Attempts) >= w.maxAttempts {
		w.log.Warn("attempts exhausted, dead-lettering",
			logger.String("job_id", consumed.Job.JobID),
			logger.Int64("attempts", consumed.Attempts))
		w.deadLetterJob(ctx, consumed, "max_attempts")
		return "dead_lettered"
	}

	job := consumed.Job
	job.Payload.Normalize()

	clusters, clusterMetrics, err := w.strategy.Cluster(job.PetID, job.Payload, w.maxClusterSize)
	if err != nil {
		kind, _ := apperrors.KindOf(err)
		if kind == apperrors.KindStrategyInput {
			w.log.Warn("strategy rejected payload, dead-lettering",
				logger.String("job_id", job.JobID), logger.Error(err))
			w.deadLetterJob(ctx, consumed, "strategy_input")
			return "dead_lettered"
		}
		w.log.Error("strategy failed", logger.String("job_id", job.JobID), logger.Error(err))
		return "failure"
	}

	now := time.Now().UTC()
	clusterMetrics.ProcessedAt = now
	descriptor := domain.ClusterDescriptor{
		PetID:     job.PetID,
		Clusters:  clusters,
		Metrics:   clusterMetrics,
		UpdatedAt: now,
	}

	if err := w.cache.Put(ctx, job.PetID, descriptor, w.cacheTTL); err != nil {
		w.log.Error("cache write failed", logger.String("job_id", job.JobID), logger.Error(err))
		return "failure"
	}

	if err := w.consumer.Ack(ctx, consumed); err != nil {
		w.log.Error("ack failed", logger.String("job_id", job.JobID), logger.Error(err))
		return "failure"
	}

	w.log.Info("job processed",
		logger.String("job_id", job.JobID),
		logger.String("pet_id", job.PetID),
		logger.String("reason", job.Reason),
		logger.Bool("force", job.Force))
	return "success"
}

func (w *Worker) deadLetterJob(ctx context.Context, job queue.ConsumedJob, reason string) {
	if err := w.consumer.DeadLetter(ctx, w.deadLetter, job, reason); err != nil {
		w.log.Error("dead-letter failed", logger.String("message_id", job.MessageID), logger.Error(err))
		return
	}
	w.metrics.JobsDeadLetteredTotal.WithLabelValues(reason).Inc()
}
