// Package metrics exposes the service's Prometheus instrumentation: job
// throughput, worker pool utilization, and queue depth, registered through
// promauto the way the ecosystem's schedulers do.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every counter, gauge, and histogram the worker pool and
// HTTP surface report against.
type Metrics struct {
	JobsProcessedTotal    *prometheus.CounterVec
	JobsDeadLetteredTotal *prometheus.CounterVec
	JobDuration           *prometheus.HistogramVec

	QueueDepth   prometheus.Gauge
	PendingDepth prometheus.Gauge

	WorkerPoolSize prometheus.Gauge
	WorkerBusy     prometheus.Gauge

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ReclaimsTotal     prometheus.Counter
	AuthFailuresTotal prometheus.Counter
}

// New registers every metric against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		JobsProcessedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "media_clustering_jobs_processed_total",
			Help: "Total clustering jobs processed, labeled by outcome.",
		}, []string{"outcome"}),

		JobsDeadLetteredTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "media_clustering_jobs_dead_lettered_total",
			Help: "Total clustering jobs moved to the dead-letter stream, labeled by reason.",
		}, []string{"reason"}),

		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "media_clustering_job_duration_seconds",
			Help:    "Time spent processing one clustering job end to end.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "media_clustering_queue_depth",
			Help: "Current length of the primary clustering stream.",
		}),

		PendingDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "media_clustering_pending_depth",
			Help: "Current number of unacknowledged deliveries in the consumer group.",
		}),

		WorkerPoolSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "media_clustering_worker_pool_size",
			Help: "Configured worker pool size.",
		}),

		WorkerBusy: f.NewGauge(prometheus.GaugeOpts{
			Name: "media_clustering_worker_busy",
			Help: "Number of workers currently processing a job.",
		}),

		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "media_clustering_cache_hits_total",
			Help: "Total cache reads that found a cluster descriptor.",
		}),

		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "media_clustering_cache_misses_total",
			Help: "Total cache reads that found nothing.",
		}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "media_clustering_http_requests_total",
			Help: "Total HTTP requests, labeled by route and status class.",
		}, []string{"route", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "media_clustering_http_request_duration_seconds",
			Help:    "HTTP request latency, labeled by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		ReclaimsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "media_clustering_reclaims_total",
			Help: "Total deliveries reclaimed from idle consumers.",
		}),

		AuthFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "media_clustering_auth_failures_total",
			Help: "Total requests rejected by the internal token check.",
		}),
	}
}
