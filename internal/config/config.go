// Package config loads the typed settings for the clustering service from
// the environment (optionally via a .env file), the way the source
// ecosystem's services do: godotenv for file loading, Viper for binding and
// defaults, explicit Validate() before anything starts.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// RedisConfig wires the broker and cache backend. A single Redis endpoint
// serves both roles.
type RedisConfig struct {
	URL                  string
	Username             string
	Password             string
	SSL                  bool
	SSLCACerts           string
	PoolMaxConnections   int
	SocketTimeout        time.Duration
	SocketConnectTimeout time.Duration
	HealthcheckInterval  time.Duration
	RetryOnTimeout       bool
}

// StreamConfig names the streams, consumer group, and per-tick knobs the
// worker loop uses.
type StreamConfig struct {
	StreamKey          string
	DeadLetterStream   string
	MaxLen             int64
	ApproximateTrim    bool
	ConsumerGroup      string
	WorkerConsumerName string
	ReadTimeout        time.Duration
	ReadCount          int64
	RetryIdle          time.Duration
	MaxAttempts        int
}

// WorkerConfig controls the worker pool's shape and backpressure.
type WorkerConfig struct {
	PoolSize            int
	MaxPendingPerWorker int64
	ReclaimEveryNTicks  int
	ReclaimBatchSize    int64
	DrainTimeout        time.Duration
}

// MetricsConfig controls the standalone Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// HTTPConfig controls the primary internal HTTP surface.
type HTTPConfig struct {
	Host            string
	Port            int
	InternalToken   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// CacheConfig controls the cluster cache keyspace.
type CacheConfig struct {
	Namespace      string
	TTL            time.Duration
	MaxClusterSize int
}

// Config is the fully assembled, validated process configuration.
type Config struct {
	Environment string
	AppName     string

	Redis   RedisConfig
	Stream  StreamConfig
	Worker  WorkerConfig
	Metrics MetricsConfig
	HTTP    HTTPConfig
	Cache   CacheConfig

	LogLevel  string
	LogFormat string
}

// defaultToken is the well-known placeholder that must never be accepted
// outside local/development environments.
const defaultToken = "changeme"

// Load reads environment variables (after loading .env / .env.local if
// present) into a Config, applies defaults, and validates the result.
func Load() (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	bindDefaults(v)

	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		AppName:     v.GetString("APP_NAME"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFormat:   v.GetString("LOG_FORMAT"),

		Redis: RedisConfig{
			URL:                  v.GetString("REDIS_URL"),
			Username:             v.GetString("REDIS_USERNAME"),
			Password:             v.GetString("REDIS_PASSWORD"),
			SSL:                  v.GetBool("REDIS_SSL"),
			SSLCACerts:           v.GetString("REDIS_SSL_CA_CERTS"),
			PoolMaxConnections:   v.GetInt("REDIS_POOL_MAX_CONNECTIONS"),
			SocketTimeout:        v.GetDuration("REDIS_SOCKET_TIMEOUT"),
			SocketConnectTimeout: v.GetDuration("REDIS_SOCKET_CONNECT_TIMEOUT"),
			HealthcheckInterval:  v.GetDuration("REDIS_HEALTHCHECK_INTERVAL"),
			RetryOnTimeout:       v.GetBool("REDIS_RETRY_ON_TIMEOUT"),
		},

		Stream: StreamConfig{
			StreamKey:          v.GetString("CLUSTER_STREAM_KEY"),
			DeadLetterStream:   v.GetString("CLUSTER_DEAD_LETTER_STREAM"),
			MaxLen:             v.GetInt64("CLUSTER_STREAM_MAXLEN"),
			ApproximateTrim:    v.GetBool("CLUSTER_STREAM_APPROXIMATE_TRIM"),
			ConsumerGroup:      v.GetString("CLUSTER_CONSUMER_GROUP"),
			WorkerConsumerName: v.GetString("CLUSTER_WORKER_CONSUMER_NAME"),
			ReadTimeout:        v.GetDuration("CLUSTER_READ_TIMEOUT_MS") * time.Millisecond,
			ReadCount:          v.GetInt64("CLUSTER_READ_COUNT"),
			RetryIdle:          v.GetDuration("CLUSTER_RETRY_IDLE_MS") * time.Millisecond,
			MaxAttempts:        v.GetInt("CLUSTER_MAX_ATTEMPTS"),
		},

		Worker: WorkerConfig{
			PoolSize:            v.GetInt("WORKER_POOL_SIZE"),
			MaxPendingPerWorker: v.GetInt64("WORKER_MAX_PENDING"),
			ReclaimEveryNTicks:  v.GetInt("WORKER_RECLAIM_EVERY_N_TICKS"),
			ReclaimBatchSize:    v.GetInt64("WORKER_RECLAIM_BATCH_SIZE"),
			DrainTimeout:        v.GetDuration("WORKER_DRAIN_TIMEOUT"),
		},

		Metrics: MetricsConfig{
			Enabled: v.GetBool("WORKER_METRICS_ENABLED"),
			Host:    v.GetString("WORKER_METRICS_HOST"),
			Port:    v.GetInt("WORKER_METRICS_PORT"),
		},

		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			InternalToken:   v.GetString("INTERNAL_TOKEN"),
			ReadTimeout:     v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("HTTP_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},

		Cache: CacheConfig{
			Namespace:      v.GetString("NAMESPACE"),
			TTL:            time.Duration(v.GetInt64("CLUSTER_TTL_SECONDS")) * time.Second,
			MaxClusterSize: v.GetInt("MAX_CLUSTER_SIZE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env files in priority order, non-fatally. ENV_FILE
// takes precedence; otherwise .env.local overrides .env.
func loadEnvFiles() {
	if path := os.Getenv("ENV_FILE"); path != "" {
		_ = godotenv.Load(path)
		return
	}
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

func bindDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("APP_NAME", "media-clustering")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_POOL_MAX_CONNECTIONS", 10)
	v.SetDefault("REDIS_SOCKET_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_SOCKET_CONNECT_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_HEALTHCHECK_INTERVAL", 30*time.Second)
	v.SetDefault("REDIS_RETRY_ON_TIMEOUT", true)

	v.SetDefault("CLUSTER_STREAM_KEY", "streams:media.cluster")
	v.SetDefault("CLUSTER_DEAD_LETTER_STREAM", "streams:media.cluster.deadletter")
	v.SetDefault("CLUSTER_STREAM_MAXLEN", int64(0))
	v.SetDefault("CLUSTER_STREAM_APPROXIMATE_TRIM", true)
	v.SetDefault("CLUSTER_CONSUMER_GROUP", "media-clustering-workers")
	v.SetDefault("CLUSTER_WORKER_CONSUMER_NAME", "worker")
	v.SetDefault("CLUSTER_READ_TIMEOUT_MS", int64(5000))
	v.SetDefault("CLUSTER_READ_COUNT", int64(10))
	v.SetDefault("CLUSTER_RETRY_IDLE_MS", int64(60000))
	v.SetDefault("CLUSTER_MAX_ATTEMPTS", 5)

	v.SetDefault("WORKER_POOL_SIZE", 4)
	v.SetDefault("WORKER_MAX_PENDING", int64(200))
	v.SetDefault("WORKER_RECLAIM_EVERY_N_TICKS", 5)
	v.SetDefault("WORKER_RECLAIM_BATCH_SIZE", int64(50))
	v.SetDefault("WORKER_DRAIN_TIMEOUT", 30*time.Second)

	v.SetDefault("WORKER_METRICS_ENABLED", true)
	v.SetDefault("WORKER_METRICS_HOST", "0.0.0.0")
	v.SetDefault("WORKER_METRICS_PORT", 9090)

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("INTERNAL_TOKEN", defaultToken)
	v.SetDefault("HTTP_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second)

	v.SetDefault("NAMESPACE", "sploot")
	v.SetDefault("CLUSTER_TTL_SECONDS", int64(24*60*60))
	v.SetDefault("MAX_CLUSTER_SIZE", 12)
}
