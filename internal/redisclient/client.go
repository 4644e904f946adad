// Package redisclient constructs the single Redis connection shared by the
// stream client and the cache store.
package redisclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/rclong1221/sploot-media-clustering/internal/config"
)

// ErrEmptyURL is returned when no Redis address was configured.
var ErrEmptyURL = fmt.Errorf("redisclient: REDIS_URL must not be empty")

// New builds a *redis.Client from configuration and pings it once so
// misconfiguration fails at startup rather than on the first job.
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redisclient: parse REDIS_URL: %w", err)
	}

	if cfg.Username != "" {
		opts.Username = cfg.Username
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.PoolMaxConnections > 0 {
		opts.PoolSize = cfg.PoolMaxConnections
	}
	if cfg.SocketTimeout > 0 {
		opts.ReadTimeout = cfg.SocketTimeout
		opts.WriteTimeout = cfg.SocketTimeout
	}
	if cfg.SocketConnectTimeout > 0 {
		opts.DialTimeout = cfg.SocketConnectTimeout
	}
	opts.MaxRetries = boolToRetries(cfg.RetryOnTimeout)

	if cfg.SSL {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.SSLCACerts != "" {
			pool, err := loadCAPool(cfg.SSLCACerts)
			if err != nil {
				return nil, fmt.Errorf("redisclient: load CA certs: %w", err)
			}
			tlsCfg.RootCAs = pool
		}
		opts.TLSConfig = tlsCfg
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisclient: ping: %w", err)
	}
	return client, nil
}

func boolToRetries(retry bool) int {
	if retry {
		return 3
	}
	return 0
}

func loadCAPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
