package config

import (
	"fmt"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
)

// ValidationError reports a single invalid field, the way the source
// ecosystem's config loaders surface startup failures.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: field %q invalid: %s", e.Field, e.Reason)
}

var localEnvironments = map[string]bool{
	"local":       true,
	"development": true,
	"dev":         true,
	"test":        true,
}

// Validate fails startup with a descriptive error when the assembled
// configuration cannot safely run, per the Config error kind's policy.
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return wrap(&ValidationError{Field: "REDIS_URL", Reason: "must not be empty"})
	}
	if c.HTTP.InternalToken == "" {
		return wrap(&ValidationError{Field: "INTERNAL_TOKEN", Reason: "must not be empty"})
	}
	if c.HTTP.InternalToken == defaultToken && !localEnvironments[c.Environment] {
		return wrap(&ValidationError{
			Field:  "INTERNAL_TOKEN",
			Reason: fmt.Sprintf("refusing default token %q outside local/development (ENVIRONMENT=%q)", defaultToken, c.Environment),
		})
	}
	if c.Cache.MaxClusterSize <= 0 {
		return wrap(&ValidationError{Field: "MAX_CLUSTER_SIZE", Reason: "must be positive"})
	}
	if c.Cache.TTL <= 0 {
		return wrap(&ValidationError{Field: "CLUSTER_TTL_SECONDS", Reason: "must be positive"})
	}
	if c.Stream.StreamKey == "" {
		return wrap(&ValidationError{Field: "CLUSTER_STREAM_KEY", Reason: "must not be empty"})
	}
	if c.Stream.DeadLetterStream == "" {
		return wrap(&ValidationError{Field: "CLUSTER_DEAD_LETTER_STREAM", Reason: "must not be empty"})
	}
	if c.Stream.ConsumerGroup == "" {
		return wrap(&ValidationError{Field: "CLUSTER_CONSUMER_GROUP", Reason: "must not be empty"})
	}
	if c.Stream.MaxAttempts <= 0 {
		return wrap(&ValidationError{Field: "CLUSTER_MAX_ATTEMPTS", Reason: "must be positive"})
	}
	if c.Worker.PoolSize <= 0 {
		return wrap(&ValidationError{Field: "WORKER_POOL_SIZE", Reason: "must be positive"})
	}
	if c.Cache.Namespace == "" {
		return wrap(&ValidationError{Field: "NAMESPACE", Reason: "must not be empty"})
	}
	return nil
}

func wrap(err error) error {
	return apperrors.New(apperrors.KindConfig, err)
}
