// Package apperrors enumerates the error kinds from the service's error
// handling policy and maps them to HTTP status codes, so handlers never
// need to branch on internal error types themselves.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by the policy that applies to it.
type Kind string

const (
	KindConfig            Kind = "config"
	KindBrokerUnavailable Kind = "broker_unavailable"
	KindBrokerTransient   Kind = "broker_transient"
	KindDecode            Kind = "decode"
	KindStrategyInput     Kind = "strategy_input"
	KindCacheMiss         Kind = "cache_miss"
	KindAuthFailed        Kind = "auth_failed"
	KindFatal             Kind = "fatal"
)

// Error wraps an underlying cause with a Kind so the HTTP layer and the
// worker loop can dispatch on policy without inspecting error strings.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind. A nil err still produces a non-nil
// *Error carrying the kind, since some kinds (e.g. CacheMiss) are not
// failures in the Go-error sense but are outcomes the caller must branch on.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf is New with a formatted message as the cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// StatusFor maps an error to an HTTP status code per the service's error
// handling table. Unrecognized errors, including nil, map to 500.
func StatusFor(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindBrokerUnavailable:
		return http.StatusServiceUnavailable
	case KindCacheMiss:
		return http.StatusNotFound
	case KindAuthFailed:
		return http.StatusUnauthorized
	case KindConfig, KindFatal:
		return http.StatusInternalServerError
	case KindDecode:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
