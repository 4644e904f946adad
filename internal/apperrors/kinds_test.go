package apperrors_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"broker unavailable", apperrors.New(apperrors.KindBrokerUnavailable, errors.New("down")), http.StatusServiceUnavailable},
		{"cache miss", apperrors.New(apperrors.KindCacheMiss, nil), http.StatusNotFound},
		{"auth failed", apperrors.New(apperrors.KindAuthFailed, nil), http.StatusUnauthorized},
		{"config", apperrors.New(apperrors.KindConfig, errors.New("bad")), http.StatusInternalServerError},
		{"decode", apperrors.New(apperrors.KindDecode, errors.New("bad json")), http.StatusBadRequest},
		{"plain error", errors.New("unclassified"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperrors.StatusFor(tc.err))
		})
	}
}

func TestKindOf_IgnoresStringWrappedError(t *testing.T) {
	base := apperrors.New(apperrors.KindDecode, errors.New("bad"))
	wrapped := errors.New("outer: " + base.Error())

	_, ok := apperrors.KindOf(wrapped)
	assert.False(t, ok, "a string-wrapped error should not be classified")

	kind, ok := apperrors.KindOf(base)
	assert.True(t, ok)
	assert.Equal(t, apperrors.KindDecode, kind)
}
