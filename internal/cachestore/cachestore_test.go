package cachestore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/cachestore"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
)

func TestPut_WritesWithTTL(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := cachestore.New(rdb, "sploot")

	descriptor := domain.ClusterDescriptor{PetID: "pet-1"}
	data, err := json.Marshal(descriptor)
	require.NoError(t, err)

	mock.ExpectSet("sploot:pets:pet-1:cluster", data, 24*time.Hour).SetVal("OK")

	err = store.Put(context.Background(), "pet-1", descriptor, 24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ReturnsCacheMissWhenAbsent(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := cachestore.New(rdb, "sploot")

	mock.ExpectGet("sploot:pets:pet-1:cluster").RedisNil()

	_, err := store.Get(context.Background(), "pet-1")
	require.Error(t, err)

	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindCacheMiss, kind)
}

func TestGet_DecodesStoredDescriptor(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := cachestore.New(rdb, "sploot")

	descriptor := domain.ClusterDescriptor{PetID: "pet-1", Metrics: domain.Metrics{QualityScore: 0.9}}
	data, err := json.Marshal(descriptor)
	require.NoError(t, err)

	mock.ExpectGet("sploot:pets:pet-1:cluster").SetVal(string(data))

	got, err := store.Get(context.Background(), "pet-1")
	require.NoError(t, err)
	assert.Equal(t, descriptor.PetID, got.PetID)
	assert.Equal(t, descriptor.Metrics.QualityScore, got.Metrics.QualityScore)
}

func TestDelete_RemovesKey(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := cachestore.New(rdb, "sploot")

	mock.ExpectDel("sploot:pets:pet-1:cluster").SetVal(1)

	existed, err := store.Delete(context.Background(), "pet-1")
	require.NoError(t, err)
	assert.True(t, existed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NoopWhenAbsent(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := cachestore.New(rdb, "sploot")

	mock.ExpectDel("sploot:pets:pet-1:cluster").SetVal(0)

	existed, err := store.Delete(context.Background(), "pet-1")
	require.NoError(t, err)
	assert.False(t, existed)
	require.NoError(t, mock.ExpectationsWereMet())
}
