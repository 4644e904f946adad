package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclong1221/sploot-media-clustering/internal/queue"
)

func TestAttemptsTracker_IncrementRefreshesTTL(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	tracker := queue.NewAttemptsTracker(rdb, "sploot", time.Minute)

	mock.ExpectIncr("sploot:attempts:job-1").SetVal(1)
	mock.ExpectExpire("sploot:attempts:job-1", time.Minute).SetVal(true)

	n, err := tracker.Increment(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptsTracker_ResetDeletesKey(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	tracker := queue.NewAttemptsTracker(rdb, "sploot", time.Minute)

	mock.ExpectDel("sploot:attempts:job-1").SetVal(1)

	err := tracker.Reset(context.Background(), "job-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
