package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/internal/entity"
)

func newTestCache(t *testing.T) *RunStatusCache {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	return NewRunStatusCache(rdb)
}

func TestRunStatusCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	run := entity.NewRunStatus(uuid.NewString(), 4, time.Now().UTC().Truncate(time.Second))
	run.Processed = 2
	require.NoError(t, c.Save(ctx, run.Snapshot()))

	got, err := c.Get(ctx, run.RunId)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.RunId, got.RunId)
	assert.Equal(t, 2, got.Processed)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
}

func TestRunStatusCacheMiss(t *testing.T) {
	c := newTestCache(t)

	got, err := c.Get(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}
