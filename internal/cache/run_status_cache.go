package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sentinel-be/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "sentinel:run:"
	statusTTL = 24 * time.Hour
)

// RunStatusCache shares live run status between instances through Redis.
type RunStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRunStatusCache(rdb *redis.Client) *RunStatusCache {
	return &RunStatusCache{rdb: rdb, ttl: statusTTL}
}

func key(runId string) string {
	return keyPrefix + runId
}

func (c *RunStatusCache) Save(ctx context.Context, status entity.RunStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode run status: %w", err)
	}
	if err := c.rdb.Set(ctx, key(status.RunId), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache run status %s: %w", status.RunId, err)
	}
	return nil
}

// Get returns (nil, nil) on a cache miss.
func (c *RunStatusCache) Get(ctx context.Context, runId string) (*entity.RunStatus, error) {
	data, err := c.rdb.Get(ctx, key(runId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached run status %s: %w", runId, err)
	}
	var status entity.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode cached run status %s: %w", runId, err)
	}
	return &status, nil
}
