package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps the Redis connection used for unified-order snapshot
// caching and per-task scan locks.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SnapshotPrefixUnifiedOrders groups the per-reference-date
// unified-order snapshots so a mutation can drop them all at once.
const SnapshotPrefixUnifiedOrders = "unified-orders"

// UnifiedOrdersKey returns the snapshot key for a given reference date.
// The unified view depends on the date (future-dated fulfilled notes are
// filtered against it), so each date caches under its own key.
func UnifiedOrdersKey(today time.Time) string {
	return fmt.Sprintf("%s:%s", SnapshotPrefixUnifiedOrders, today.Format("2006-01-02"))
}

// CacheSnapshot stores a JSON-encoded unified-order snapshot under the
// given key with a TTL.
func (c *Client) CacheSnapshot(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("snapshot:%s", key), data, ttl).Err()
}

// GetSnapshot retrieves a cached snapshot into dest. Returns false when
// the key is absent or expired.
func (c *Client) GetSnapshot(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("snapshot:%s", key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return true, nil
}

// InvalidateSnapshotPrefix drops every cached snapshot under a key
// prefix, covering the per-date unified-order keys. Called after any
// document mutation.
func (c *Client) InvalidateSnapshotPrefix(ctx context.Context, prefix string) error {
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("snapshot:%s:*", prefix), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// AcquireTaskLock acquires the scan lock for a picking task. Returns
// false when another scan session holds it.
func (c *Client) AcquireTaskLock(ctx context.Context, taskID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:task:%s", taskID), "1", ttl).Result()
}

// ReleaseTaskLock releases the scan lock for a picking task
func (c *Client) ReleaseTaskLock(ctx context.Context, taskID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:task:%s", taskID)).Err()
}
