package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "ledger:reports:version"
	bumpChannel     = "ledger.bump"
)

// Cache stores built reports in Redis under a global version that every
// balance change bumps. A nil Cache or client disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version reads the current report generation, creating it at 1.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	return c.client.Get(ctx, cacheVersionKey).Int64()
}

// Key returns the cache key for report name at the current generation.
func (c *Cache) Key(ctx context.Context, name string) (string, error) {
	if !c.enabled() {
		return "ledger:reports:" + name, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ledger:reports:%s:v%d", name, ver), nil
}

// Lookup decodes the value stored at key into dest and reports whether it
// was present.
func (c *Cache) Lookup(ctx context.Context, key string, dest any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("reports: decode %s: %w", key, err)
	}
	return true, nil
}

// Store saves raw JSON under key for the configured TTL.
func (c *Cache) Store(ctx context.Context, key string, raw []byte) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates cached reports by incrementing the version and
// publishing it to other processes.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other processes
// until ctx ends. The returned channel yields each version seen.
func (c *Cache) ListenForInvalidation(ctx context.Context) (<-chan int64, error) {
	out := make(chan int64, 1)
	if !c.enabled() {
		close(out)
		return out, nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				select {
				case out <- ver:
				default:
				}
			}
		}
	}()
	return out, nil
}
