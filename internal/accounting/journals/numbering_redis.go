package journals

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var seedScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local target = tonumber(ARGV[1])
if current < target then
	redis.call('SET', KEYS[1], target)
	return target
end
return current`)

// RedisAllocator shares entry numbering between processes through INCR.
type RedisAllocator struct {
	client *redis.Client
	prefix string
}

// NewRedisAllocator builds an allocator storing counters under prefix.
func NewRedisAllocator(client *redis.Client, prefix string) *RedisAllocator {
	if prefix == "" {
		prefix = "ledger:je:seq"
	}
	return &RedisAllocator{client: client, prefix: prefix}
}

func (a *RedisAllocator) key(year int) string {
	return fmt.Sprintf("%s:%d", a.prefix, year)
}

// Next reserves the following number for year.
func (a *RedisAllocator) Next(ctx context.Context, year int) (string, error) {
	seq, err := a.client.Incr(ctx, a.key(year)).Result()
	if err != nil {
		return "", fmt.Errorf("journals: allocate number: %w", err)
	}
	return FormatNumber(year, seq), nil
}

// Seed raises the counter of year to at least last.
func (a *RedisAllocator) Seed(ctx context.Context, year int, last int64) error {
	if err := seedScript.Run(ctx, a.client, []string{a.key(year)}, last).Err(); err != nil {
		return fmt.Errorf("journals: seed numbering: %w", err)
	}
	return nil
}

// SeedFromEntries resumes numbering after the highest stored number of each year.
func (a *RedisAllocator) SeedFromEntries(ctx context.Context, entries []JournalEntry) error {
	highest := make(map[int]int64)
	for _, e := range entries {
		year, seq, err := ParseNumber(e.Number)
		if err != nil {
			return err
		}
		if seq > highest[year] {
			highest[year] = seq
		}
	}
	for year, seq := range highest {
		if err := a.Seed(ctx, year, seq); err != nil {
			return err
		}
	}
	return nil
}
