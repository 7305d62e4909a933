package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SummaryCache stores computed budget summaries keyed by project and write
// generation. Invalidate moves a project to a new generation, so a summary
// computed before a write and stored after it is never read back.
type SummaryCache interface {
	Generation(ctx context.Context, projectID uint) (int64, error)
	Get(ctx context.Context, projectID uint, generation int64) (*BudgetSummary, bool, error)
	Set(ctx context.Context, generation int64, summary *BudgetSummary) error
	Invalidate(ctx context.Context, projectID uint) error
}

// RedisSummaryCache keeps summaries in Redis as JSON
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

var summaryCacheInstance SummaryCache

// InitSummaryCache connects to Redis and installs the process-wide cache
func InitSummaryCache(ctx context.Context, addr string, ttl time.Duration) (SummaryCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	summaryCacheInstance = NewRedisSummaryCache(client, ttl)
	return summaryCacheInstance, nil
}

// NewRedisSummaryCache wraps an existing client
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, ttl: ttl}
}

// GetSummaryCache returns the process-wide cache, or nil when caching is off
func GetSummaryCache() SummaryCache {
	return summaryCacheInstance
}

// SetSummaryCache sets the summary cache instance (primarily for testing)
func SetSummaryCache(cache SummaryCache) {
	summaryCacheInstance = cache
}

func summaryKey(projectID uint, generation int64) string {
	return fmt.Sprintf("budget-summary:%d:%d", projectID, generation)
}

func generationKey(projectID uint) string {
	return fmt.Sprintf("budget-summary-gen:%d", projectID)
}

// Generation returns the project's write generation; 0 before the first write
func (c *RedisSummaryCache) Generation(ctx context.Context, projectID uint) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(projectID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// Get returns the summary cached for the generation; a miss is not an error
func (c *RedisSummaryCache) Get(ctx context.Context, projectID uint, generation int64) (*BudgetSummary, bool, error) {
	raw, err := c.client.Get(ctx, summaryKey(projectID, generation)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var summary BudgetSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return &summary, true, nil
}

// Set stores a summary under the generation it was computed in, for the configured TTL
func (c *RedisSummaryCache) Set(ctx context.Context, generation int64, summary *BudgetSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return c.client.Set(ctx, summaryKey(summary.ProjectID, generation), raw, c.ttl).Err()
}

// Invalidate bumps the project's generation. Entries of older generations
// are never read again and expire with their TTL.
func (c *RedisSummaryCache) Invalidate(ctx context.Context, projectID uint) error {
	return c.client.Incr(ctx, generationKey(projectID)).Err()
}

// Close releases the redis connection pool
func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

type noopSummaryCache struct{}

func (noopSummaryCache) Generation(context.Context, uint) (int64, error) { return 0, nil }

func (noopSummaryCache) Get(context.Context, uint, int64) (*BudgetSummary, bool, error) {
	return nil, false, nil
}

func (noopSummaryCache) Set(context.Context, int64, *BudgetSummary) error { return nil }

func (noopSummaryCache) Invalidate(context.Context, uint) error { return nil }
