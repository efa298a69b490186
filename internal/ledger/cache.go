package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SummaryCache wraps Redis based caching of project financial summaries.
// A nil client degrades to a pass-through cache.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache instantiates the cache helper.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(projectID uuid.UUID) string {
	return fmt.Sprintf("ledger:summary:%s", projectID)
}

// Get returns the cached summary, or nil on a miss.
func (c *SummaryCache) Get(ctx context.Context, projectID uuid.UUID) (*ProjectSummary, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, summaryKey(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary ProjectSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// A stale or corrupt entry is treated as a miss.
		return nil, nil
	}
	return &summary, nil
}

// Set stores the summary with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, summary *ProjectSummary) error {
	if c == nil || c.client == nil || summary == nil {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKey(summary.ProjectID), raw, c.ttl).Err()
}

// Invalidate drops the cached summary after a ledger write.
func (c *SummaryCache) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, summaryKey(projectID)).Err()
}
