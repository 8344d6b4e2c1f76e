package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecentCache keeps a rolling window of the latest conversation entries
// per owner+session in Redis lists, so a turn can be prefixed with its
// immediate history without a database round trip.
type RecentCache struct {
	client redis.Cmdable
}

func NewRecentCache(client redis.Cmdable) *RecentCache {
	return &RecentCache{client: client}
}

func recentKey(ownerID, sessionID string) string {
	return fmt.Sprintf("conv:%s:%s", ownerID, sessionID)
}

// Recent returns the last `limit` entries for the given owner+session.
func (c *RecentCache) Recent(ctx context.Context, ownerID, sessionID string, limit int) ([]Entry, error) {
	key := recentKey(ownerID, sessionID)

	// LRANGE key -limit -1 returns the last `limit` elements
	vals, err := c.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	entries := make([]Entry, 0, len(vals))
	for _, v := range vals {
		var entry Entry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			continue // skip malformed entries
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Append adds an entry to the window, trims it to maxEntries, and
// refreshes the TTL.
func (c *RecentCache) Append(ctx context.Context, ownerID, sessionID string, entry Entry, maxEntries, ttlSec int) error {
	key := recentKey(ownerID, sessionID)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, int64(-maxEntries), -1)
	pipe.Expire(ctx, key, time.Duration(ttlSec)*time.Second)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Clear deletes the window for the given owner+session.
func (c *RecentCache) Clear(ctx context.Context, ownerID, sessionID string) error {
	return c.client.Del(ctx, recentKey(ownerID, sessionID)).Err()
}
