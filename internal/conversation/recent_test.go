package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*RecentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRecentCache(client), mr
}

func TestRecentCache_AppendAndGet(t *testing.T) {
	cache, _ := setupMiniredis(t)
	ctx := context.Background()

	err := cache.Append(ctx, "u1", "s1", Entry{
		Role: "user", Content: "Hello", Timestamp: time.Now(),
	}, 20, 3600)
	require.NoError(t, err)

	err = cache.Append(ctx, "u1", "s1", Entry{
		Role: "assistant", Content: "Hi there!", Timestamp: time.Now(),
	}, 20, 3600)
	require.NoError(t, err)

	entries, err := cache.Recent(ctx, "u1", "s1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "Hello", entries[0].Content)
	assert.Equal(t, "assistant", entries[1].Role)
	assert.Equal(t, "Hi there!", entries[1].Content)
}

func TestRecentCache_Trim(t *testing.T) {
	cache, _ := setupMiniredis(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := cache.Append(ctx, "u1", "s1", Entry{
			Role: "user", Content: string(rune('A' + i)), Timestamp: time.Now(),
		}, 3, 3600)
		require.NoError(t, err)
	}

	entries, err := cache.Recent(ctx, "u1", "s1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "C", entries[0].Content)
	assert.Equal(t, "E", entries[2].Content)
}

func TestRecentCache_TTL(t *testing.T) {
	cache, mr := setupMiniredis(t)
	ctx := context.Background()

	err := cache.Append(ctx, "u1", "s1", Entry{Role: "user", Content: "Hello"}, 20, 60)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)

	entries, err := cache.Recent(ctx, "u1", "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecentCache_IsolatedByOwnerAndSession(t *testing.T) {
	cache, _ := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, cache.Append(ctx, "u1", "s1", Entry{Role: "user", Content: "U1S1"}, 20, 3600))
	require.NoError(t, cache.Append(ctx, "u1", "s2", Entry{Role: "user", Content: "U1S2"}, 20, 3600))
	require.NoError(t, cache.Append(ctx, "u2", "s1", Entry{Role: "user", Content: "U2S1"}, 20, 3600))

	entries, _ := cache.Recent(ctx, "u1", "s1", 10)
	require.Len(t, entries, 1)
	assert.Equal(t, "U1S1", entries[0].Content)

	entries, _ = cache.Recent(ctx, "u2", "s1", 10)
	require.Len(t, entries, 1)
	assert.Equal(t, "U2S1", entries[0].Content)
}

func TestRecentCache_Clear(t *testing.T) {
	cache, _ := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, cache.Append(ctx, "u1", "s1", Entry{Role: "user", Content: "Hello"}, 20, 3600))
	require.NoError(t, cache.Clear(ctx, "u1", "s1"))

	entries, err := cache.Recent(ctx, "u1", "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
