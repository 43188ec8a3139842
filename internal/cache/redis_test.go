package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/cache"
	"github.com/wedosoft/ticketrag/internal/domain"
)

func setupMiniredis(t *testing.T) *cache.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return cache.NewWithClient(rdb)
}

func TestLLMResponses_MissThenSetThenHit(t *testing.T) {
	client := setupMiniredis(t)
	c := cache.NewLLMResponses(client)

	_, ok, err := c.Get(context.Background(), "key-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(context.Background(), "key-1", "cached response", time.Minute))

	value, ok, err := c.Get(context.Background(), "key-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached response", value)
}

func TestEmbeddings_RoundTripsVector(t *testing.T) {
	client := setupMiniredis(t)
	c := cache.NewEmbeddings(client)

	key := domain.EmbeddingCacheKey{Model: "text-embedding-3-small", ContentHash: "abc123"}
	vector := []float32{0.1, 0.2, 0.3, -0.4}

	require.NoError(t, c.Set(context.Background(), key, vector, time.Hour))

	got, ok, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vector, got)
}

func TestEmbeddings_MissingKeyReturnsNotOK(t *testing.T) {
	client := setupMiniredis(t)
	c := cache.NewEmbeddings(client)

	_, ok, err := c.Get(context.Background(), domain.EmbeddingCacheKey{Model: "m", ContentHash: "nope"})
	require.NoError(t, err)
	assert.False(t, ok)
}
