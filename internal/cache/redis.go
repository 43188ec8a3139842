// Package cache is the Redis-backed cache layer shared by C4's LLM
// response cache and C6's embedding cache: one connection, two thin
// adapters over it matching the respective component's Cache interface.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// Client wraps a go-redis connection. Grounded on the teacher pack's
// redis.NewClient(redis.ParseURL(...)) + Ping-on-connect pattern (seen in
// wisbric-nightowl's internal/platform/redis.go).
type Client struct {
	rdb *redis.Client
}

// New parses redisURL, connects, and pings.
func New(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: pinging redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// NewWithClient wraps an already-constructed client, e.g. one pointed at
// an alicebob/miniredis/v2 instance in tests.
func NewWithClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.rdb.Close() }

// LLMResponses implements llmrouter.Cache: tenant-scoped keys, because
// LLM response content (summaries, search answers) is tenant-specific.
type LLMResponses struct {
	client *Client
}

// NewLLMResponses builds the LLM response cache adapter.
func NewLLMResponses(client *Client) *LLMResponses {
	return &LLMResponses{client: client}
}

const llmResponseKeyPrefix = "llm:resp:"

func (c *LLMResponses) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.rdb.Get(ctx, llmResponseKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get llm response: %w", err)
	}
	return val, true, nil
}

func (c *LLMResponses) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.rdb.Set(ctx, llmResponseKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set llm response: %w", err)
	}
	return nil
}

// Embeddings implements embed.Cache: keys carry no tenant dimension,
// since identical text embeds to an identical vector regardless of which
// tenant asked for it (§5 "Shared resources").
type Embeddings struct {
	client *Client
}

// NewEmbeddings builds the embedding cache adapter.
func NewEmbeddings(client *Client) *Embeddings {
	return &Embeddings{client: client}
}

const embeddingKeyPrefix = "embed:"

func embeddingKey(key domain.EmbeddingCacheKey) string {
	return embeddingKeyPrefix + key.Model + ":" + key.ContentHash
}

func (c *Embeddings) Get(ctx context.Context, key domain.EmbeddingCacheKey) ([]float32, bool, error) {
	data, err := c.client.rdb.Get(ctx, embeddingKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get embedding: %w", err)
	}
	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false, fmt.Errorf("cache: decode embedding: %w", err)
	}
	return vector, true, nil
}

func (c *Embeddings) Set(ctx context.Context, key domain.EmbeddingCacheKey, vector []float32, ttl time.Duration) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("cache: encode embedding: %w", err)
	}
	if err := c.client.rdb.Set(ctx, embeddingKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set embedding: %w", err)
	}
	return nil
}
