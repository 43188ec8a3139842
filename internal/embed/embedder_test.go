package embed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/embed"
	"github.com/wedosoft/ticketrag/internal/platform"
)

type memCache struct {
	store map[domain.EmbeddingCacheKey][]float32
}

func newMemCache() *memCache { return &memCache{store: map[domain.EmbeddingCacheKey][]float32{}} }

func (c *memCache) Get(_ context.Context, key domain.EmbeddingCacheKey) ([]float32, bool, error) {
	v, ok := c.store[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key domain.EmbeddingCacheKey, v []float32, _ time.Duration) error {
	c.store[key] = v
	return nil
}

func TestEmbedBatch_CachesAndSkipsSecondCall(t *testing.T) {
	calls := 0
	fn := func(_ context.Context, _ string, texts []string) ([][]float32, error) {
		calls++
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 2, 3}
		}
		return out, nil
	}
	e := embed.New(embed.Config{Model: "m"}, fn, newMemCache(), nil)

	_, err := e.EmbedBatch(context.Background(), []string{"hello"}, nil)
	require.NoError(t, err)
	_, err = e.EmbedBatch(context.Background(), []string{"hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestEmbedBatch_DegradesToZeroVectorOnFailure(t *testing.T) {
	fn := func(_ context.Context, _ string, _ []string) ([][]float32, error) {
		return nil, domain.Wrap(domain.KindPermanentServerError, errors.New("boom"), "provider down")
	}
	e := embed.New(embed.Config{Model: "m", Backoff: platform.BackoffPolicy{Base: time.Millisecond, Factor: 1, MaxRetries: 0, Cap: time.Millisecond}}, fn, nil, nil)

	results, err := e.EmbedBatch(context.Background(), []string{"hello"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Degraded)
	assert.Nil(t, results[0].Vector)
}

func TestEmbedBatch_EmptyStringGetsSentinel(t *testing.T) {
	var seen []string
	fn := func(_ context.Context, _ string, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0}
		}
		return out, nil
	}
	e := embed.New(embed.Config{Model: "m"}, fn, nil, nil)
	_, err := e.EmbedBatch(context.Background(), []string{""}, nil)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.NotEmpty(t, seen[0])
}

func TestEmbedBatch_ShortTextPassesThroughUnchanged(t *testing.T) {
	var seen []string
	fn := func(_ context.Context, _ string, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0}
		}
		return out, nil
	}
	e := embed.New(embed.Config{Model: "m"}, fn, nil, nil)
	_, err := e.EmbedBatch(context.Background(), []string{"a short support ticket body"}, nil)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "a short support ticket body", seen[0])
}

func TestEmbedBatch_TruncatesByCharacterBudgetBeforeTokenBudget(t *testing.T) {
	var seen []string
	fn := func(_ context.Context, _ string, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0}
		}
		return out, nil
	}
	// MaxInputChars cuts the text down to 10 runes, well within the
	// default token budget, so the char cutoff is what actually bites.
	e := embed.New(embed.Config{Model: "m", MaxInputChars: 10}, fn, nil, nil)
	_, err := e.EmbedBatch(context.Background(), []string{"0123456789abcdefghij"}, nil)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.LessOrEqual(t, len([]rune(seen[0])), 10)
}

func TestEmbedBatch_TruncatesByTokenBudgetWithEllipsis(t *testing.T) {
	var seen []string
	fn := func(_ context.Context, _ string, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0}
		}
		return out, nil
	}
	// A tiny token budget with a large character budget means the
	// tiktoken pass, not the character pre-check, does the cutting.
	e := embed.New(embed.Config{Model: "m", MaxInputTokens: 3}, fn, nil, nil)
	long := ""
	for i := 0; i < 2000; i++ {
		long += "ticket update from customer regarding billing issue "
	}
	_, err := e.EmbedBatch(context.Background(), []string{long}, nil)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Less(t, len(seen[0]), len(long))
	assert.Contains(t, seen[0], "…")
}
