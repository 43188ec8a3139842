package llmrouter_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/llmrouter"
	"github.com/wedosoft/ticketrag/internal/platform"
)

type fakeProvider struct {
	name     string
	calls    atomic.Int32
	fail     bool
	failKind domain.Kind
	reply    string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, _ string, _ []llmrouter.Message, _ llmrouter.Options) (string, int, int, error) {
	f.calls.Add(1)
	if f.fail {
		return "", 0, 0, domain.NewError(f.failKind, "%s: forced failure", f.name)
	}
	return f.reply, 10, 5, nil
}

func (f *fakeProvider) StreamGenerate(_ context.Context, _ string, _ []llmrouter.Message, _ llmrouter.Options) (<-chan llmrouter.Chunk, error) {
	ch := make(chan llmrouter.Chunk, 2)
	ch <- llmrouter.Chunk{Text: f.reply}
	ch <- llmrouter.Chunk{Done: true}
	close(ch)
	return ch, nil
}

func configWith(primary, fallback string) llmrouter.ConfigSource {
	return func() map[domain.UseCase]domain.LLMUseCaseConfig {
		return map[domain.UseCase]domain.LLMUseCaseConfig{
			domain.UseCaseSummary: {
				Provider: primary, Model: "m1", MaxTokens: 100, Temperature: 0.2,
				Timeout: time.Second, CacheTTL: time.Hour,
				FallbackChain: []domain.FallbackHop{{Provider: fallback, Model: "m2"}},
			},
		}
	}
}

func TestGenerate_FallsBackOnPrimaryFailure(t *testing.T) {
	primary := &fakeProvider{name: "openai", fail: true, failKind: domain.KindPermanentServerError}
	fallback := &fakeProvider{name: "anthropic", reply: "fallback answer"}

	r := llmrouter.New(configWith("openai", "anthropic"), llmrouter.WithBackoff(platform.BackoffPolicy{Base: time.Millisecond, Factor: 1, MaxRetries: 0, Cap: time.Millisecond}))
	r.RegisterProvider(primary)
	r.RegisterProvider(fallback)

	text, meta, err := r.Generate(context.Background(), "acme", domain.UseCaseSummary, []llmrouter.Message{{Role: llmrouter.RoleUser, Content: "hi"}}, llmrouter.Options{})
	require.NoError(t, err)
	assert.Equal(t, "fallback answer", text)
	assert.Equal(t, "anthropic", meta.Provider)
	assert.Equal(t, 1, meta.FallbackHops)
}

func TestGenerate_AllHopsExhaustedReturnsLLMUnavailable(t *testing.T) {
	primary := &fakeProvider{name: "openai", fail: true, failKind: domain.KindPermanentServerError}
	fallback := &fakeProvider{name: "anthropic", fail: true, failKind: domain.KindPermanentServerError}

	r := llmrouter.New(configWith("openai", "anthropic"), llmrouter.WithBackoff(platform.BackoffPolicy{Base: time.Millisecond, Factor: 1, MaxRetries: 0, Cap: time.Millisecond}))
	r.RegisterProvider(primary)
	r.RegisterProvider(fallback)

	_, _, err := r.Generate(context.Background(), "acme", domain.UseCaseSummary, []llmrouter.Message{{Role: llmrouter.RoleUser, Content: "hi"}}, llmrouter.Options{})
	require.Error(t, err)
	assert.Equal(t, domain.KindLLMUnavailable, domain.KindOf(err))
}

type memCache struct {
	store map[string]string
}

func newMemCache() *memCache { return &memCache{store: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.store[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.store[key] = value
	return nil
}

func TestGenerate_CacheHitSkipsProviderCall(t *testing.T) {
	primary := &fakeProvider{name: "openai", reply: "first answer"}
	fallback := &fakeProvider{name: "anthropic", reply: "unused"}
	cache := newMemCache()

	r := llmrouter.New(configWith("openai", "anthropic"), llmrouter.WithCache(cache))
	r.RegisterProvider(primary)
	r.RegisterProvider(fallback)

	msgs := []llmrouter.Message{{Role: llmrouter.RoleUser, Content: "hi"}}
	_, _, err := r.Generate(context.Background(), "acme", domain.UseCaseSummary, msgs, llmrouter.Options{})
	require.NoError(t, err)

	text, meta, err := r.Generate(context.Background(), "acme", domain.UseCaseSummary, msgs, llmrouter.Options{})
	require.NoError(t, err)
	assert.True(t, meta.CacheHit)
	assert.Equal(t, "first answer", text)
	assert.Equal(t, int32(1), primary.calls.Load())
}
