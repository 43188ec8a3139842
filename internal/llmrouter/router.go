// Package llmrouter implements C4: use-case-keyed provider/model
// selection, response caching, retry with jittered backoff, bounded
// fallback chains, and streaming.
package llmrouter

import (
	"context"
	"log/slog"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/platform"
)

// Router is C4. Build one with New and share it across requests; it holds
// no per-call or per-tenant state beyond the registered providers.
type Router struct {
	config   ConfigSource
	registry *registry
	cache    Cache
	backoff  platform.BackoffPolicy
	logger   *slog.Logger
}

// Option configures a Router at construction time.
type Option func(*Router)

// WithCache attaches a response cache; without one, caching is a no-op.
func WithCache(c Cache) Option { return func(r *Router) { r.cache = c } }

// WithBackoff overrides the retry policy; defaults to
// platform.DefaultBackoffPolicy.
func WithBackoff(p platform.BackoffPolicy) Option { return func(r *Router) { r.backoff = p } }

// WithLogger attaches a structured logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(r *Router) { r.logger = l } }

// New builds a Router that resolves use-case configuration from src.
func New(src ConfigSource, opts ...Option) *Router {
	r := &Router{
		config:   src,
		registry: newRegistry(),
		backoff:  platform.DefaultBackoffPolicy,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider makes a chat provider available for use-case routing.
func (r *Router) RegisterProvider(p Provider) { r.registry.registerChat(p) }

// RegisterEmbeddingProvider makes an embedding provider available.
func (r *Router) RegisterEmbeddingProvider(p EmbeddingProvider) { r.registry.registerEmbed(p) }

// RegisteredProviders returns the name of every chat provider registered so
// far, for the health endpoint's dependency report (§6's
// `deps.llm_providers[]`).
func (r *Router) RegisteredProviders() []string {
	names := make([]string, 0, len(r.registry.chat))
	for name := range r.registry.chat {
		names = append(names, name)
	}
	return names
}

// hop is one resolved (provider, model) attempt, either the use-case's
// primary selection or one link of its fallback chain.
type hop struct {
	provider string
	model    string
}

func candidateHops(cfg domain.LLMUseCaseConfig) []hop {
	hops := []hop{{provider: cfg.Provider, model: cfg.Model}}
	chain := cfg.FallbackChain
	if len(chain) > domain.MaxFallbackHops {
		chain = chain[:domain.MaxFallbackHops]
	}
	for _, f := range chain {
		hops = append(hops, hop{provider: f.Provider, model: f.Model})
	}
	return hops
}

// Generate runs generate_for_use_case: resolve provider/model, check the
// response cache, execute with retry/backoff/fallback, and report what
// happened in Meta.
func (r *Router) Generate(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, messages []Message, opts Options) (string, Meta, error) {
	cfg := resolve(r.config, useCase)
	opts = mergeOptions(cfg, opts)

	key := cacheKey(tenantID, useCase, cfg.Provider, cfg.Model, messages, opts)
	if r.cache != nil && cfg.CacheTTL > 0 {
		if cached, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			return cached, Meta{Provider: cfg.Provider, Model: cfg.Model, CacheHit: true}, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	text, meta, err := r.executeWithFallback(callCtx, cfg, messages, opts)
	meta.Duration = time.Since(start)
	if err != nil {
		return "", meta, err
	}

	if r.cache != nil && cfg.CacheTTL > 0 {
		if err := r.cache.Set(ctx, key, text, cfg.CacheTTL); err != nil {
			r.logger.Warn("llmrouter: cache set failed", slog.String("err", err.Error()))
		}
	}
	return text, meta, nil
}

func (r *Router) executeWithFallback(ctx context.Context, cfg domain.LLMUseCaseConfig, messages []Message, opts Options) (string, Meta, error) {
	hops := candidateHops(cfg)
	var lastErr error

	for hopIdx, h := range hops {
		provider, ok := r.registry.chat[h.provider]
		if !ok {
			lastErr = domain.NewError(domain.KindLLMUnavailable, "no provider registered: %q", h.provider)
			continue
		}

		text, promptTok, completionTok, err := r.callWithRetry(ctx, provider, h.model, messages, opts)
		if err == nil {
			return text, Meta{
				Provider:         h.provider,
				Model:            h.model,
				PromptTokens:     promptTok,
				CompletionTokens: completionTok,
				FallbackHops:     hopIdx,
			}, nil
		}
		lastErr = err
		r.logger.Warn("llmrouter: hop failed", slog.String("provider", h.provider), slog.String("model", h.model), slog.String("err", err.Error()))
	}

	return "", Meta{}, domain.Wrap(domain.KindLLMUnavailable, lastErr, "all %d hops exhausted", len(hops))
}

func (r *Router) callWithRetry(ctx context.Context, provider Provider, model string, messages []Message, opts Options) (string, int, int, error) {
	var lastErr error
	for attempt := 0; attempt <= r.backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.backoff.Sleep(ctx, attempt-1); err != nil {
				return "", 0, 0, err
			}
		}
		if ctx.Err() != nil {
			return "", 0, 0, domain.Wrap(domain.KindCancelled, ctx.Err(), "generate cancelled")
		}

		text, promptTok, completionTok, err := provider.Generate(ctx, model, messages, opts)
		if err == nil {
			return text, promptTok, completionTok, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", 0, 0, domain.Wrap(domain.KindUpstreamTimeout, ctx.Err(), "generate timed out")
		}
		if !domain.Retryable(err) {
			return "", 0, 0, err
		}
	}
	return "", 0, 0, lastErr
}

// StreamGenerate runs stream_generate_for_use_case. Streaming calls are
// never cached (§4.4: default realtime streaming TTL is 0) and do not
// traverse the fallback chain mid-stream — once a chunk has been emitted,
// switching providers would produce an incoherent response, so a failed
// stream surfaces immediately rather than silently restarting elsewhere.
func (r *Router) StreamGenerate(ctx context.Context, useCase domain.UseCase, messages []Message, opts Options) (<-chan Chunk, error) {
	cfg := resolve(r.config, useCase)
	opts = mergeOptions(cfg, opts)

	provider, ok := r.registry.chat[cfg.Provider]
	if !ok {
		return nil, domain.NewError(domain.KindLLMUnavailable, "no provider registered: %q", cfg.Provider)
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	chunks, err := provider.StreamGenerate(callCtx, cfg.Model, messages, opts)
	if err != nil {
		cancel()
		return nil, domain.Wrap(domain.KindLLMUnavailable, err, "stream_generate provider=%s model=%s", cfg.Provider, cfg.Model)
	}

	out := make(chan Chunk)
	go func() {
		defer cancel()
		defer close(out)
		for c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
			if c.Done || c.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

// EmbedBatch runs embed_batch for use-cases that need it without going
// through internal/embed's caching/truncation pipeline (C6 wraps this with
// that pipeline for the ingest/search paths).
func (r *Router) EmbedBatch(ctx context.Context, providerName, model string, texts []string) ([][]float32, error) {
	provider, ok := r.registry.embed[providerName]
	if !ok {
		return nil, domain.NewError(domain.KindLLMUnavailable, "no embedding provider registered: %q", providerName)
	}
	return provider.Embed(ctx, model, texts)
}

func mergeOptions(cfg domain.LLMUseCaseConfig, opts Options) Options {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = cfg.MaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = cfg.Temperature
	}
	if opts.Timeout == 0 {
		opts.Timeout = cfg.Timeout
	}
	return opts
}
