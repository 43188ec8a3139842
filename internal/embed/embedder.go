// Package embed implements C6: truncation, empty-text sentinel handling,
// batching with backoff, per-text caching, degrade on failure (a failed
// text gets Degraded set and a nil vector), and optional sparse keyword
// vectors.
package embed

import (
	"context"
	"log/slog"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/platform"
)

// emptySentinel replaces an empty input string so batch position alignment
// survives round-tripping through the provider.
const emptySentinel = "[empty]"

// DefaultMaxInputChars is the cheap character cut applied before
// tokenizing: it bounds how much text tiktoken has to encode. Every
// non-empty text still goes through the token pass when the encoding loaded.
const DefaultMaxInputChars = 32_000

// DefaultMaxInputTokens approximates the token budget of a typical 8k-
// token embedding model, leaving headroom for the provider's own
// chunking overhead.
const DefaultMaxInputTokens = 8_000

// DefaultBatchSize is the default number of texts sent per provider call.
const DefaultBatchSize = 100

// DefaultCacheTTL is the embedding cache's default entry lifetime.
const DefaultCacheTTL = 7 * 24 * time.Hour

// EmbedFunc calls the configured embedding provider for one batch of
// texts. Bound to llmrouter.Router.EmbedBatch by the caller; kept as a
// function type here so this package doesn't import llmrouter directly.
type EmbedFunc func(ctx context.Context, model string, texts []string) ([][]float32, error)

// Cache is the (model, content-hash) keyed embedding cache. Deliberately
// has no tenant dimension: embeddings of identical text are identical
// regardless of which tenant asked for them (§5 "Shared resources").
type Cache interface {
	Get(ctx context.Context, key domain.EmbeddingCacheKey) ([]float32, bool, error)
	Set(ctx context.Context, key domain.EmbeddingCacheKey, vector []float32, ttl time.Duration) error
}

// Config configures one Embedder instance, one per embedding model.
type Config struct {
	Model          string
	MaxInputChars  int
	MaxInputTokens int
	BatchSize      int
	CacheTTL       time.Duration
	Backoff        platform.BackoffPolicy
	Sparse         bool
}

func (c Config) withDefaults() Config {
	if c.MaxInputChars == 0 {
		c.MaxInputChars = DefaultMaxInputChars
	}
	if c.MaxInputTokens == 0 {
		c.MaxInputTokens = DefaultMaxInputTokens
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Backoff == (platform.BackoffPolicy{}) {
		c.Backoff = platform.DefaultBackoffPolicy
	}
	return c
}

// Result is one text's embedding outcome.
type Result struct {
	Vector       []float32
	Sparse       domain.SparseVector
	Degraded     bool // true if the provider call failed; Vector is then nil, not a zero vector
	CacheHit     bool
}

// Embedder is C6.
type Embedder struct {
	cfg       Config
	embed     EmbedFunc
	cache     Cache
	logger    *slog.Logger
	stopwords map[domain.Language]map[string]struct{}
	tokens    *tokenEncoding
}

// New builds an Embedder. embedFn performs the actual network call (wire
// in llmrouter.Router.EmbedBatch); cache may be nil to disable caching.
// If the tiktoken encoding can't be loaded, truncation falls back to the
// character-count cutoff alone rather than failing construction.
func New(cfg Config, embedFn EmbedFunc, cache Cache, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	tokens, err := newTokenEncoding()
	if err != nil {
		logger.Warn("embed: tiktoken encoding unavailable, truncating by character count only", slog.String("err", err.Error()))
		tokens = nil
	}
	return &Embedder{
		cfg:       cfg.withDefaults(),
		embed:     embedFn,
		cache:     cache,
		logger:    logger,
		stopwords: defaultStopwords(),
		tokens:    tokens,
	}
}

// EmbedBatch embeds every text in texts, in order, applying truncation,
// empty-sentinel substitution, caching, batching and degrade-on-failure.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, languages []domain.Language) ([]Result, error) {
	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = e.prepare(t)
	}

	results := make([]Result, len(texts))
	misses := make([]int, 0, len(texts))

	if e.cache != nil {
		for i, t := range prepared {
			key := domain.EmbeddingCacheKey{Model: e.cfg.Model, ContentHash: domain.HashText(t)}
			if v, ok, err := e.cache.Get(ctx, key); err == nil && ok {
				results[i] = Result{Vector: v, CacheHit: true}
				continue
			}
			misses = append(misses, i)
		}
	} else {
		for i := range prepared {
			misses = append(misses, i)
		}
	}

	for start := 0; start < len(misses); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(misses) {
			end = len(misses)
		}
		batchIdx := misses[start:end]
		batchTexts := make([]string, len(batchIdx))
		for i, idx := range batchIdx {
			batchTexts[i] = prepared[idx]
		}

		vectors, err := e.embedWithRetry(ctx, batchTexts)
		if err != nil {
			e.logger.Error("embed: batch failed, marking results degraded",
				slog.Int("batch_start", start), slog.String("err", err.Error()))
			for _, idx := range batchIdx {
				results[idx] = Result{Degraded: true}
			}
			continue
		}
		for i, idx := range batchIdx {
			results[idx].Vector = vectors[i]
			if e.cache != nil {
				key := domain.EmbeddingCacheKey{Model: e.cfg.Model, ContentHash: domain.HashText(prepared[idx])}
				_ = e.cache.Set(ctx, key, vectors[i], e.cfg.CacheTTL)
			}
		}
	}

	if e.cfg.Sparse {
		for i, t := range prepared {
			lang := domain.LanguageEnglish
			if i < len(languages) {
				lang = languages[i]
			}
			results[i].Sparse = e.sparseVector(t, lang)
		}
	}

	return results, nil
}

func (e *Embedder) prepare(text string) string {
	if text == "" {
		return emptySentinel
	}
	runes := []rune(text)
	if len(runes) > e.cfg.MaxInputChars {
		text = string(runes[:e.cfg.MaxInputChars-1]) + "…"
	}
	if e.tokens != nil {
		return e.tokens.truncate(text, e.cfg.MaxInputTokens)
	}
	return text
}

func (e *Embedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.Backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.cfg.Backoff.Sleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		vectors, err := e.embed(ctx, e.cfg.Model, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !domain.Retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}
