package llmrouter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// Cache is the TTL-bounded response cache the router checks before calling
// a provider. internal/cache provides a Redis-backed implementation;
// callers may also pass an in-process implementation for tests.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// cacheKey computes the cache key from (use_case, provider, model,
// canonical(messages), options) per §4.4 step 1. tenantID is included
// because LLM response content is tenant-specific (summaries, search
// answers) — unlike the embedding cache in internal/embed, which
// deliberately omits it (§5 "Shared resources").
func cacheKey(tenantID domain.TenantID, useCase domain.UseCase, provider, model string, messages []Message, opts Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", tenantID, useCase, provider, model)
	for _, m := range messages {
		fmt.Fprintf(h, "|%s:%s", m.Role, m.Content)
	}
	fmt.Fprintf(h, "|maxtok=%d|temp=%.3f", opts.MaxTokens, opts.Temperature)
	return hex.EncodeToString(h.Sum(nil))
}
