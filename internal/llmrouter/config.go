package llmrouter

import (
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// ConfigSource returns the live use-case configuration map. The router
// calls this on every single call rather than caching the result, so an
// environment edit picked up by the caller's config reloader takes effect
// on the next call without a restart (§4.4, §9 DESIGN NOTES).
type ConfigSource func() map[domain.UseCase]domain.LLMUseCaseConfig

// resolve looks up one use-case's config, falling back to the package
// defaults for any zero-valued field left unset by the source.
func resolve(src ConfigSource, useCase domain.UseCase) domain.LLMUseCaseConfig {
	cfg := src()[useCase]
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout(useCase)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = domain.DefaultCacheTTL(useCase)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return cfg
}

func defaultTimeout(useCase domain.UseCase) time.Duration {
	switch useCase {
	case domain.UseCaseRealtime:
		return 15 * time.Second
	case domain.UseCaseBatch, domain.UseCaseSummary:
		return 60 * time.Second
	case domain.UseCaseQueryAnalysis:
		return 5 * time.Second
	case domain.UseCaseHyDE:
		return 10 * time.Second
	default:
		return 15 * time.Second
	}
}
