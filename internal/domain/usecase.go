package domain

import "time"

// UseCase is one of the LLM call sites the router resolves provider/model
// configuration for independently.
type UseCase string

const (
	UseCaseRealtime      UseCase = "realtime"
	UseCaseBatch         UseCase = "batch"
	UseCaseSummary       UseCase = "summary"
	UseCaseQueryAnalysis UseCase = "query_analysis"
	UseCaseHyDE          UseCase = "hyde"
)

// LLMUseCaseConfig is one use-case's provider/model/behavior configuration.
// The router re-reads this from the live config on every call rather than
// caching it, so environment edits apply without a restart.
type LLMUseCaseConfig struct {
	Provider      string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	FallbackChain []FallbackHop
	CacheTTL      time.Duration
}

// FallbackHop is one link in a use-case's bounded fallback chain.
type FallbackHop struct {
	Provider string
	Model    string
}

// MaxFallbackHops bounds how many hops a fallback chain may contain.
const MaxFallbackHops = 3

// DefaultCacheTTL returns the router's default cache TTL per use-case, used
// when a use-case config doesn't set one explicitly.
func DefaultCacheTTL(uc UseCase) time.Duration {
	switch uc {
	case UseCaseSummary, UseCaseBatch:
		return 24 * time.Hour
	case UseCaseQueryAnalysis:
		return 30 * time.Minute
	case UseCaseRealtime:
		return 0
	default:
		return 0
	}
}

// DefaultRetryBase, DefaultRetryFactor and DefaultMaxRetries parameterize
// the router's jittered exponential backoff on RateLimited/TransientNetwork.
const (
	DefaultRetryBase    = 500 * time.Millisecond
	DefaultRetryFactor  = 2.0
	DefaultMaxRetries   = 3
)

// DefaultRealtimeConcurrency and DefaultBatchConcurrency bound per-process
// LLM concurrency per use-case family.
const (
	DefaultRealtimeConcurrency = 10
	DefaultBatchConcurrency    = 20
)
