// Package search implements C10, the Conditional Search Engine: turning a
// C9 AnalyzedQuery into vector-store filters, running hybrid dense+sparse
// retrieval with optional HyDE expansion, fusing and reranking the result,
// and falling back to plain dense search within the tenant filter on any
// mid-pipeline failure.
package search

import (
	"context"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

// ExhaustiveCandidateThreshold is the filtered-candidate-count cutoff
// below which C10 ranks every matching candidate rather than running a
// top-K approximate search (§4.10 step 2).
const ExhaustiveCandidateThreshold = 200

// HybridTopK is the per-leg result count requested from the gateway when
// the filtered candidate set is too large to rank exhaustively.
const HybridTopK = 50

// RerankTopK is K2: how many fused candidates are sent to the cross-
// encoder reranker (§4.10 step 7).
const RerankTopK = 20

// DefaultQualityThreshold is the post-rerank score floor below which a hit
// is dropped, absent tenant-specific configuration (§4.10 step 8).
const DefaultQualityThreshold = 0.05

// Request is one C10 invocation.
type Request struct {
	Tenant     domain.TenantContext
	Analyzed   domain.AnalyzedQuery
	ObjectType domain.ObjectType // "" = no object_type restriction
	Language   domain.Language   // query text's language, for sparse tokenization; defaults to English
	Limit      int               // final hit count requested; 0 uses DefaultLimit
}

// DefaultLimit is how many hits Search returns absent an explicit Limit.
const DefaultLimit = 10

// ScoredHit is one ranked result, carrying every score C10 computed for it.
type ScoredHit struct {
	vectorstore.Hit
	FusedScore    float64
	RerankScore   float64
	LowConfidence bool // true only when prevent_empty kept an otherwise-below-threshold top hit
}

// Result is C10's output.
type Result struct {
	Hits         []ScoredHit
	UsedHyDE     bool
	UsedFallback bool // true if the pipeline degraded to plain dense search
}

// FusionWeights controls Reciprocal Rank Fusion's dense/sparse balance and
// the recency bonus (§4.10 step 6).
type FusionWeights struct {
	Dense         float64
	Sparse        float64
	RecencyWeight float64
}

// DefaultFusionWeights returns §4.9's default weights for intent:
// complex_conditional and simple_keyword both favor sparse signal,
// everything else favors dense signal.
func DefaultFusionWeights(intent domain.Intent) FusionWeights {
	switch intent {
	case domain.IntentComplexConditional, domain.IntentSimpleKeyword:
		return FusionWeights{Dense: 0.4, Sparse: 0.6, RecencyWeight: 0.15}
	default:
		return FusionWeights{Dense: 0.7, Sparse: 0.3, RecencyWeight: 0.15}
	}
}

// CandidateCounter is an optional Gateway capability used to size the
// filtered candidate set before choosing between the exhaustive and
// hybrid paths. Gateways that don't implement it are always treated as
// over threshold, which only costs an optimization, never correctness.
type CandidateCounter interface {
	Count(ctx context.Context, filter vectorstore.Filter) (int, error)
}

// GenerateFunc performs one LLM call for the HyDE use case. Mirrors
// internal/summarize and internal/query's function-type seam.
type GenerateFunc func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (text string, inputTokens, outputTokens int, err error)

// recencyBonus scores how recent createdAt is relative to now, linearly
// decayed to 0 at recencyHorizon and clamped to [0,1]. Used to add a small
// recency-weighted bump to the fused score (§4.10 step 6).
const recencyHorizon = 180 * 24 * time.Hour

func recencyBonus(createdAt time.Time, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	if age >= recencyHorizon {
		return 0
	}
	return 1 - float64(age)/float64(recencyHorizon)
}
