package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/embed"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

// hydeSystemPrompt asks the configured use case for a short hypothetical
// answer document to expand the query against (§4.10 step 4).
const hydeSystemPrompt = `Write a 3-5 sentence hypothetical support-ticket resolution that would answer the user's question. State it as if it were the actual resolution, with no meta-commentary, no qualifiers, and no mention that this is hypothetical.`

// Engine is C10.
type Engine struct {
	gateway          vectorstore.Gateway
	embedder         *embed.Embedder
	generate         GenerateFunc // may be nil to disable HyDE entirely
	reranker         Reranker     // may be nil to skip reranking
	weights          func(domain.Intent) FusionWeights
	qualityThreshold float64
	preventEmpty     bool
	now              func() time.Time
	logger           *slog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithWeights(f func(domain.Intent) FusionWeights) Option { return func(e *Engine) { e.weights = f } }
func WithQualityThreshold(t float64) Option                  { return func(e *Engine) { e.qualityThreshold = t } }
func WithPreventEmpty(v bool) Option                         { return func(e *Engine) { e.preventEmpty = v } }
func WithClock(now func() time.Time) Option                  { return func(e *Engine) { e.now = now } }
func WithLogger(l *slog.Logger) Option                        { return func(e *Engine) { e.logger = l } }


// New builds an Engine.
func New(gateway vectorstore.Gateway, embedder *embed.Embedder, generate GenerateFunc, reranker Reranker, opts ...Option) *Engine {
	e := &Engine{
		gateway:          gateway,
		embedder:         embedder,
		generate:         generate,
		reranker:         reranker,
		weights:          DefaultFusionWeights,
		qualityThreshold: DefaultQualityThreshold,
		preventEmpty:     true,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs the full conditional-retrieval pipeline (§4.10). Any
// exception past filter construction falls back to plain dense search
// within the same filter; the returned filter is never weakened in the
// fallback path, so a failure degrades ranking quality, never tenant
// isolation.
func (e *Engine) Search(ctx context.Context, req Request) (Result, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	lang := req.Language
	if lang == "" {
		lang = domain.LanguageEnglish
	}

	now := e.now()
	filter := buildFilter(req.Tenant, req.ObjectType, req.Analyzed.Conditions, now)

	result, err := e.run(ctx, req, filter, limit, lang, now)
	if err != nil {
		e.logger.Warn("search: pipeline failed, falling back to plain dense search",
			slog.String("tenant_id", string(req.Tenant.TenantID)), slog.String("err", err.Error()))
		return e.fallback(ctx, req, filter, limit, lang)
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, req Request, filter vectorstore.Filter, limit int, lang domain.Language, now time.Time) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	searchLimit := e.candidateLimit(ctx, filter)

	queryVectors, err := e.embedder.EmbedBatch(ctx, []string{req.Analyzed.SearchText}, []domain.Language{lang})
	if err != nil {
		return Result{}, err
	}
	dense := queryVectors[0].Vector
	sparse := queryVectors[0].Sparse

	var hydeDense []float32
	usedHyDE := false
	if e.shouldRunHyDE(req.Analyzed) {
		if v, ok, err := e.hydeVector(ctx, req, lang); err == nil && ok {
			hydeDense = v
			usedHyDE = true
		} else if err != nil {
			e.logger.Warn("search: hyde expansion failed, continuing without it", slog.String("err", err.Error()))
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var denseHits, hydeHits, sparseHits []vectorstore.Hit
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		hits, err := e.gateway.Search(gctx, vectorstore.Query{Dense: dense, Filter: filter, Limit: searchLimit})
		if err != nil {
			return fmt.Errorf("dense search: %w", err)
		}
		denseHits = hits
		return nil
	})
	if usedHyDE {
		group.Go(func() error {
			hits, err := e.gateway.Search(gctx, vectorstore.Query{Dense: hydeDense, Filter: filter, Limit: searchLimit})
			if err != nil {
				return fmt.Errorf("hyde search: %w", err)
			}
			hydeHits = hits
			return nil
		})
	}
	if len(sparse) > 0 {
		group.Go(func() error {
			hits, err := e.gateway.Search(gctx, vectorstore.Query{Sparse: sparse, Filter: filter, Limit: searchLimit})
			if err != nil {
				return fmt.Errorf("sparse search: %w", err)
			}
			sparseHits = hits
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	denseHits = mergeHyDEHits(denseHits, hydeHits)

	fused := fuse(denseHits, sparseHits, e.weights(req.Analyzed.Intent), now)

	reranked, err := rerank(ctx, e.reranker, req.Analyzed.SearchText, fused)
	if err != nil {
		return Result{}, err
	}

	final := e.applyQualityThreshold(reranked)
	if len(final) > limit {
		final = final[:limit]
	}

	return Result{Hits: final, UsedHyDE: usedHyDE}, nil
}

// fallback runs plain dense search within filter, skipping HyDE,
// sparse fusion, and reranking entirely (§4.10 "failure mode").
func (e *Engine) fallback(ctx context.Context, req Request, filter vectorstore.Filter, limit int, lang domain.Language) (Result, error) {
	vectors, err := e.embedder.EmbedBatch(ctx, []string{req.Analyzed.SearchText}, []domain.Language{lang})
	if err != nil {
		return Result{}, domain.Wrap(domain.KindLLMUnavailable, err, "search: fallback embed failed")
	}

	hits, err := e.gateway.Search(ctx, vectorstore.Query{Dense: vectors[0].Vector, Filter: filter, Limit: limit})
	if err != nil {
		return Result{}, domain.Wrap(domain.KindUpstreamTimeout, err, "search: fallback dense search failed")
	}

	scored := make([]ScoredHit, len(hits))
	for i, h := range hits {
		scored[i] = ScoredHit{Hit: h, FusedScore: h.Score}
	}
	return Result{Hits: scored, UsedFallback: true}, nil
}

func (e *Engine) candidateLimit(ctx context.Context, filter vectorstore.Filter) int {
	counter, ok := e.gateway.(CandidateCounter)
	if !ok {
		return HybridTopK
	}
	count, err := counter.Count(ctx, filter)
	if err != nil {
		return HybridTopK
	}
	if count <= ExhaustiveCandidateThreshold {
		if count == 0 {
			return HybridTopK
		}
		return count
	}
	return HybridTopK
}

// shouldRunHyDE applies §4.10 step 4's gate: only complex_conditional
// queries the analyzer was confident enough about are worth a second LLM
// round-trip.
func (e *Engine) shouldRunHyDE(analyzed domain.AnalyzedQuery) bool {
	return e.generate != nil &&
		analyzed.Intent == domain.IntentComplexConditional &&
		analyzed.Confidence >= domain.HyDEConfidenceThreshold
}

func (e *Engine) hydeVector(ctx context.Context, req Request, lang domain.Language) ([]float32, bool, error) {
	text, _, _, err := e.generate(ctx, req.Tenant.TenantID, domain.UseCaseHyDE, hydeSystemPrompt, req.Analyzed.SearchText, 0.4)
	if err != nil {
		return nil, false, err
	}
	vectors, err := e.embedder.EmbedBatch(ctx, []string{text}, []domain.Language{lang})
	if err != nil {
		return nil, false, err
	}
	if vectors[0].Degraded {
		return nil, false, nil
	}
	return vectors[0].Vector, true, nil
}

// applyQualityThreshold drops hits scoring below the configured floor,
// unless that would empty the result entirely and preventEmpty is set, in
// which case the single best hit is kept and flagged low-confidence
// (§4.10 step 8).
func (e *Engine) applyQualityThreshold(hits []ScoredHit) []ScoredHit {
	kept := make([]ScoredHit, 0, len(hits))
	for _, h := range hits {
		if h.bestScore() >= e.qualityThreshold {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 && e.preventEmpty && len(hits) > 0 {
		top := hits[0]
		top.LowConfidence = true
		return []ScoredHit{top}
	}
	return kept
}

// bestScore is the rerank score when reranking ran, else the fused score.
func (h ScoredHit) bestScore() float64 {
	if h.RerankScore != 0 {
		return h.RerankScore
	}
	return h.FusedScore
}
