// Package initctx implements C11: assembling the open-ticket context
// package (fresh summary, similar tickets, related KB articles) a support
// agent's screen loads on opening a ticket.
package initctx

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/integration"
	"github.com/wedosoft/ticketrag/internal/platform"
	"github.com/wedosoft/ticketrag/internal/search"
	"github.com/wedosoft/ticketrag/internal/summarize"
)

// DefaultSimilarTicketLimit and DefaultKBArticleLimit are §4.11's default
// top-K counts.
const (
	DefaultSimilarTicketLimit = 5
	DefaultKBArticleLimit     = 5
)

// Response is C11's packaged output, matching §6's /init/{ticket_id}
// schema.
type Response struct {
	Summary        domain.Summary
	SimilarTickets []search.ScoredHit
	KBArticles     []search.ScoredHit
	Performance    Performance
}

// Performance reports per-stage timings, surfaced under the response's
// "performance" field (§6).
type Performance struct {
	Total          time.Duration
	FetchTicket    time.Duration
	Summary        time.Duration
	SimilarTickets time.Duration
	KBArticles     time.Duration
}

// Assembler is C11.
type Assembler struct {
	adapter            platform.Adapter
	summarizer         *summarize.Summarizer
	searchEngine       *search.Engine
	similarTicketLimit int
	kbArticleLimit     int
	logger             *slog.Logger
	now                func() time.Time
}

// Option configures an Assembler at construction time.
type Option func(*Assembler)

func WithSimilarTicketLimit(n int) Option { return func(a *Assembler) { a.similarTicketLimit = n } }
func WithKBArticleLimit(n int) Option     { return func(a *Assembler) { a.kbArticleLimit = n } }
func WithLogger(l *slog.Logger) Option    { return func(a *Assembler) { a.logger = l } }
func WithClock(now func() time.Time) Option { return func(a *Assembler) { a.now = now } }

// New builds an Assembler.
func New(adapter platform.Adapter, summarizer *summarize.Summarizer, searchEngine *search.Engine, opts ...Option) *Assembler {
	a := &Assembler{
		adapter:            adapter,
		summarizer:         summarizer,
		searchEngine:       searchEngine,
		similarTicketLimit: DefaultSimilarTicketLimit,
		kbArticleLimit:     DefaultKBArticleLimit,
		logger:             slog.Default(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble runs C11's 4-step pipeline for one open ticket (§4.11).
func (a *Assembler) Assemble(ctx context.Context, tenant domain.TenantContext, ticketID string) (Response, error) {
	start := a.now()

	fetchStart := a.now()
	raw, conversations, attachments, err := a.adapter.FetchTicket(ctx, tenant, ticketID)
	if err != nil {
		return Response{}, domain.Wrap(domain.KindUpstreamTimeout, err, "initctx: fetching ticket %s", ticketID)
	}
	obj, err := integration.BuildTicket(tenant, raw, conversations, attachments)
	if err != nil {
		return Response{}, err
	}
	fetchDuration := a.now().Sub(fetchStart)

	var (
		summary     domain.Summary
		similarHits []search.ScoredHit
		kbHits      []search.ScoredHit
		summaryDur  time.Duration
		similarDur  time.Duration
		kbDur       time.Duration
	)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		st := a.now()
		defer func() { summaryDur = a.now().Sub(st) }()
		s, err := a.summarizer.Summarize(gctx, obj, domain.SummaryTypeRealtime, 0)
		if err != nil {
			return err
		}
		summary = s
		return nil
	})
	group.Go(func() error {
		st := a.now()
		defer func() { similarDur = a.now().Sub(st) }()
		hits, err := a.searchSimilarTickets(gctx, tenant, obj, ticketID)
		if err != nil {
			return err
		}
		similarHits = hits
		return nil
	})
	group.Go(func() error {
		st := a.now()
		defer func() { kbDur = a.now().Sub(st) }()
		hits, err := a.searchRelatedKB(gctx, tenant, obj)
		if err != nil {
			return err
		}
		kbHits = hits
		return nil
	})

	if err := group.Wait(); err != nil {
		return Response{}, err
	}

	return Response{
		Summary:        summary,
		SimilarTickets: similarHits,
		KBArticles:     kbHits,
		Performance: Performance{
			Total:          a.now().Sub(start),
			FetchTicket:    fetchDuration,
			Summary:        summaryDur,
			SimilarTickets: similarDur,
			KBArticles:     kbDur,
		},
	}, nil
}

// queryFor builds the content-driven AnalyzedQuery C10 runs against, as
// opposed to C9's free-text agent queries: §4.11 step 3 searches on "the
// ticket's subject+body", not on anything an agent typed.
func queryFor(obj domain.IntegratedObject) domain.AnalyzedQuery {
	return domain.AnalyzedQuery{
		Intent:     domain.IntentSimilaritySearch,
		SearchText: obj.Subject + "\n" + obj.BodyText,
		Strategy:   domain.StrategyHybrid,
		Confidence: 1.0,
	}
}

func (a *Assembler) searchSimilarTickets(ctx context.Context, tenant domain.TenantContext, obj domain.IntegratedObject, excludeOriginalID string) ([]search.ScoredHit, error) {
	result, err := a.searchEngine.Search(ctx, search.Request{
		Tenant:     tenant,
		Analyzed:   queryFor(obj),
		ObjectType: domain.ObjectTypeTicket,
		Language:   obj.Language,
		Limit:      a.similarTicketLimit + 1, // +1 so excluding the subject ticket still leaves a full page
	})
	if err != nil {
		return nil, err
	}
	return excludeSelf(result.Hits, excludeOriginalID, a.similarTicketLimit), nil
}

func (a *Assembler) searchRelatedKB(ctx context.Context, tenant domain.TenantContext, obj domain.IntegratedObject) ([]search.ScoredHit, error) {
	result, err := a.searchEngine.Search(ctx, search.Request{
		Tenant:     tenant,
		Analyzed:   queryFor(obj),
		ObjectType: domain.ObjectTypeKBArticle,
		Language:   obj.Language,
		Limit:      a.kbArticleLimit,
	})
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// excludeSelf drops the requesting ticket from a similar-tickets result
// post-retrieval (§4.11: "dropped after retrieval, not filtered server-
// side, because the vector DB filter language is constrained to must
// equalities"), then truncates to limit.
func excludeSelf(hits []search.ScoredHit, selfOriginalID string, limit int) []search.ScoredHit {
	out := make([]search.ScoredHit, 0, len(hits))
	for _, h := range hits {
		if h.Payload.OriginalID == selfOriginalID {
			continue
		}
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out
}
