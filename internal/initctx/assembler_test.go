package initctx_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/embed"
	"github.com/wedosoft/ticketrag/internal/initctx"
	"github.com/wedosoft/ticketrag/internal/platform"
	"github.com/wedosoft/ticketrag/internal/search"
	"github.com/wedosoft/ticketrag/internal/summarize"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

type fakeAdapter struct {
	ticket        platform.RawTicket
	conversations []platform.RawConversation
}

func (a *fakeAdapter) ListUpdated(ctx context.Context, tenant domain.TenantContext, since time.Time, cursor string) ([]platform.ObjectSummary, string, error) {
	return nil, "", nil
}

func (a *fakeAdapter) FetchTicket(ctx context.Context, tenant domain.TenantContext, id string) (platform.RawTicket, []platform.RawConversation, []platform.RawAttachment, error) {
	return a.ticket, a.conversations, nil, nil
}

func (a *fakeAdapter) FetchKB(ctx context.Context, tenant domain.TenantContext, id string) (platform.RawKBArticle, error) {
	return platform.RawKBArticle{}, nil
}

func (a *fakeAdapter) RateLimits() platform.RateLimits { return platform.RateLimits{ConcurrentMax: 5} }

type fakeGateway struct {
	ticketHits []vectorstore.Hit
	kbHits     []vectorstore.Hit
}

func (g *fakeGateway) EnsureCollection(ctx context.Context) error                    { return nil }
func (g *fakeGateway) Upsert(ctx context.Context, points []domain.VectorPoint) error { return nil }
func (g *fakeGateway) Delete(ctx context.Context, filter vectorstore.Filter) error   { return nil }

func (g *fakeGateway) Search(ctx context.Context, query vectorstore.Query) ([]vectorstore.Hit, error) {
	for _, c := range query.Filter.Must {
		if c.Field == "object_type" {
			if c.Value == domain.ObjectTypeKBArticle {
				return g.kbHits, nil
			}
			return g.ticketHits, nil
		}
	}
	return nil, nil
}

func fakeEmbedder() *embed.Embedder {
	embedFn := func(ctx context.Context, model string, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0.1, 0.2}
		}
		return out, nil
	}
	return embed.New(embed.Config{Model: "test"}, embedFn, nil, nil)
}

func ticketHit(id string) vectorstore.Hit {
	return vectorstore.Hit{ID: id, Score: 0.9, Payload: domain.Payload{
		TenantID: "t1", Platform: domain.PlatformFreshdesk, ObjectType: domain.ObjectTypeTicket,
		OriginalID: id, CreatedAt: time.Now().Unix(), Subject: "s-" + id, SummaryText: "sum-" + id,
	}}
}

func kbHit(id string) vectorstore.Hit {
	return vectorstore.Hit{ID: id, Score: 0.9, Payload: domain.Payload{
		TenantID: "t1", Platform: domain.PlatformFreshdesk, ObjectType: domain.ObjectTypeKBArticle,
		OriginalID: id, CreatedAt: time.Now().Unix(), Subject: "kb-" + id, SummaryText: "kbsum-" + id,
	}}
}

func TestAssemble_PackagesSummaryAndExcludesSelf(t *testing.T) {
	tenant := domain.TenantContext{TenantID: "t1", Platform: domain.PlatformFreshdesk}
	adapter := &fakeAdapter{
		ticket: platform.RawTicket{OriginalID: "42", Subject: "Cannot log in", Status: "open", Priority: 3, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		conversations: []platform.RawConversation{{Body: "I get an error on login", CreatedAt: time.Now()}},
	}
	gw := &fakeGateway{
		ticketHits: []vectorstore.Hit{ticketHit("42"), ticketHit("7"), ticketHit("8")},
		kbHits:     []vectorstore.Hit{kbHit("100")},
	}

	templates := &summarize.Store{}
	templates.Put(summarize.Key{ObjectType: domain.ObjectTypeTicket, SummaryType: domain.SummaryTypeRealtime, Language: domain.LanguageEnglish},
		summarize.Template{SystemPrompt: "Summarize.", RequiredSections: []string{"Issue", "Root Cause", "Resolution", "Next Steps"}})

	generate := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		return "Issue: login fails\nRoot Cause: bad password\nResolution: reset it\nNext Steps: none", 10, 10, nil
	}
	summarizer := summarize.New(templates, generate, 0, nil)

	engine := search.New(gw, fakeEmbedder(), nil, nil)
	assembler := initctx.New(adapter, summarizer, engine)

	resp, err := assembler.Assemble(context.Background(), tenant, "42")
	require.NoError(t, err)

	require.Len(t, resp.SimilarTickets, 2)
	for _, h := range resp.SimilarTickets {
		assert.NotEqual(t, "42", h.Payload.OriginalID)
	}
	require.Len(t, resp.KBArticles, 1)
	assert.Equal(t, "100", resp.KBArticles[0].Payload.OriginalID)
	assert.NotEmpty(t, resp.Summary.FullText)
}
