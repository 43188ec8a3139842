package ragquery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/embed"
	"github.com/wedosoft/ticketrag/internal/query"
	"github.com/wedosoft/ticketrag/internal/ragquery"
	"github.com/wedosoft/ticketrag/internal/search"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

type fakeGateway struct {
	hits []vectorstore.Hit
}

func (g *fakeGateway) EnsureCollection(ctx context.Context) error { return nil }
func (g *fakeGateway) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	return nil
}
func (g *fakeGateway) Delete(ctx context.Context, filter vectorstore.Filter) error { return nil }
func (g *fakeGateway) Search(ctx context.Context, q vectorstore.Query) ([]vectorstore.Hit, error) {
	return g.hits, nil
}

func fakeEmbedder(t *testing.T) *embed.Embedder {
	t.Helper()
	embedFn := func(ctx context.Context, model string, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0.1, 0.2, 0.3}
		}
		return out, nil
	}
	return embed.New(embed.Config{Model: "test-embed"}, embedFn, nil, nil)
}

func hit(id string) vectorstore.Hit {
	return vectorstore.Hit{ID: id, Score: 0.9, Payload: domain.Payload{
		TenantID: "t1", Platform: domain.PlatformFreshdesk, CreatedAt: time.Now().Unix(),
		ObjectType: domain.ObjectTypeTicket, Subject: "printer won't connect",
		SummaryText: "customer's printer drops wifi after firmware update",
	}}
}

func tenant() domain.TenantContext {
	return domain.TenantContext{TenantID: "t1", Platform: domain.PlatformFreshdesk}
}

func TestAnswer_ChatModeSkipsRetrieval(t *testing.T) {
	var gotPrompt string
	gen := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		gotPrompt = userContent
		return "sure, here's a quick clarification", 10, 10, nil
	}
	engine := search.New(&fakeGateway{}, fakeEmbedder(t), nil, nil)
	a := ragquery.New(query.New(nil), engine, gen)

	answer, err := a.Answer(context.Background(), tenant(), "what did you mean by that?", ragquery.ModeChat, 0)
	require.NoError(t, err)

	assert.Equal(t, "what did you mean by that?", gotPrompt)
	assert.Equal(t, "sure, here's a quick clarification", answer.Text)
	assert.Empty(t, answer.ContextDocs)
	assert.Equal(t, ragquery.ModeChat, answer.Meta.Mode)
}

func TestAnswer_RAGModeGroundsPromptInRetrievedHits(t *testing.T) {
	var gotPrompt string
	gen := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		gotPrompt = userContent
		assert.Equal(t, domain.UseCaseRealtime, useCase)
		return "reinstall the printer driver after the firmware update", 20, 15, nil
	}
	engine := search.New(&fakeGateway{hits: []vectorstore.Hit{hit("t-1")}}, fakeEmbedder(t), nil, nil)
	a := ragquery.New(query.New(nil), engine, gen)

	answer, err := a.Answer(context.Background(), tenant(), "printer keeps disconnecting from wifi", ragquery.ModeRAG, 3)
	require.NoError(t, err)

	assert.Contains(t, gotPrompt, "printer drops wifi after firmware update")
	assert.Contains(t, gotPrompt, "printer keeps disconnecting from wifi")
	require.Len(t, answer.ContextDocs, 1)
	assert.Equal(t, "t-1", answer.ContextDocs[0].ID)
	assert.Equal(t, domain.ObjectTypeTicket, answer.ContextDocs[0].ObjectType)
	assert.False(t, answer.Meta.UsedFallback)
}

func TestAnswer_RAGModeWithNoHitsSkipsGenerationAndSaysSo(t *testing.T) {
	called := false
	gen := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		called = true
		return "should not be called", 0, 0, nil
	}
	engine := search.New(&fakeGateway{}, fakeEmbedder(t), nil, nil)
	a := ragquery.New(query.New(nil), engine, gen)

	answer, err := a.Answer(context.Background(), tenant(), "something nobody ever asked before", ragquery.ModeRAG, 5)
	require.NoError(t, err)

	assert.False(t, called)
	assert.Empty(t, answer.ContextDocs)
	assert.Contains(t, answer.Text, "couldn't find")
}

func TestAnswer_DefaultTopKAppliedWhenUnset(t *testing.T) {
	gen := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		return "answer", 1, 1, nil
	}
	engine := search.New(&fakeGateway{hits: []vectorstore.Hit{hit("t-1")}}, fakeEmbedder(t), nil, nil)
	a := ragquery.New(query.New(nil), engine, gen)

	answer, err := a.Answer(context.Background(), tenant(), "login error", ragquery.ModeRAG, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, answer.ContextDocs)
}
