// Package ragquery implements the /query endpoint's final step (§6's
// "RAG answer"): the C4 call that turns C10's retrieved-and-reranked hits
// into a grounded natural-language answer, completing the diagrammed
// pipeline "Query -> C1 -> C9 -> C10 -> C7 -> rerank -> C4 (answer)".
package ragquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/query"
	"github.com/wedosoft/ticketrag/internal/search"
)

// Mode selects whether a /query call retrieves context at all.
type Mode string

const (
	// ModeRAG retrieves context via C9+C10 before answering.
	ModeRAG Mode = "rag"
	// ModeChat answers directly from the query with no retrieval step, for
	// conversational turns that don't need grounding (e.g. a follow-up
	// clarifying question about an answer already given).
	ModeChat Mode = "chat"
)

// DefaultTopK is how many context documents back a RAG answer when the
// caller doesn't specify one.
const DefaultTopK = 5

// GenerateFunc performs one LLM call. Mirrors internal/summarize's shape
// so every generation call site in this tree is interchangeable.
type GenerateFunc func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (text string, inputTokens, outputTokens int, err error)

// ContextDoc is one retrieved document surfaced back to the caller
// alongside the answer, so the UI can cite or link to it.
type ContextDoc struct {
	ID          string
	ObjectType  domain.ObjectType
	Subject     string
	SummaryText string
	Score       float64
}

// Meta reports what actually produced an Answer.
type Meta struct {
	Mode         Mode
	Intent       domain.Intent
	Strategy     domain.Strategy
	UsedFallback bool
	UsedHyDE     bool
}

// Answer is ragquery.Answerer's result, matching §6's
// `{answer, context_docs[], meta}` response shape.
type Answer struct {
	Text        string
	ContextDocs []ContextDoc
	Meta        Meta
}

// contextPromptTemplate mirrors the teacher pack's contextual-augmenter
// default template: context block, grounding rules, then the query.
const contextPromptTemplate = `Context information is below.

---------------------
%s
---------------------

Given the context information and no prior knowledge, answer the query.

Follow these rules:
1. If the answer is not in the context, say so plainly instead of guessing.
2. Do not say "based on the context" or "the provided information" — just answer.
3. Preserve any product names, account identifiers, or non-English terms verbatim.

Query: %s

Answer:`

const emptyContextAnswer = "I couldn't find anything in the knowledge base or past tickets that answers this. You may want to escalate or search manually."

const chatSystemPrompt = "You are a customer-support assistant answering a direct follow-up question. Answer concisely and do not fabricate ticket or account details you were not given."

const ragSystemPrompt = "You are a customer-support assistant answering from retrieved ticket summaries and knowledge-base articles. Stay grounded in the given context."

// Answerer is the /query endpoint's core.
type Answerer struct {
	analyzer *query.Analyzer
	engine   *search.Engine
	generate GenerateFunc
}

// New builds an Answerer.
func New(analyzer *query.Analyzer, engine *search.Engine, generate GenerateFunc) *Answerer {
	return &Answerer{analyzer: analyzer, engine: engine, generate: generate}
}

// Answer runs mode's pipeline for rawQuery and produces a grounded answer.
func (a *Answerer) Answer(ctx context.Context, tenant domain.TenantContext, rawQuery string, mode Mode, topK int) (Answer, error) {
	if mode == ModeChat {
		text, _, _, err := a.generate(ctx, tenant.TenantID, domain.UseCaseRealtime, chatSystemPrompt, rawQuery, 0.3)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Text: text, Meta: Meta{Mode: ModeChat}}, nil
	}

	if topK <= 0 {
		topK = DefaultTopK
	}

	analyzed, err := a.analyzer.Analyze(ctx, tenant.TenantID, rawQuery)
	if err != nil {
		return Answer{}, err
	}

	result, err := a.engine.Search(ctx, search.Request{
		Tenant:   tenant,
		Analyzed: analyzed,
		Limit:    topK,
	})
	if err != nil {
		return Answer{}, err
	}

	docs := toContextDocs(result.Hits)
	meta := Meta{
		Mode:         ModeRAG,
		Intent:       analyzed.Intent,
		Strategy:     analyzed.Strategy,
		UsedFallback: result.UsedFallback,
		UsedHyDE:     result.UsedHyDE,
	}

	if len(docs) == 0 {
		return Answer{Text: emptyContextAnswer, ContextDocs: docs, Meta: meta}, nil
	}

	prompt := fmt.Sprintf(contextPromptTemplate, renderContext(docs), rawQuery)
	text, _, _, err := a.generate(ctx, tenant.TenantID, domain.UseCaseRealtime, ragSystemPrompt, prompt, 0.3)
	if err != nil {
		return Answer{}, err
	}

	return Answer{Text: text, ContextDocs: docs, Meta: meta}, nil
}

func toContextDocs(hits []search.ScoredHit) []ContextDoc {
	docs := make([]ContextDoc, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, ContextDoc{
			ID:          h.ID,
			ObjectType:  h.Payload.ObjectType,
			Subject:     h.Payload.Subject,
			SummaryText: h.Payload.SummaryText,
			Score:       h.Score,
		})
	}
	return docs
}

func renderContext(docs []ContextDoc) string {
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s\n%s", d.ObjectType, d.Subject, d.SummaryText)
	}
	return b.String()
}
