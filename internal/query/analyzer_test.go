package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/query"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAnalyze_SimpleKeywordNoLLM(t *testing.T) {
	a := query.New(nil, query.WithClock(fixedClock(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))))

	result, err := a.Analyze(context.Background(), "t1", "login error")
	require.NoError(t, err)

	assert.Equal(t, domain.IntentSimpleKeyword, result.Intent)
	assert.Equal(t, domain.StrategyHybrid, result.Strategy)
	assert.Equal(t, 0, result.Conditions.Count())
}

func TestAnalyze_PatternPassExtractsTimeAndPriority(t *testing.T) {
	a := query.New(nil, query.WithClock(fixedClock(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))))

	result, err := a.Analyze(context.Background(), "t1", "urgent tickets from yesterday")
	require.NoError(t, err)

	require.NotNil(t, result.Conditions.Priority)
	assert.Equal(t, 4, result.Conditions.Priority.Min)
	require.NotNil(t, result.Conditions.Time)
	assert.Equal(t, 1, result.Conditions.Time.RelativeDays)
}

func TestAnalyze_KoreanTimeAndStatusPhrases(t *testing.T) {
	a := query.New(nil, query.WithClock(fixedClock(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))))

	result, err := a.Analyze(context.Background(), "t1", "어제 열림 상태 티켓")
	require.NoError(t, err)

	require.NotNil(t, result.Conditions.Time)
	assert.Equal(t, 1, result.Conditions.Time.RelativeDays)
	assert.Contains(t, result.Conditions.Status, "open")
}

func TestAnalyze_KoreanComplexConditionalBillingQuery(t *testing.T) {
	a := query.New(nil, query.WithClock(fixedClock(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))))

	result, err := a.Analyze(context.Background(), "t1", "한달 전에 제출된 높은 우선순위 결제 티켓")
	require.NoError(t, err)

	require.NotNil(t, result.Conditions.Time)
	assert.Equal(t, 30, result.Conditions.Time.RelativeDays)
	require.NotNil(t, result.Conditions.Priority)
	assert.Equal(t, 3, result.Conditions.Priority.Min)
	assert.Equal(t, 4, result.Conditions.Priority.Max)
	assert.Contains(t, result.Conditions.Category, "billing")
	assert.Equal(t, domain.IntentComplexConditional, result.Intent)
	assert.Equal(t, domain.StrategyMetadataFirst, result.Strategy)
}

func TestAnalyze_SimilaritySearchIntent(t *testing.T) {
	a := query.New(nil)

	result, err := a.Analyze(context.Background(), "t1", "find similar tickets to this one")
	require.NoError(t, err)

	assert.Equal(t, domain.IntentSimilaritySearch, result.Intent)
}

func TestAnalyze_FunctionalIntentKorean(t *testing.T) {
	a := query.New(nil)

	result, err := a.Analyze(context.Background(), "t1", "내 티켓 목록 보여줘")
	require.NoError(t, err)

	assert.Equal(t, domain.IntentFunctional, result.Intent)
}

func TestAnalyze_ComplexConditionalViaConjunctionEscalatesToLLM(t *testing.T) {
	called := false
	gen := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		called = true
		return `{"search_text":"refund","confidence":0.9,"conditions":{"priority":{"min":3,"max":4},"status":["open"],"category":["billing"]}}`, 10, 20, nil
	}
	a := query.New(gen)

	result, err := a.Analyze(context.Background(), "t1", "urgent billing tickets and they are still open")
	require.NoError(t, err)

	assert.True(t, called)
	assert.Equal(t, domain.IntentComplexConditional, result.Intent)
	assert.Equal(t, domain.StrategyMetadataFirst, result.Strategy)
	assert.Equal(t, "refund", result.SearchText)
	require.NotNil(t, result.Conditions.Priority)
	assert.Equal(t, []string{"billing"}, result.Conditions.Category)
}

func TestAnalyze_LLMFailureFallsBackToPatternResult(t *testing.T) {
	called := false
	gen := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		called = true
		return "", 0, 0, assertError{}
	}
	a := query.New(gen)

	result, err := a.Analyze(context.Background(), "t1", "urgent tickets and they are unresolved")
	require.NoError(t, err)
	assert.True(t, called)
	assert.NotEmpty(t, result.SearchText)
}

func TestAnalyze_LLMInvalidJSONFallsBackToPatternResult(t *testing.T) {
	called := false
	gen := func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		called = true
		return "not json at all", 0, 0, nil
	}
	a := query.New(gen)

	result, err := a.Analyze(context.Background(), "t1", "urgent tickets and they are unresolved")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, result.SearchText, "tickets")
}

type assertError struct{}

func (assertError) Error() string { return "llm unavailable" }
