package summarize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/summarize"
)

const goodSummary = `## Problem
The customer could not log in after a password reset.

## Root Cause
The reset email link expired before the customer opened it.

## Resolution
We fixed the issue by resending a new link and extending link validity.

## Insights
Consider raising the link validity window to reduce repeat tickets.`

func newStore(t *testing.T) *summarize.Store {
	t.Helper()
	store := &summarize.Store{}
	store.Put(summarize.Key{ObjectType: domain.ObjectTypeTicket, SummaryType: domain.SummaryTypeBatch, Language: domain.LanguageEnglish},
		summarize.Template{
			SystemPrompt:      "Summarize the ticket.",
			RequiredSections:  []string{"Problem", "Root Cause", "Resolution", "Insights"},
			AntiHallucination: []string{"Never omit company names, dates, domain names, or URLs."},
		})
	return store
}

func TestSummarize_HighQualityPassesOnFirstAttempt(t *testing.T) {
	store := newStore(t)
	calls := 0
	gen := func(_ context.Context, _ domain.TenantID, _ domain.UseCase, _, _ string, _ float64) (string, int, int, error) {
		calls++
		return goodSummary, 200, 150, nil
	}
	s := summarize.New(store, gen, 0, nil)

	obj := domain.IntegratedObject{TenantID: "acme", ObjectType: domain.ObjectTypeTicket, Subject: "Login issue", BodyText: "Customer cannot log in.", Language: domain.LanguageEnglish}
	summary, err := s.Summarize(context.Background(), obj, domain.SummaryTypeBatch, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, summary.QualityFlag)
	assert.False(t, summary.RegeneratedOnce)
	assert.True(t, summary.HasAllSections())
}

func TestSummarize_LowQualityRegeneratesOnce(t *testing.T) {
	store := newStore(t)
	calls := 0
	gen := func(_ context.Context, _ domain.TenantID, _ domain.UseCase, _, _ string, _ float64) (string, int, int, error) {
		calls++
		if calls == 1 {
			return "too short", 10, 5, nil
		}
		return goodSummary, 200, 150, nil
	}
	s := summarize.New(store, gen, 0, nil)

	obj := domain.IntegratedObject{TenantID: "acme", ObjectType: domain.ObjectTypeTicket, Subject: "Login issue", BodyText: "Customer cannot log in.", Language: domain.LanguageEnglish}
	summary, err := s.Summarize(context.Background(), obj, domain.SummaryTypeBatch, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, summary.RegeneratedOnce)
	assert.True(t, summary.HasAllSections())
}

func TestSummarize_SecondFailureFlagsLowButDoesNotError(t *testing.T) {
	store := newStore(t)
	gen := func(_ context.Context, _ domain.TenantID, _ domain.UseCase, _, _ string, _ float64) (string, int, int, error) {
		return "still too short", 10, 5, nil
	}
	s := summarize.New(store, gen, 0, nil)

	obj := domain.IntegratedObject{TenantID: "acme", ObjectType: domain.ObjectTypeTicket, Subject: "Login issue", BodyText: "Customer cannot log in.", Language: domain.LanguageEnglish}
	summary, err := s.Summarize(context.Background(), obj, domain.SummaryTypeBatch, 10)
	require.NoError(t, err)
	assert.Equal(t, "low", summary.QualityFlag)
}
