package freshdesk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/platform"
	"github.com/wedosoft/ticketrag/internal/platform/freshdesk"
)

func TestFetchTicket_MergesDescriptionAndConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v2/tickets/42":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 42, "subject": "printer broken", "status": 2, "priority": 3,
				"description_text": "my printer is broken",
			})
		case r.URL.Path == "/api/v2/tickets/42/conversations":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"body_text": "have you tried turning it off and on", "private": false},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a, err := freshdesk.New(&freshdesk.Config{Domain: "acme", APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	ticket, convos, _, err := a.FetchTicket(context.Background(), domain.TenantContext{}, "42")
	require.NoError(t, err)
	assert.Equal(t, "printer broken", ticket.Subject)
	assert.Equal(t, "open", ticket.Status)
	require.Len(t, convos, 2)
	assert.Equal(t, "my printer is broken", convos[0].Body)
	assert.Contains(t, convos[1].Body, "turning it off")
}

func TestDo_RateLimitedSurfacesTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a, err := freshdesk.New(&freshdesk.Config{
		Domain:  "acme",
		APIKey:  "key",
		BaseURL: srv.URL,
		Backoff: platform.BackoffPolicy{Base: time.Millisecond, Factor: 2, MaxRetries: 1, Cap: 10 * time.Millisecond},
	})
	require.NoError(t, err)

	_, _, _, err = a.FetchTicket(context.Background(), domain.TenantContext{}, "1")
	require.Error(t, err)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
}

func TestDo_AuthFailureSurfacesTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a, err := freshdesk.New(&freshdesk.Config{Domain: "acme", APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, _, _, err = a.FetchTicket(context.Background(), domain.TenantContext{}, "1")
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthFailure, domain.KindOf(err))
}
