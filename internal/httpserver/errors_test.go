package httpserver_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/httpserver"
)

func TestRespondDomainError_MapsKindToStatus(t *testing.T) {
	tests := []struct {
		kind       domain.Kind
		wantStatus int
	}{
		{domain.KindInvalidTenant, http.StatusBadRequest},
		{domain.KindInvalidQuery, http.StatusBadRequest},
		{domain.KindValidationFailure, http.StatusBadRequest},
		{domain.KindAuthFailure, http.StatusUnauthorized},
		{domain.KindMissingTenantFilter, http.StatusForbidden},
		{domain.KindTenantLeak, http.StatusForbidden},
		{domain.KindRateLimited, http.StatusTooManyRequests},
		{domain.KindUpstreamTimeout, http.StatusGatewayTimeout},
		{domain.KindLLMUnavailable, http.StatusServiceUnavailable},
		{domain.KindQualityBelowThresh, http.StatusServiceUnavailable},
		{domain.KindPermanentClientError, http.StatusBadRequest},
		{domain.KindCancelled, 499},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			w := httptest.NewRecorder()
			httpserver.RespondDomainError(w, domain.NewError(tt.kind, "boom"))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body httpserver.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.kind), body.Error)
		})
	}
}

func TestRespondDomainError_NonDomainErrorIsInternalError(t *testing.T) {
	w := httptest.NewRecorder()

	httpserver.RespondDomainError(w, errors.New("unexpected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body httpserver.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error)
}
