package httpserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/httpserver"
)

func TestRespond_WritesStatusAndJSONBody(t *testing.T) {
	w := httptest.NewRecorder()

	httpserver.Respond(w, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["id"])
}

func TestRespond_NilDataWritesNoBody(t *testing.T) {
	w := httptest.NewRecorder()

	httpserver.Respond(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestRespondError_WritesErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	httpserver.RespondError(w, http.StatusBadRequest, "validation_failure", "query is required")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body httpserver.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_failure", body.Error)
	assert.Equal(t, "query is required", body.Message)
}
