package httpserver_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/httpserver"
)

func TestTenantMiddleware_ResolvesFromHeader(t *testing.T) {
	var resolved domain.TenantContext
	handler := httpserver.TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = httpserver.TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/query", nil)
	r.Header.Set("X-Tenant-Id", "acme")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.TenantID("acme"), resolved.TenantID)
	assert.Equal(t, domain.PlatformFreshdesk, resolved.Platform)
}

func TestTenantMiddleware_ResolvesFromBearerClaim(t *testing.T) {
	var resolved domain.TenantContext
	handler := httpserver.TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = httpserver.TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := fakeJWT(t, map[string]any{"tid": "globex"})
	r := httptest.NewRequest(http.MethodGet, "/query", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.TenantID("globex"), resolved.TenantID)
}

func TestTenantMiddleware_RejectsMissingTenant(t *testing.T) {
	handler := httpserver.TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run when tenant resolution fails")
	}))

	r := httptest.NewRequest(http.MethodGet, "/query", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantMiddleware_RejectsMalformedBearerToken(t *testing.T) {
	handler := httpserver.TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run when tenant resolution fails")
	}))

	r := httptest.NewRequest(http.MethodGet, "/query", nil)
	r.Header.Set("Authorization", "Bearer not.a.jwt.at.all")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// fakeJWT builds a syntactically valid (unsigned) JWT carrying claims as
// its payload segment, for exercising unverifiedBearerClaims's decode path.
func fakeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString(mustJSON(t, claims))
	return header + "." + payload + ".sig"
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling test claims: %v", err)
	}
	return b
}
