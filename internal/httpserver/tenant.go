package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/tenant"
)

type tenantContextKey string

const tenantCtxKey tenantContextKey = "tenant"

// TenantFromContext returns the tenant a prior TenantMiddleware call
// resolved, or the zero value if none was resolved (only possible if a
// handler is reached without the middleware, which routing prevents).
func TenantFromContext(ctx context.Context) domain.TenantContext {
	t, _ := ctx.Value(tenantCtxKey).(domain.TenantContext)
	return t
}

// unverifiedBearerClaims decodes a JWT's payload segment without checking
// its signature. §6 only uses the bearer token to read a "tid" claim for
// tenant identification — the security boundary enforced throughout this
// tree is the mandatory tenant_id+platform filter at the vector-store
// gateway (internal/vectorstore.RequireTenantFilter), not this header, so
// no signature-verifying JWT library is pulled in for a claim this system
// never trusts for anything but routing.
func unverifiedBearerClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, domain.NewError(domain.KindInvalidTenant, "malformed bearer token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidTenant, err, "decoding bearer token payload")
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, domain.Wrap(domain.KindInvalidTenant, err, "parsing bearer token claims")
	}
	return claims, nil
}

// TenantMiddleware resolves the caller's tenant per §6 ("X-Tenant-Id
// header, preferred, or a bearer token with a tid claim") and stores it in
// the request context ahead of every handler.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := map[string]string{
			tenant.HeaderTenantID:      r.Header.Get(tenant.HeaderTenantID),
			tenant.HeaderAuthorization: r.Header.Get(tenant.HeaderAuthorization),
		}
		cfg := tenant.Config{Platform: domain.PlatformFreshdesk, BearerClaim: "tid"}

		resolved, err := tenant.Resolve(headers, r.Host, cfg, unverifiedBearerClaims)
		if err != nil {
			RespondDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), tenantCtxKey, resolved)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
