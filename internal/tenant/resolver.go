// Package tenant resolves a caller's tenant identity from inbound request
// metadata. It is deliberately the smallest package in the tree: one pure
// function, no I/O, no global state — every downstream component receives
// the resolved domain.TenantContext explicitly instead of reading one.
package tenant

import (
	"strings"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// HeaderTenantID and HeaderAuthorization are the two header names the
// resolver inspects before falling back to the request host.
const (
	HeaderTenantID      = "X-Tenant-Id"
	HeaderAuthorization = "Authorization"
)

// Config supplies the platform to attach to a resolved tenant and the
// bearer-claim field name to read, when present.
type Config struct {
	Platform domain.Platform
	// BearerClaim is the JWT claim name carrying the tenant id, checked
	// when no X-Tenant-Id header is present. Empty disables this step.
	BearerClaim string
}

// ClaimReader decodes a bearer token into its claim set without this
// package needing to depend on a specific JWT library; callers wire in
// whatever verifier their auth stack already uses.
type ClaimReader func(token string) (map[string]any, error)

// Resolve derives a TenantContext from request headers, in order: an
// explicit tenant header, a bearer-token claim, then the host's leading
// subdomain. The first source that yields a candidate id wins; the
// candidate is then validated regardless of source. Returns a
// domain.KindInvalidTenant error if no source yields a candidate, or if the
// candidate fails validation.
func Resolve(headers map[string]string, host string, cfg Config, readClaim ClaimReader) (domain.TenantContext, error) {
	candidate, found := "", false

	if v := lookupHeader(headers, HeaderTenantID); v != "" {
		candidate, found = v, true
	}

	if !found && cfg.BearerClaim != "" && readClaim != nil {
		if token := bearerToken(lookupHeader(headers, HeaderAuthorization)); token != "" {
			if claims, err := readClaim(token); err == nil {
				if raw, ok := claims[cfg.BearerClaim]; ok {
					if s, ok := raw.(string); ok && s != "" {
						candidate, found = s, true
					}
				}
			}
		}
	}

	if !found && host != "" {
		if sub, ok := domain.TenantDomainSubdomain(host); ok {
			candidate, found = sub, true
		}
	}

	if !found {
		return domain.TenantContext{}, domain.NewError(domain.KindInvalidTenant, "no tenant id found in headers or host %q", host)
	}

	tenantID, err := domain.ParseTenantID(strings.ToLower(candidate))
	if err != nil {
		return domain.TenantContext{}, err
	}

	return domain.TenantContext{TenantID: tenantID, Platform: cfg.Platform}, nil
}

func lookupHeader(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func bearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) > len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return strings.TrimSpace(authHeader[len(prefix):])
	}
	return ""
}
