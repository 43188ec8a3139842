package servicecontext

import (
	"encoding/json"
	"fmt"

	"github.com/wedosoft/ticketrag/internal/config"
	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/platform"
)

// TenantRecord is one onboarded tenant's platform credentials.
type TenantRecord struct {
	TenantID domain.TenantID
	Platform domain.Platform
	Domain   string // Freshdesk subdomain
	APIKey   string
}

// TenantRegistry holds every onboarded tenant's credentials, seeded once
// at process start. It is deliberately not a database-backed component:
// §6's configuration table has no tenant-onboarding endpoint, so credential
// management is an operator/config concern rather than a runtime one.
type TenantRegistry struct {
	byID map[domain.TenantID]TenantRecord
}

type tenantCredentialEntry struct {
	TenantID string `json:"tenant_id"`
	Domain   string `json:"domain"`
	APIKey   string `json:"api_key"`
}

// NewTenantRegistry parses cfg.TenantCredentialsJSON into a registry. When
// that's empty, it falls back to a single tenant derived from
// cfg.TenantDomain + cfg.FreshdeskAPIKey, matching a single-tenant
// deployment's minimal configuration surface.
func NewTenantRegistry(cfg *config.Config) (*TenantRegistry, error) {
	reg := &TenantRegistry{byID: map[domain.TenantID]TenantRecord{}}

	if cfg.TenantCredentialsJSON == "" {
		if cfg.TenantDomain == "" {
			return reg, nil
		}
		tenantID, err := domain.ParseTenantID(cfg.TenantDomain)
		if err != nil {
			return nil, fmt.Errorf("servicecontext: default tenant: %w", err)
		}
		reg.byID[tenantID] = TenantRecord{
			TenantID: tenantID,
			Platform: domain.PlatformFreshdesk,
			Domain:   cfg.TenantDomain,
			APIKey:   cfg.FreshdeskAPIKey,
		}
		return reg, nil
	}

	var entries []tenantCredentialEntry
	if err := json.Unmarshal([]byte(cfg.TenantCredentialsJSON), &entries); err != nil {
		return nil, fmt.Errorf("servicecontext: parsing TENANT_CREDENTIALS_JSON: %w", err)
	}
	for _, e := range entries {
		tenantID, err := domain.ParseTenantID(e.TenantID)
		if err != nil {
			return nil, fmt.Errorf("servicecontext: tenant %q: %w", e.TenantID, err)
		}
		reg.byID[tenantID] = TenantRecord{
			TenantID: tenantID,
			Platform: domain.PlatformFreshdesk,
			Domain:   e.Domain,
			APIKey:   e.APIKey,
		}
	}
	return reg, nil
}

// Lookup returns the credential record for a tenant, or false if unknown.
func (r *TenantRegistry) Lookup(tenantID domain.TenantID) (TenantRecord, bool) {
	rec, ok := r.byID[tenantID]
	return rec, ok
}

// List returns every onboarded tenant as a resolved TenantContext, for the
// ingest scheduler's per-tick sweep (ingest.TenantLister).
func (r *TenantRegistry) List() []domain.TenantContext {
	out := make([]domain.TenantContext, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, domain.TenantContext{TenantID: rec.TenantID, Platform: rec.Platform})
	}
	return out
}

// Credentials converts a record into the platform.Credentials shape
// platform.CreateAdapter expects.
func (rec TenantRecord) Credentials() platform.Credentials {
	return platform.Credentials{Domain: rec.Domain, APIKey: rec.APIKey}
}
