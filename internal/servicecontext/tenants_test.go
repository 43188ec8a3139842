package servicecontext

import (
	"testing"

	"github.com/wedosoft/ticketrag/internal/config"
	"github.com/wedosoft/ticketrag/internal/domain"
)

func TestNewTenantRegistry_SingleTenantFromDefaultConfig(t *testing.T) {
	cfg := &config.Config{TenantDomain: "acme", FreshdeskAPIKey: "key123"}

	reg, err := NewTenantRegistry(cfg)
	if err != nil {
		t.Fatalf("NewTenantRegistry() error: %v", err)
	}

	rec, ok := reg.Lookup(domain.TenantID("acme"))
	if !ok {
		t.Fatal("expected tenant \"acme\" to be registered")
	}
	if rec.Domain != "acme" || rec.APIKey != "key123" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Platform != domain.PlatformFreshdesk {
		t.Errorf("expected freshdesk platform, got %v", rec.Platform)
	}

	list := reg.List()
	if len(list) != 1 || list[0].TenantID != domain.TenantID("acme") {
		t.Errorf("unexpected tenant list: %+v", list)
	}
}

func TestNewTenantRegistry_ParsesJSONArray(t *testing.T) {
	cfg := &config.Config{
		TenantCredentialsJSON: `[
			{"tenant_id":"acme","domain":"acme","api_key":"k1"},
			{"tenant_id":"globex","domain":"globex-corp","api_key":"k2"}
		]`,
	}

	reg, err := NewTenantRegistry(cfg)
	if err != nil {
		t.Fatalf("NewTenantRegistry() error: %v", err)
	}

	if len(reg.List()) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(reg.List()))
	}
	rec, ok := reg.Lookup(domain.TenantID("globex"))
	if !ok || rec.Domain != "globex-corp" {
		t.Errorf("unexpected globex record: %+v (ok=%v)", rec, ok)
	}
}

func TestNewTenantRegistry_RejectsInvalidTenantID(t *testing.T) {
	cfg := &config.Config{TenantCredentialsJSON: `[{"tenant_id":"DEMO","domain":"x","api_key":"y"}]`}

	if _, err := NewTenantRegistry(cfg); err == nil {
		t.Fatal("expected error for reserved/invalid tenant id")
	}
}

func TestNewTenantRegistry_EmptyConfigYieldsEmptyRegistry(t *testing.T) {
	reg, err := NewTenantRegistry(&config.Config{})
	if err != nil {
		t.Fatalf("NewTenantRegistry() error: %v", err)
	}
	if len(reg.List()) != 0 {
		t.Errorf("expected empty registry, got %d tenants", len(reg.List()))
	}
}
