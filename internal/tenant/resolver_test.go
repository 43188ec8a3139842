package tenant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/tenant"
)

func TestResolve_HeaderWins(t *testing.T) {
	headers := map[string]string{
		"X-Tenant-Id":   "acme",
		"Authorization": "Bearer whatever",
	}
	ctx, err := tenant.Resolve(headers, "other.freshdesk.com", tenant.Config{Platform: domain.PlatformFreshdesk}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("acme"), ctx.TenantID)
	assert.Equal(t, domain.PlatformFreshdesk, ctx.Platform)
}

func TestResolve_BearerClaimFallback(t *testing.T) {
	headers := map[string]string{"Authorization": "Bearer tok123"}
	readClaim := func(token string) (map[string]any, error) {
		assert.Equal(t, "tok123", token)
		return map[string]any{"tenant": "globex"}, nil
	}
	cfg := tenant.Config{Platform: domain.PlatformFreshdesk, BearerClaim: "tenant"}
	ctx, err := tenant.Resolve(headers, "", cfg, readClaim)
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("globex"), ctx.TenantID)
}

func TestResolve_HostSubdomainFallback(t *testing.T) {
	ctx, err := tenant.Resolve(nil, "Initech.freshdesk.com", tenant.Config{Platform: domain.PlatformFreshdesk}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("initech"), ctx.TenantID)
}

func TestResolve_NoSourceYieldsInvalidTenant(t *testing.T) {
	_, err := tenant.Resolve(nil, "", tenant.Config{Platform: domain.PlatformFreshdesk}, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidTenant, domain.KindOf(err))
}

func TestResolve_ReservedTenantRejected(t *testing.T) {
	headers := map[string]string{"X-Tenant-Id": "admin"}
	_, err := tenant.Resolve(headers, "", tenant.Config{Platform: domain.PlatformFreshdesk}, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidTenant, domain.KindOf(err))
}

func TestResolve_InvalidGrammarRejected(t *testing.T) {
	headers := map[string]string{"X-Tenant-Id": "A"}
	_, err := tenant.Resolve(headers, "", tenant.Config{Platform: domain.PlatformFreshdesk}, nil)
	require.Error(t, err)
}
