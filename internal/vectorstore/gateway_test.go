package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

func tenantFilter(tenant, platform string) vectorstore.Filter {
	return vectorstore.Filter{
		Must: []vectorstore.Condition{
			{Field: "tenant_id", Op: vectorstore.OpEq, Value: tenant},
			{Field: "platform", Op: vectorstore.OpEq, Value: platform},
		},
	}
}

func TestRequireTenantFilter_AcceptsCompleteFilter(t *testing.T) {
	tenant, err := vectorstore.RequireTenantFilter(tenantFilter("acme", "freshdesk"))
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("acme"), tenant)
}

func TestRequireTenantFilter_RejectsMissingPlatform(t *testing.T) {
	f := vectorstore.Filter{Must: []vectorstore.Condition{
		{Field: "tenant_id", Op: vectorstore.OpEq, Value: "acme"},
	}}
	_, err := vectorstore.RequireTenantFilter(f)
	require.Error(t, err)
	assert.Equal(t, domain.KindMissingTenantFilter, domain.KindOf(err))
}

func TestRequireTenantFilter_RejectsEmptyFilter(t *testing.T) {
	_, err := vectorstore.RequireTenantFilter(vectorstore.Filter{})
	require.Error(t, err)
	assert.Equal(t, domain.KindMissingTenantFilter, domain.KindOf(err))
}

func TestFilterOutLeaks_DropsMismatchedTenant(t *testing.T) {
	hits := []vectorstore.Hit{
		{ID: "1", Payload: domain.Payload{TenantID: "acme"}},
		{ID: "2", Payload: domain.Payload{TenantID: "other-tenant"}},
	}
	clean := vectorstore.FilterOutLeaks(nil, "acme", hits)
	require.Len(t, clean, 1)
	assert.Equal(t, "1", clean[0].ID)
}
