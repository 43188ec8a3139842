package qdrant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
)

func TestBuildPointStruct_CarriesDenseAndSparseVectors(t *testing.T) {
	p := domain.VectorPoint{
		ID:           "abc-123",
		Vector:       []float32{0.1, 0.2, 0.3},
		SparseVector: domain.SparseVector{42: 1.5},
		Payload: domain.Payload{
			TenantID:   "acme",
			Platform:   domain.PlatformFreshdesk,
			ObjectType: domain.ObjectTypeTicket,
			Priority:   domain.PriorityHigh,
			Tags:       []string{"billing"},
		},
	}

	ps, err := buildPointStruct(p)
	require.NoError(t, err)
	require.Contains(t, ps.GetVectors().GetVectors().GetVectors(), DenseVectorName)
	require.Contains(t, ps.GetVectors().GetVectors().GetVectors(), SparseVectorName)
	assert.Equal(t, "acme", ps.GetPayload()["tenant_id"].GetStringValue())
}

func TestPayloadRoundTrip(t *testing.T) {
	p := domain.Payload{
		TenantID:   "acme",
		Platform:   domain.PlatformFreshdesk,
		ObjectType: domain.ObjectTypeTicket,
		Status:     domain.StatusOpen,
		Priority:   domain.PriorityHigh,
		Tags:       []string{"billing", "refund"},
		CreatedAt:  1700000000,
	}

	raw, err := toQdrantValueMap(p)
	require.NoError(t, err)
	back := payloadFromMap(raw)

	assert.Equal(t, p.TenantID, back.TenantID)
	assert.Equal(t, p.Status, back.Status)
	assert.Equal(t, p.Priority, back.Priority)
	assert.ElementsMatch(t, p.Tags, back.Tags)
	assert.Equal(t, p.CreatedAt, back.CreatedAt)
}
