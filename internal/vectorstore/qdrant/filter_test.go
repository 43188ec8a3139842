package qdrant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

func TestBuildFilter_TranslatesMustShouldMustNot(t *testing.T) {
	f := vectorstore.Filter{
		Must: []vectorstore.Condition{
			{Field: "tenant_id", Op: vectorstore.OpEq, Value: "acme"},
			{Field: "priority", Op: vectorstore.OpGte, Value: 2},
		},
		Should: []vectorstore.Condition{
			{Field: "tags", Op: vectorstore.OpMatchAny, Value: []string{"billing", "refund"}},
		},
		MustNot: []vectorstore.Condition{
			{Field: "status", Op: vectorstore.OpEq, Value: "closed"},
		},
	}

	qf, err := buildFilter(f)
	require.NoError(t, err)
	assert.Len(t, qf.Must, 2)
	assert.Len(t, qf.Should, 1)
	assert.Len(t, qf.MustNot, 1)
}

func TestBuildFilter_RejectsUnsupportedOperator(t *testing.T) {
	f := vectorstore.Filter{
		Must: []vectorstore.Condition{{Field: "x", Op: "bogus", Value: "y"}},
	}
	_, err := buildFilter(f)
	require.Error(t, err)
}
