// Package vectorstore defines the abstract Vector Store Gateway (C7): a
// single shared "documents" collection, tenant-isolated purely by filter,
// with the tenant+platform boundary check enforced here rather than trusted
// to callers.
package vectorstore

import (
	"context"
	"log/slog"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// Op is a filter condition's comparison operator.
type Op string

const (
	OpEq      Op = "eq"
	OpGte     Op = "gte"
	OpLte     Op = "lte"
	OpMatchAny Op = "match_any" // keyword array membership
)

// Condition is one field/op/value filter leaf.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is the must/should/must_not structure described in §4.10: must is a
// mandatory conjunction, should is a soft-preference disjunction, must_not
// is a set of negations.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// hasTenantAndPlatform reports whether f's Must clause pins both tenant_id
// and platform to exact values, the gateway's one mandatory invariant.
func (f Filter) hasTenantAndPlatform() (domain.TenantID, bool) {
	var tenant domain.TenantID
	haveTenant, havePlatform := false, false
	for _, c := range f.Must {
		if c.Op != OpEq {
			continue
		}
		switch c.Field {
		case "tenant_id":
			if s, ok := c.Value.(domain.TenantID); ok && s != "" {
				tenant = s
				haveTenant = true
			} else if s, ok := c.Value.(string); ok && s != "" {
				tenant = domain.TenantID(s)
				haveTenant = true
			}
		case "platform":
			if s, ok := c.Value.(domain.Platform); ok && s != "" {
				havePlatform = true
			} else if s, ok := c.Value.(string); ok && s != "" {
				havePlatform = true
			}
		}
	}
	return tenant, haveTenant && havePlatform
}

// Query is one search request against the shared collection.
type Query struct {
	Dense         []float32
	Sparse        domain.SparseVector
	Filter        Filter
	Limit         int
	ScoreThreshold float64
}

// Hit is one search result, carrying the score Qdrant assigned.
type Hit struct {
	ID      string
	Score   float64
	Payload domain.Payload
}

// Gateway is C7's public surface. Every implementation must reject
// Search/Delete calls whose filter omits tenant_id+platform from Must
// before making any network call, and must post-verify tenant_id on every
// returned point.
type Gateway interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []domain.VectorPoint) error
	Delete(ctx context.Context, filter Filter) error
	Search(ctx context.Context, query Query) ([]Hit, error)
}

// RequireTenantFilter is the boundary check every Gateway implementation's
// Search/Delete must call first. It never touches the network.
func RequireTenantFilter(filter Filter) (domain.TenantID, error) {
	tenant, ok := filter.hasTenantAndPlatform()
	if !ok {
		return "", domain.NewError(domain.KindMissingTenantFilter,
			"filter must pin both tenant_id and platform in its must clause")
	}
	return tenant, nil
}

// FilterOutLeaks removes any hit whose payload tenant doesn't match the
// requesting tenant, logging each occurrence as a security event. This is
// defense in depth — the primary guard is the filter itself.
func FilterOutLeaks(logger *slog.Logger, tenant domain.TenantID, hits []Hit) []Hit {
	clean := hits[:0:0]
	for _, h := range hits {
		if h.Payload.TenantID != tenant {
			if logger != nil {
				logger.Error("vectorstore: tenant leak detected",
					slog.String("requested_tenant", string(tenant)),
					slog.String("payload_tenant", string(h.Payload.TenantID)),
					slog.String("point_id", h.ID),
					slog.String("severity", "security"))
			}
			continue
		}
		clean = append(clean, h)
	}
	return clean
}
