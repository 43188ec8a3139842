// Package qdrant is C7's concrete Vector Store Gateway implementation,
// grounded on the teacher's single-tenant vectorstore wrapper
// (ai/providers/vectorstores/qdrant/store.go) and generalized to a shared,
// multi-tenant "documents" collection with named dense+sparse vectors,
// payload indexes, and the tenant+platform filter boundary the teacher's
// version never needed.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

var _ vectorstore.Gateway = (*Gateway)(nil)

// Gateway is C7.
type Gateway struct {
	client *qdrant.Client
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and builds a Gateway. It does not call EnsureCollection;
// callers do that once at process start.
func New(cfg Config, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{client: cfg.Client, cfg: cfg.withDefaults(), logger: logger}, nil
}

// Upsert writes points in batches of cfg.UpsertBatchSize, each batch
// acknowledged server-side before the next is sent. Idempotent: points
// share domain.DerivePointID's deterministic id, so re-ingesting unchanged
// content overwrites in place rather than duplicating.
func (g *Gateway) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	batchSize := g.cfg.UpsertBatchSize
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		structs := make([]*qdrant.PointStruct, len(batch))
		for i, p := range batch {
			ps, err := buildPointStruct(p)
			if err != nil {
				return err
			}
			structs[i] = ps
		}

		if err := g.upsertBatchWithRetry(ctx, structs); err != nil {
			return fmt.Errorf("qdrant: upserting batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (g *Gateway) upsertBatchWithRetry(ctx context.Context, batch []*qdrant.PointStruct) error {
	wait := true
	var lastErr error
	for attempt := 0; attempt <= g.cfg.Backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := g.cfg.Backoff.Sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		_, err := g.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Wait:           &wait,
			Points:         batch,
		})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Delete removes every point matching filter. The tenant+platform boundary
// check runs before any network call.
func (g *Gateway) Delete(ctx context.Context, filter vectorstore.Filter) error {
	if _, err := vectorstore.RequireTenantFilter(filter); err != nil {
		return err
	}

	qf, err := buildFilter(filter)
	if err != nil {
		return err
	}

	_, err = g.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelectorFilter(qf),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete: %w", err)
	}
	return nil
}

// Search runs one query — dense, or sparse if query.Dense is nil and
// query.Sparse isn't — against the shared collection. C10 calls this twice
// independently for dense and sparse legs, and fuses the two result sets
// itself (§4.10 step 6); this gateway has no opinion on fusion.
func (g *Gateway) Search(ctx context.Context, query vectorstore.Query) ([]vectorstore.Hit, error) {
	tenant, err := vectorstore.RequireTenantFilter(query.Filter)
	if err != nil {
		return nil, err
	}

	qf, err := buildFilter(query.Filter)
	if err != nil {
		return nil, err
	}

	limit := uint64(query.Limit)
	threshold := float32(query.ScoreThreshold)

	qp := &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Filter:         qf,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if query.ScoreThreshold > 0 {
		qp.ScoreThreshold = &threshold
	}

	switch {
	case len(query.Dense) > 0:
		name := DenseVectorName
		qp.Using = &name
		qp.Query = qdrant.NewQuery(query.Dense...)
	case len(query.Sparse) > 0:
		name := SparseVectorName
		qp.Using = &name
		indices, values := sparseVectorToArrays(query.Sparse)
		qp.Query = qdrant.NewQuerySparse(indices, values)
	default:
		return nil, errors.New("qdrant: search requires a dense or sparse query vector")
	}

	points, err := g.client.Query(ctx, qp)
	if err != nil {
		return nil, fmt.Errorf("qdrant: query: %w", err)
	}

	hits := make([]vectorstore.Hit, 0, len(points))
	for _, sp := range points {
		hits = append(hits, vectorstore.Hit{
			ID:      pointIDString(sp.GetId()),
			Score:   float64(sp.GetScore()),
			Payload: payloadFromMap(sp.GetPayload()),
		})
	}

	return vectorstore.FilterOutLeaks(g.logger, tenant, hits), nil
}

// Count reports how many points in the shared collection match filter,
// used by C10 to choose between an exhaustive filter-then-rank pass and a
// hybrid search within the filter (§4.10 step 2). The tenant+platform
// boundary check runs before any network call, same as Search/Delete.
func (g *Gateway) Count(ctx context.Context, filter vectorstore.Filter) (int, error) {
	if _, err := vectorstore.RequireTenantFilter(filter); err != nil {
		return 0, err
	}

	qf, err := buildFilter(filter)
	if err != nil {
		return 0, err
	}

	exact := true
	count, err := g.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter:         qf,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return int(count), nil
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

// collectionProbeTimeout bounds the health-check's CollectionExists call
// (§12 "Health endpoint dependency probing").
const collectionProbeTimeout = 5 * time.Second

// Healthy performs a lightweight CollectionExists call, used by the health
// endpoint's dependency probe rather than a static OK.
func (g *Gateway) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, collectionProbeTimeout)
	defer cancel()
	_, err := g.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("qdrant: health probe: %w", err)
	}
	return nil
}
