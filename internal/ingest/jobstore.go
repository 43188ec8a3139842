// Package ingest implements C8: the ingest job state machine and the
// bounded-concurrency C2→C3→C5→C6→C7 pipeline that drives it.
package ingest

import (
	"context"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// JobStore persists IngestJob state. The concrete implementation
// (internal/jobstore) is pgx-backed; this interface keeps the orchestrator
// free of a storage dependency.
type JobStore interface {
	Get(ctx context.Context, jobID string) (domain.IngestJob, error)
	Save(ctx context.Context, job domain.IngestJob) error
	ListStaleRunning(ctx context.Context, heartbeatInterval time.Duration) ([]domain.IngestJob, error)
}
