// Package jobstore is the pgx-backed persistence layer for ingest jobs: it
// implements internal/ingest.JobStore against a Postgres table, tenant
// isolation enforced by always filtering on tenant_id.
package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// rows is the slice of pgx.Rows this package actually uses. Kept narrow
// (rather than depending on pgx.Rows directly) so tests can substitute a
// hand-rolled in-memory fake: go-sqlmock speaks database/sql, and pgx v5
// talks to Postgres over its own native protocol, so it can't stand in for
// a pgx connection the way it can for the teacher's database/sql stores
// (see DESIGN.md).
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// row is the slice of pgx.Row this package uses.
type row interface {
	Scan(dest ...any) error
}

// conn is the slice of *pgxpool.Pool this package actually uses.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) row
}

// poolConn adapts a *pgxpool.Pool to conn: pgx.Rows and pgx.Row both
// structurally satisfy this package's narrower rows/row interfaces, so the
// adaptation is just a return-type conversion at the call site.
type poolConn struct {
	pool *pgxpool.Pool
}

func (p poolConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p poolConn) Query(ctx context.Context, sql string, args ...any) (rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

func (p poolConn) QueryRow(ctx context.Context, sql string, args ...any) row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Store persists domain.IngestJob rows.
type Store struct {
	conn conn
	pool *pgxpool.Pool // non-nil only when Store owns the pool's lifecycle
}

// New connects to connURL, pings it, and ensures the ingest_jobs table
// exists.
func New(ctx context.Context, connURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("jobstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("jobstore: ping: %w", err)
	}
	s := &Store{conn: poolConn{pool: pool}, pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("jobstore: migrate: %w", err)
	}
	return s, nil
}

// NewWithConn wraps an already-constructed connection (normally a test
// double implementing conn), skipping the connect/ping step and leaving
// its lifecycle to the caller.
func NewWithConn(c conn) *Store {
	return &Store{conn: c}
}

const ddl = `
CREATE TABLE IF NOT EXISTS ingest_jobs (
	job_id          TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	platform        TEXT NOT NULL,
	scope           TEXT NOT NULL,
	cursor          TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	items_total     INT,
	items_done      INT NOT NULL DEFAULT 0,
	items_failed    INT NOT NULL DEFAULT 0,
	error_log       JSONB NOT NULL DEFAULT '[]',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	last_heartbeat  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingest_jobs_tenant ON ingest_jobs (tenant_id);
CREATE INDEX IF NOT EXISTS idx_ingest_jobs_status_heartbeat ON ingest_jobs (status, last_heartbeat);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, ddl)
	return err
}

const jobColumns = `job_id, tenant_id, platform, scope, cursor, status, items_total, items_done, items_failed, error_log, created_at, updated_at, last_heartbeat`

// Get returns a job by ID.
func (s *Store) Get(ctx context.Context, jobID string) (domain.IngestJob, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.IngestJob{}, domain.NewError(domain.KindValidationFailure, "jobstore: job %q not found", jobID)
		}
		return domain.IngestJob{}, fmt.Errorf("jobstore: get: %w", err)
	}
	return job, nil
}

// Save upserts job, replacing every mutable column.
func (s *Store) Save(ctx context.Context, job domain.IngestJob) error {
	errorLog, err := json.Marshal(job.ErrorLog)
	if err != nil {
		return fmt.Errorf("jobstore: marshal error log: %w", err)
	}

	var heartbeat *time.Time
	if !job.LastHeartbeat.IsZero() {
		heartbeat = &job.LastHeartbeat
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO ingest_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (job_id) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			status = EXCLUDED.status,
			items_total = EXCLUDED.items_total,
			items_done = EXCLUDED.items_done,
			items_failed = EXCLUDED.items_failed,
			error_log = EXCLUDED.error_log,
			updated_at = EXCLUDED.updated_at,
			last_heartbeat = EXCLUDED.last_heartbeat
	`,
		job.JobID, string(job.TenantID), string(job.Platform), string(job.Scope), job.Cursor, string(job.Status),
		job.Progress.ItemsTotal, job.Progress.ItemsDone, job.Progress.ItemsFailed, errorLog,
		job.CreatedAt, job.UpdatedAt, heartbeat,
	)
	if err != nil {
		return fmt.Errorf("jobstore: save: %w", err)
	}
	return nil
}

// ListStaleRunning returns every "running" job whose heartbeat is older
// than domain.StaleHeartbeatMultiplier*heartbeatInterval.
func (s *Store) ListStaleRunning(ctx context.Context, heartbeatInterval time.Duration) ([]domain.IngestJob, error) {
	cutoff := time.Now().Add(-heartbeatInterval * domain.StaleHeartbeatMultiplier)
	rows, err := s.conn.Query(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE status = $1 AND last_heartbeat < $2`,
		string(domain.JobStatusRunning), cutoff)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list stale: %w", err)
	}
	defer rows.Close()

	var jobs []domain.IngestJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("jobstore: scan stale row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobstore: iterate stale rows: %w", err)
	}
	return jobs, nil
}

// ListByTenant returns every job belonging to tenant, most recently
// updated first. Not part of the ingest.JobStore interface; used by the
// status/list endpoints in §6.
func (s *Store) ListByTenant(ctx context.Context, tenant domain.TenantID) ([]domain.IngestJob, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE tenant_id = $1 ORDER BY updated_at DESC`, string(tenant))
	if err != nil {
		return nil, fmt.Errorf("jobstore: list by tenant: %w", err)
	}
	defer rows.Close()

	var jobs []domain.IngestJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("jobstore: scan tenant row: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Close releases the connection pool, if this Store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (domain.IngestJob, error) {
	var job domain.IngestJob
	var tenantID, platform, scope, status string
	var errorLog []byte
	var heartbeat *time.Time

	err := row.Scan(
		&job.JobID, &tenantID, &platform, &scope, &job.Cursor, &status,
		&job.Progress.ItemsTotal, &job.Progress.ItemsDone, &job.Progress.ItemsFailed, &errorLog,
		&job.CreatedAt, &job.UpdatedAt, &heartbeat,
	)
	if err != nil {
		return domain.IngestJob{}, err
	}

	job.TenantID = domain.TenantID(tenantID)
	job.Platform = domain.Platform(platform)
	job.Scope = domain.JobScope(scope)
	job.Status = domain.JobStatus(status)
	if heartbeat != nil {
		job.LastHeartbeat = *heartbeat
	}
	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &job.ErrorLog); err != nil {
			return domain.IngestJob{}, fmt.Errorf("unmarshal error log: %w", err)
		}
	}
	return job, nil
}
