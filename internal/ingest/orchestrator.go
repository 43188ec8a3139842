package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/embed"
	"github.com/wedosoft/ticketrag/internal/integration"
	"github.com/wedosoft/ticketrag/internal/platform"
	"github.com/wedosoft/ticketrag/internal/summarize"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

// PageSize is how many descriptors the orchestrator asks C2 for per page.
const PageSize = 100

// Orchestrator is C8.
type Orchestrator struct {
	adapter        platform.Adapter
	summarizer     *summarize.Summarizer
	embedder       *embed.Embedder
	gateway        vectorstore.Gateway
	jobs           JobStore
	workerPoolSize int
	heartbeatEvery time.Duration
	backoff        platform.BackoffPolicy
	logger         *slog.Logger
}

// New builds an Orchestrator. workerPoolSize of 0 uses
// domain.DefaultWorkerPoolSize.
func New(adapter platform.Adapter, summarizer *summarize.Summarizer, embedder *embed.Embedder, gateway vectorstore.Gateway, jobs JobStore, workerPoolSize int, logger *slog.Logger) *Orchestrator {
	if workerPoolSize == 0 {
		workerPoolSize = domain.DefaultWorkerPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		adapter:        adapter,
		summarizer:     summarizer,
		embedder:       embedder,
		gateway:        gateway,
		jobs:           jobs,
		workerPoolSize: workerPoolSize,
		heartbeatEvery: domain.DefaultHeartbeatInterval,
		backoff:        platform.DefaultBackoffPolicy,
		logger:         logger,
	}
}

// errAuthFailure signals an immediate job-level failure, bypassing the
// per-object retry budget (§4.8: "If the adapter returns AuthFailure, the
// job transitions to failed immediately").
var errAuthFailure = errors.New("ingest: auth failure, aborting job")

// SetBackoff overrides the per-object retry backoff, mainly for tests that
// need the retry budget to exhaust without waiting on real timers.
func (o *Orchestrator) SetBackoff(p platform.BackoffPolicy) { o.backoff = p }

// Run drives job from its current state to completion (or failure),
// transitioning created -> running -> completed/failed, paging through C2,
// and fanning out per-object processing across a bounded worker pool.
func (o *Orchestrator) Run(ctx context.Context, job *domain.IngestJob) error {
	if err := o.transition(ctx, job, domain.JobStatusRunning); err != nil {
		return err
	}

	tenant := domain.TenantContext{TenantID: job.TenantID, Platform: job.Platform}
	since := o.resolveSince(*job)
	cursor := job.Cursor

	for {
		select {
		case <-ctx.Done():
			job.Status = domain.JobStatusCreated // interrupted, retryable on resume
			_ = o.jobs.Save(ctx, *job)
			return ctx.Err()
		default:
		}

		objects, nextCursor, err := o.adapter.ListUpdated(ctx, tenant, since, cursor)
		if err != nil {
			if domain.KindOf(err) == domain.KindAuthFailure {
				job.Status = domain.JobStatusFailed
				_ = o.jobs.Save(ctx, *job)
				return err
			}
			return err
		}

		if err := o.processPage(ctx, tenant, job, objects); err != nil {
			if errors.Is(err, errAuthFailure) {
				job.Status = domain.JobStatusFailed
				_ = o.jobs.Save(ctx, *job)
				return err
			}
			return err
		}

		job.Cursor = nextCursor
		o.heartbeat(ctx, job)

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return o.transition(ctx, job, domain.JobStatusCompleted)
}

// processPage runs every object in a page through the per-object pipeline,
// ordered ascending by updated_at then original_id lexicographically so a
// crash-resume skips already-processed items deterministically, across a
// worker pool bounded at o.workerPoolSize.
func (o *Orchestrator) processPage(ctx context.Context, tenant domain.TenantContext, job *domain.IngestJob, objects []platform.ObjectSummary) error {
	sort.SliceStable(objects, func(i, j int) bool {
		if !objects[i].UpdatedAt.Equal(objects[j].UpdatedAt) {
			return objects[i].UpdatedAt.Before(objects[j].UpdatedAt)
		}
		return objects[i].OriginalID < objects[j].OriginalID
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.workerPoolSize)

	datasetSize := 0
	if job.Progress.ItemsTotal != nil {
		datasetSize = *job.Progress.ItemsTotal
	}

	for _, summary := range objects {
		summary := summary
		group.Go(func() error {
			return o.processObjectWithRetry(groupCtx, tenant, job, summary, datasetSize)
		})
	}

	return group.Wait()
}

// processObjectWithRetry retries a single object up to domain.MaxObjectRetries
// times, sleeping o.backoff's delay between attempts, before marking it
// failed and letting the job continue, except for AuthFailure which
// aborts the whole job immediately.
func (o *Orchestrator) processObjectWithRetry(ctx context.Context, tenant domain.TenantContext, job *domain.IngestJob, summary platform.ObjectSummary, datasetSize int) error {
	var lastErr error
	for attempt := 0; attempt <= domain.MaxObjectRetries; attempt++ {
		if attempt > 0 {
			if err := o.backoff.Sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		err := o.processObject(ctx, tenant, summary, datasetSize)
		if err == nil {
			job.Progress.ItemsDone++
			return nil
		}
		if domain.KindOf(err) == domain.KindAuthFailure {
			return errAuthFailure
		}
		lastErr = err
	}

	job.Progress.ItemsFailed++
	job.ErrorLog = append(job.ErrorLog, domain.JobErrorEntry{
		OriginalID: summary.OriginalID,
		Kind:       domain.KindOf(lastErr),
		Message:    lastErr.Error(),
		OccurredAt: time.Now(),
	})
	o.logger.Warn("ingest: object failed after retries",
		slog.String("tenant_id", string(tenant.TenantID)), slog.String("original_id", summary.OriginalID), slog.String("err", lastErr.Error()))
	return nil
}

// processObject runs one object through C3 -> C5 -> C6 -> C7, serially.
func (o *Orchestrator) processObject(ctx context.Context, tenant domain.TenantContext, summary platform.ObjectSummary, datasetSize int) error {
	obj, err := o.fetchAndBuild(ctx, tenant, summary)
	if err != nil {
		return err
	}

	var sum domain.Summary
	if o.summarizer != nil {
		sum, err = o.summarizer.Summarize(ctx, obj, domain.SummaryTypeBatch, datasetSize)
		if err != nil {
			return err
		}
	}

	results, err := o.embedder.EmbedBatch(ctx, []string{obj.Subject + "\n" + obj.BodyText}, []domain.Language{obj.Language})
	if err != nil {
		return err
	}

	point := toVectorPoint(obj, sum, results[0])
	return o.gateway.Upsert(ctx, []domain.VectorPoint{point})
}

func (o *Orchestrator) fetchAndBuild(ctx context.Context, tenant domain.TenantContext, summary platform.ObjectSummary) (domain.IntegratedObject, error) {
	switch summary.ObjectType {
	case domain.ObjectTypeKBArticle:
		raw, err := o.adapter.FetchKB(ctx, tenant, summary.OriginalID)
		if err != nil {
			return domain.IntegratedObject{}, err
		}
		return integration.BuildKBArticle(tenant, raw)
	default:
		raw, conversations, attachments, err := o.adapter.FetchTicket(ctx, tenant, summary.OriginalID)
		if err != nil {
			return domain.IntegratedObject{}, err
		}
		return integration.BuildTicket(tenant, raw, conversations, attachments)
	}
}

func toVectorPoint(obj domain.IntegratedObject, sum domain.Summary, embedding embed.Result) domain.VectorPoint {
	sections := make([]string, 0, len(sum.Sections))
	for _, name := range domain.SectionOrder {
		if text, ok := sum.Sections[name]; ok {
			sections = append(sections, text)
		}
	}

	return domain.VectorPoint{
		ID:           domain.DerivePointID(obj.TenantID, obj.Platform, obj.ObjectType, obj.OriginalID),
		Vector:       embedding.Vector,
		SparseVector: embedding.Sparse,
		Payload: domain.Payload{
			TenantID:        obj.TenantID,
			Platform:        obj.Platform,
			ObjectType:      obj.ObjectType,
			OriginalID:      obj.OriginalID,
			ContentType:     obj.ObjectType,
			Subject:         obj.Subject,
			Status:          obj.Status,
			Priority:        obj.Priority,
			Tags:            obj.Tags,
			Category:        obj.Category,
			CreatedAt:       obj.CreatedAt.Unix(),
			UpdatedAt:       obj.UpdatedAt.Unix(),
			SummarySections: sections,
			SummaryText:     sum.FullText,
			ContentHash:     obj.ContentHash,
			Language:        obj.Language,
		},
	}
}

func (o *Orchestrator) resolveSince(job domain.IngestJob) time.Time {
	if job.Scope == domain.JobScopeFull {
		return time.Time{}
	}
	if job.Cursor != "" {
		if t, err := time.Parse(time.RFC3339, job.Cursor); err == nil {
			return t.Add(-domain.DefaultIncrementalOverlap)
		}
	}
	return time.Time{}
}

func (o *Orchestrator) transition(ctx context.Context, job *domain.IngestJob, to domain.JobStatus) error {
	if !domain.CanTransition(job.Status, to) {
		return domain.NewError(domain.KindValidationFailure, "ingest: illegal transition %s -> %s", job.Status, to)
	}
	job.Status = to
	job.UpdatedAt = time.Now()
	if to == domain.JobStatusRunning {
		job.LastHeartbeat = job.UpdatedAt
	}
	return o.jobs.Save(ctx, *job)
}

func (o *Orchestrator) heartbeat(ctx context.Context, job *domain.IngestJob) {
	job.LastHeartbeat = time.Now()
	job.UpdatedAt = job.LastHeartbeat
	_ = o.jobs.Save(ctx, *job)
}

// Pause, Resume and Cancel apply the requested lifecycle transition and
// persist it; the running worker pool observes ctx cancellation separately.
func (o *Orchestrator) Pause(ctx context.Context, job *domain.IngestJob) error {
	return o.transition(ctx, job, domain.JobStatusPaused)
}

func (o *Orchestrator) Resume(ctx context.Context, job *domain.IngestJob) error {
	return o.transition(ctx, job, domain.JobStatusRunning)
}

func (o *Orchestrator) Cancel(ctx context.Context, job *domain.IngestJob) error {
	return o.transition(ctx, job, domain.JobStatusCancelled)
}

// ResumeStaleJobs atomically moves any "running" job whose heartbeat is
// older than StaleHeartbeatMultiplier intervals back to "created" with its
// cursor intact, so a new owner resumes it (§4.8 "Resumption"). This
// bypasses domain.CanTransition deliberately: that table describes the
// caller-invoked lifecycle (pause/resume/cancel), while stale-job recovery
// is a system-internal correction no external request ever asks for.
func (o *Orchestrator) ResumeStaleJobs(ctx context.Context) (int, error) {
	stale, err := o.jobs.ListStaleRunning(ctx, o.heartbeatEvery)
	if err != nil {
		return 0, err
	}
	for i := range stale {
		stale[i].Status = domain.JobStatusCreated
		stale[i].UpdatedAt = time.Now()
		if err := o.jobs.Save(ctx, stale[i]); err != nil {
			return i, err
		}
	}
	return len(stale), nil
}
