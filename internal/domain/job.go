package domain

import "time"

// JobScope selects whether an ingest job covers every object or only those
// updated since its cursor.
type JobScope string

const (
	JobScopeFull        JobScope = "full"
	JobScopeIncremental JobScope = "incremental"
)

// JobStatus is the ingest job's state-machine state.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// jobTransitions enumerates the legal status transitions; anything not
// listed here is rejected by CanTransition.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusCreated:   {JobStatusRunning, JobStatusFailed, JobStatusCancelled},
	JobStatusRunning:   {JobStatusPaused, JobStatusCancelled, JobStatusCompleted, JobStatusFailed},
	JobStatusPaused:    {JobStatusRunning, JobStatusCancelled},
	JobStatusCancelled: {},
	JobStatusCompleted: {},
	JobStatusFailed:    {},
}

// CanTransition reports whether moving from "from" to "to" is legal per the
// ingest-job state machine.
func CanTransition(from, to JobStatus) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// JobProgress tracks per-job item counters. ItemsTotal is nil until the
// adapter reports a known page count.
type JobProgress struct {
	ItemsTotal *int
	ItemsDone  int
	ItemsFailed int
}

// JobErrorEntry records one failed item without losing its cause.
type JobErrorEntry struct {
	OriginalID string
	Kind       Kind
	Message    string
	OccurredAt time.Time
}

// IngestJob is the persisted unit of restart-safe ingest control.
type IngestJob struct {
	JobID     string
	TenantID  TenantID
	Platform  Platform
	Scope     JobScope
	Cursor    string
	Status    JobStatus
	Progress  JobProgress
	ErrorLog  []JobErrorEntry
	CreatedAt time.Time
	UpdatedAt time.Time

	// LastHeartbeat is updated by the running worker at most every
	// HeartbeatInterval; used to detect a crashed owner on restart.
	LastHeartbeat time.Time
}

// DefaultHeartbeatInterval is how often a running job's heartbeat is
// written.
const DefaultHeartbeatInterval = 10 * time.Second

// StaleHeartbeatMultiplier is how many heartbeat intervals must elapse
// before a "running" job is considered abandoned and eligible for resume.
const StaleHeartbeatMultiplier = 3

// IsStale reports whether a running job's heartbeat is old enough that a
// new owner should resume it from its persisted cursor.
func (j *IngestJob) IsStale(now time.Time, heartbeatInterval time.Duration) bool {
	if j.Status != JobStatusRunning {
		return false
	}
	return now.Sub(j.LastHeartbeat) > heartbeatInterval*StaleHeartbeatMultiplier
}

// DefaultIncrementalOverlap is the safety window subtracted from
// last_completed_at to absorb platform clock skew on incremental jobs.
const DefaultIncrementalOverlap = 5 * time.Minute

// DefaultWorkerPoolSize is the default number of in-flight per-object
// workers an ingest job runs.
const DefaultWorkerPoolSize = 5

// MaxObjectRetries is how many times a single failed object is retried
// before the object (not the job) is marked failed.
const MaxObjectRetries = 3
