package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/dvloznov/gg-parser/internal/pipeline"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessEmail runs one email through extraction and persistence.
	JobTypeProcessEmail JobType = "process_email"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ProcessEmailJob is one email from a batch. Jobs are attempted exactly once:
// a retried append could write the same transaction twice.
type ProcessEmailJob struct {
	JobID string `json:"job_id"`

	// Source names where the email came from, e.g. "emails.jsonl:12".
	Source string `json:"source,omitempty"`

	Email domain.RawEmail `json:"email"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result is set by the handler when processing returned normally.
	Result *pipeline.Result `json:"result,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ProcessEmailJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ProcessEmailJob) GetType() JobType {
	return JobTypeProcessEmail
}

// GetStatus implements the Job interface.
func (j *ProcessEmailJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishProcessEmail(ctx context.Context, job *ProcessEmailJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops accepting jobs and waits for queued and in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the job failed.
type JobHandler func(ctx context.Context, job *ProcessEmailJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessEmailJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessEmailJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessEmailJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
