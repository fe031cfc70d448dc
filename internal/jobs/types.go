// Package jobs defines asynchronous report jobs and the queue and store
// abstractions that run and track them.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeGenerateReport renders and stores one user's insights report.
	JobTypeGenerateReport JobType = "generate_report"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying means the last attempt failed and another is scheduled.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// GenerateReportJob asks for the AnalysisType report of UserID.
type GenerateReportJob struct {
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	AnalysisType string `json:"analysis_type"`

	Status JobStatus `json:"status"`

	// Location is where the finished report was stored.
	Location string `json:"location,omitempty"`
	// Score is the financial health score of the reported period.
	Score int `json:"score,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Job is implemented by every job type.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *GenerateReportJob) GetID() string        { return j.JobID }
func (j *GenerateReportJob) GetType() JobType     { return JobTypeGenerateReport }
func (j *GenerateReportJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs.
type Publisher interface {
	PublishGenerateReport(ctx context.Context, job *GenerateReportJob) error
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs, calling handler for each one.
	Start(ctx context.Context, handler JobHandler) error
	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error makes the job eligible for
// a retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore persists job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *GenerateReportJob) error
	// GetJob returns a *domain.NotFoundError for unknown ids.
	GetJob(ctx context.Context, jobID string) (*GenerateReportJob, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*GenerateReportJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}
