package email

import (
	"time"

	"github.com/uptrace/bun"
)

// JobStatus represents the processing status of an email job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSent       JobStatus = "sent"
	JobStatusDeadLetter JobStatus = "dead_letter" // Permanently failed after max retries
)

// Job is a queued email. The worker renders its template and sends it;
// failed jobs are retried with quadratic backoff.
type Job struct {
	bun.BaseModel `bun:"table:email_jobs,alias:ej"`

	ID           string         `bun:"id,pk"`
	TemplateName string         `bun:"template_name,notnull"`
	ToEmail      string         `bun:"to_email,notnull"`
	ToName       *string        `bun:"to_name"`
	Subject      string         `bun:"subject,notnull"`
	TemplateData map[string]any `bun:"template_data,notnull"`
	Status       JobStatus      `bun:"status,notnull"`
	Attempts     int            `bun:"attempts,notnull"`
	MaxAttempts  int            `bun:"max_attempts,notnull"`
	LastError    *string        `bun:"last_error"`
	MessageID    *string        `bun:"message_id"`
	SourceID     *int64         `bun:"source_id"`
	CreatedAt    time.Time      `bun:"created_at,notnull"`
	ProcessedAt  *time.Time     `bun:"processed_at"`
	NextRetryAt  *time.Time     `bun:"next_retry_at"`
}
