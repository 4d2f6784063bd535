package email

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/seekkrr/landingpage/internal/database"
	"github.com/seekkrr/landingpage/pkg/logger"
)

// JobsService manages the email job queue.
//
// Queries are written against the bun builder so the queue runs on both
// SQLite and PostgreSQL; times are computed in Go, in UTC.
type JobsService struct {
	db  bun.IDB
	log *slog.Logger
	cfg *Config
	now func() time.Time
}

func NewJobsService(db bun.IDB, log *slog.Logger, cfg *Config) *JobsService {
	return &JobsService{
		db:  db,
		log: log.With(logger.Scope("email.jobs")),
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnqueueOptions contains options for enqueuing an email job
type EnqueueOptions struct {
	TemplateName string
	ToEmail      string
	ToName       *string
	Subject      string
	TemplateData map[string]any
	SourceID     *int64
	MaxAttempts  *int
}

// Enqueue creates a job ready for immediate processing.
func (s *JobsService) Enqueue(ctx context.Context, opts EnqueueOptions) (*Job, error) {
	maxAttempts := s.cfg.MaxRetries
	if opts.MaxAttempts != nil {
		maxAttempts = *opts.MaxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	data := opts.TemplateData
	if data == nil {
		data = map[string]any{}
	}

	now := s.now()
	job := &Job{
		ID:           uuid.NewString(),
		TemplateName: opts.TemplateName,
		ToEmail:      opts.ToEmail,
		ToName:       opts.ToName,
		Subject:      opts.Subject,
		TemplateData: data,
		Status:       JobStatusPending,
		MaxAttempts:  maxAttempts,
		SourceID:     opts.SourceID,
		CreatedAt:    now,
		NextRetryAt:  &now,
	}

	if _, err := s.db.NewInsert().Model(job).Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue email job: %w", err)
	}

	s.log.Debug("enqueued email job",
		slog.String("job_id", job.ID),
		slog.String("to_email", job.ToEmail),
		slog.String("template", job.TemplateName))

	return job, nil
}

// Dequeue claims up to batchSize due jobs, moving them to processing and
// counting the attempt. On PostgreSQL the candidate rows are locked with
// SKIP LOCKED so concurrent workers never claim the same job.
func (s *JobsService) Dequeue(ctx context.Context, batchSize int) ([]*Job, error) {
	if batchSize <= 0 {
		batchSize = s.cfg.WorkerBatchSize
	}
	if batchSize <= 0 {
		batchSize = 10
	}

	now := s.now()
	var jobs []*Job

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var ids []string
		q := tx.NewSelect().
			Model((*Job)(nil)).
			Column("id").
			Where("status = ?", JobStatusPending).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("next_retry_at IS NULL").WhereOr("next_retry_at <= ?", now)
			}).
			OrderExpr("created_at ASC").
			Limit(batchSize)
		if database.IsPostgres(s.db) {
			q = q.For("UPDATE SKIP LOCKED")
		}
		if err := q.Scan(ctx, &ids); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if _, err := tx.NewUpdate().
			Model((*Job)(nil)).
			Set("status = ?", JobStatusProcessing).
			Set("attempts = attempts + 1").
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return err
		}

		return tx.NewSelect().
			Model(&jobs).
			Where("id IN (?)", bun.In(ids)).
			OrderExpr("created_at ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue email jobs: %w", err)
	}

	return jobs, nil
}

// MarkSent marks a job as sent successfully
func (s *JobsService) MarkSent(ctx context.Context, id string, messageID string) error {
	_, err := s.db.NewUpdate().
		Model((*Job)(nil)).
		Set("status = ?", JobStatusSent).
		Set("message_id = ?", messageID).
		Set("processed_at = ?", s.now()).
		Set("last_error = NULL").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	s.log.Debug("email job marked as sent",
		slog.String("job_id", id),
		slog.String("message_id", messageID))

	return nil
}

// RetryDelay is the wait before the next attempt after attempts failures:
// base * attempts^2, capped at one hour.
func RetryDelay(baseSec, attempts int) time.Duration {
	sec := math.Min(3600, float64(baseSec)*float64(attempts)*float64(attempts))
	return time.Duration(sec) * time.Second
}

// MarkFailed requeues a job with backoff, or moves it to the dead letter
// state once its attempts are used up.
func (s *JobsService) MarkFailed(ctx context.Context, id string, jobErr error) error {
	job := &Job{}
	selectErr := s.db.NewSelect().
		Model(job).
		Column("id", "attempts", "max_attempts").
		Where("id = ?", id).
		Scan(ctx)
	if selectErr != nil {
		if errors.Is(selectErr, sql.ErrNoRows) {
			s.log.Warn("email job not found when marking as failed", slog.String("job_id", id))
			return nil
		}
		return fmt.Errorf("get job for mark failed: %w", selectErr)
	}

	errorMessage := truncateError(jobErr.Error())
	now := s.now()

	if job.Attempts < job.MaxAttempts {
		delay := RetryDelay(s.cfg.RetryDelaySec, job.Attempts)
		_, err := s.db.NewUpdate().
			Model((*Job)(nil)).
			Set("status = ?", JobStatusPending).
			Set("last_error = ?", errorMessage).
			Set("next_retry_at = ?", now.Add(delay)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("requeue failed job: %w", err)
		}

		s.log.Warn("email job failed, retrying",
			slog.String("job_id", id),
			slog.Int("attempt", job.Attempts),
			slog.Int("max_attempts", job.MaxAttempts),
			slog.Duration("retry_delay", delay),
			slog.String("error", errorMessage))
		return nil
	}

	_, err := s.db.NewUpdate().
		Model((*Job)(nil)).
		Set("status = ?", JobStatusDeadLetter).
		Set("last_error = ?", errorMessage).
		Set("processed_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark as dead letter: %w", err)
	}

	s.log.Error("email job moved to dead letter queue",
		slog.String("job_id", id),
		slog.Int("attempts", job.Attempts),
		slog.String("error", errorMessage))

	return nil
}

// RecoverStaleJobs returns jobs stuck in processing for longer than
// threshold to the queue. This happens when the process stops mid-batch.
func (s *JobsService) RecoverStaleJobs(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold <= 0 {
		threshold = 10 * time.Minute
	}

	now := s.now()
	result, err := s.db.NewUpdate().
		Model((*Job)(nil)).
		Set("status = ?", JobStatusPending).
		Set("next_retry_at = ?", now).
		Where("status = ?", JobStatusProcessing).
		Where("created_at < ?", now.Add(-threshold)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.log.Warn("recovered stale email jobs",
			slog.Int64("count", count),
			slog.Duration("threshold", threshold))
	}

	return int(count), nil
}

// GetJob retrieves a job by ID. A missing job is (nil, nil).
func (s *JobsService) GetJob(ctx context.Context, id string) (*Job, error) {
	job := &Job{}
	err := s.db.NewSelect().
		Model(job).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// QueueStats contains queue statistics
type QueueStats struct {
	Pending    int64 `json:"pending" bun:"pending"`
	Processing int64 `json:"processing" bun:"processing"`
	Sent       int64 `json:"sent" bun:"sent"`
	DeadLetter int64 `json:"dead_letter" bun:"dead_letter"`
}

// Stats returns queue statistics
func (s *JobsService) Stats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{}
	err := s.db.NewSelect().
		Model((*Job)(nil)).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending", JobStatusPending).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS processing", JobStatusProcessing).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS sent", JobStatusSent).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS dead_letter", JobStatusDeadLetter).
		Scan(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// truncateError truncates an error message to 1000 characters
func truncateError(msg string) string {
	if len(msg) > 1000 {
		return msg[:1000]
	}
	return msg
}
