package email

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/seekkrr/landingpage/pkg/logger"
)

// Worker polls the email job queue, renders each job and hands it to the
// Sender. Stale jobs are recovered on startup and Stop waits for the
// current batch.
type Worker struct {
	jobs      *JobsService
	sender    Sender
	templates *TemplateService
	cfg       *Config
	log       *slog.Logger
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	mu        sync.Mutex

	sent   prometheus.Counter
	failed prometheus.Counter

	processedCount int64
	successCount   int64
	failureCount   int64
	metricsMu      sync.RWMutex
}

// NewWorker creates a new email worker
func NewWorker(jobs *JobsService, sender Sender, templates *TemplateService, cfg *Config, reg prometheus.Registerer, log *slog.Logger) *Worker {
	factory := promauto.With(reg)
	return &Worker{
		jobs:      jobs,
		sender:    sender,
		templates: templates,
		cfg:       cfg,
		log:       log.With(logger.Scope("email.worker")),
		sent: factory.NewCounter(prometheus.CounterOpts{
			Name: "seekkrr_email_sent_total",
			Help: "Emails delivered to the provider.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "seekkrr_email_failed_total",
			Help: "Email send attempts that failed.",
		}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if !w.cfg.Enabled {
		w.log.Info("email worker not started (EMAIL_ENABLED=false)")
		w.mu.Unlock()
		return nil
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})
	w.mu.Unlock()

	// The fx start context is cancelled once startup completes.
	runCtx := context.WithoutCancel(ctx)

	w.recoverStaleJobs(runCtx)

	w.log.Info("email worker starting",
		slog.Duration("poll_interval", w.cfg.WorkerInterval()),
		slog.Int("batch_size", w.cfg.WorkerBatchSize))

	go w.run(runCtx)
	return nil
}

// Stop gracefully stops the worker, waiting for current batch to complete
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	select {
	case <-w.stoppedCh:
		w.log.Info("email worker stopped gracefully")
	case <-ctx.Done():
		w.log.Warn("email worker stop timeout, forcing shutdown")
	}
	return nil
}

func (w *Worker) recoverStaleJobs(ctx context.Context) {
	recovered, err := w.jobs.RecoverStaleJobs(ctx, 10*time.Minute)
	if err != nil {
		w.log.Warn("failed to recover stale jobs on startup", logger.Error(err))
		return
	}
	if recovered > 0 {
		w.log.Info("recovered stale email jobs on startup", slog.Int("count", recovered))
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.cfg.WorkerInterval())
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.log.Warn("process batch failed", logger.Error(err))
			}
		}
	}
}

// ProcessBatch claims one batch of due jobs and sends them. It returns the
// number of jobs claimed.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	jobs, err := w.jobs.Dequeue(ctx, w.cfg.WorkerBatchSize)
	if err != nil {
		return 0, err
	}

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.log.Warn("process job failed",
				slog.String("job_id", job.ID),
				logger.Error(err))
		}
	}
	return len(jobs), nil
}

func (w *Worker) processJob(ctx context.Context, job *Job) error {
	startTime := time.Now()

	templateContext := make(TemplateContext, len(job.TemplateData)+3)
	for k, v := range job.TemplateData {
		templateContext[k] = v
	}
	if _, ok := templateContext["title"]; !ok {
		templateContext["title"] = job.Subject
	}
	if _, ok := templateContext["previewText"]; !ok {
		templateContext["previewText"] = job.Subject
	}
	if job.ToName != nil {
		templateContext["recipientName"] = *job.ToName
	}

	var htmlContent, textContent string
	if w.templates != nil && w.templates.HasTemplate(job.TemplateName) {
		result, err := w.templates.Render(job.TemplateName, templateContext, "default")
		if err != nil {
			w.log.Warn("template render failed, using fallback",
				slog.String("template", job.TemplateName),
				logger.Error(err))
			htmlContent, textContent = fallbackHTML(job, templateContext), fallbackText(templateContext)
		} else {
			htmlContent, textContent = result.HTML, result.Text
		}
	} else {
		w.log.Debug("template not found, using fallback", slog.String("template", job.TemplateName))
		htmlContent, textContent = fallbackHTML(job, templateContext), fallbackText(templateContext)
	}

	toName := ""
	if job.ToName != nil {
		toName = *job.ToName
	}

	result, err := w.sender.Send(ctx, SendOptions{
		To:      job.ToEmail,
		ToName:  toName,
		Subject: job.Subject,
		HTML:    htmlContent,
		Text:    textContent,
	})
	if err == nil && !result.Success {
		err = errors.New(result.Error)
	}
	if err != nil {
		if markErr := w.jobs.MarkFailed(ctx, job.ID, err); markErr != nil {
			w.log.Error("failed to mark job as failed",
				slog.String("job_id", job.ID),
				logger.Error(markErr))
		}
		w.record(false)
		return err
	}

	if err := w.jobs.MarkSent(ctx, job.ID, result.MessageID); err != nil {
		w.log.Error("failed to mark job as sent",
			slog.String("job_id", job.ID),
			logger.Error(err))
		return err
	}

	w.log.Debug("email sent",
		slog.String("job_id", job.ID),
		slog.String("template", job.TemplateName),
		slog.String("message_id", result.MessageID),
		slog.Int64("duration_ms", time.Since(startTime).Milliseconds()))

	w.record(true)
	return nil
}

func greeting(ctx TemplateContext) string {
	if name, ok := ctx["recipientName"].(string); ok && name != "" {
		return "Hello " + name
	}
	return "Hello"
}

func fallbackHTML(job *Job, ctx TemplateContext) string {
	message, _ := ctx["message"].(string)
	siteURL, _ := ctx["siteUrl"].(string)

	out := `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>` + html.EscapeString(job.Subject) + `</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #1f2937; padding: 20px;">
  <p>` + html.EscapeString(greeting(ctx)) + `,</p>
  <p>` + html.EscapeString(message) + `</p>`
	if siteURL != "" {
		out += `
  <p><a href="` + html.EscapeString(siteURL) + `">Visit SeekKrr</a></p>`
	}
	out += `
  <p style="font-size: 12px; color: #6b7280;">This email was sent by SeekKrr.</p>
</body>
</html>`
	return out
}

func fallbackText(ctx TemplateContext) string {
	message, _ := ctx["message"].(string)
	text := greeting(ctx) + ",\n\n" + message
	if siteURL, ok := ctx["siteUrl"].(string); ok && siteURL != "" {
		text += "\n\nLink: " + siteURL
	}
	return text + "\n\n---\nThis email was sent by SeekKrr."
}

func (w *Worker) record(success bool) {
	w.metricsMu.Lock()
	w.processedCount++
	if success {
		w.successCount++
	} else {
		w.failureCount++
	}
	w.metricsMu.Unlock()

	if success {
		w.sent.Inc()
	} else {
		w.failed.Inc()
	}
}

// WorkerMetrics contains worker metrics
type WorkerMetrics struct {
	Processed int64 `json:"processed"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Metrics returns current worker metrics
func (w *Worker) Metrics() WorkerMetrics {
	w.metricsMu.RLock()
	defer w.metricsMu.RUnlock()
	return WorkerMetrics{
		Processed: w.processedCount,
		Succeeded: w.successCount,
		Failed:    w.failureCount,
	}
}

// IsRunning returns whether the worker is currently running
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
