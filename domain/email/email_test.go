package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/internal/testutil"
)

func TestMailgunSenderValidate(t *testing.T) {
	valid := Config{
		MailgunDomain: "mg.example.com",
		MailgunAPIKey: "key-abc123",
		FromEmail:     "noreply@example.com",
		FromName:      "SeekKrr",
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
	}{
		{name: "all fields valid", mutate: func(*Config) {}},
		{name: "missing FromEmail", mutate: func(c *Config) { c.FromEmail = "" }, wantError: "EMAIL_FROM_ADDRESS is required"},
		{name: "missing FromName", mutate: func(c *Config) { c.FromName = "" }, wantError: "EMAIL_FROM_NAME is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			sender := NewMailgunSender(&cfg, testutil.DiscardLogger())
			require.NotNil(t, sender)

			err := sender.validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantError)
		})
	}
}

func TestNewMailgunSenderUnconfigured(t *testing.T) {
	assert.Nil(t, NewMailgunSender(&Config{MailgunDomain: "mg.example.com"}, testutil.DiscardLogger()))
}

func TestNewSenderFallsBackToNoOp(t *testing.T) {
	sender := NewSender(testutil.DiscardLogger(), &Config{Enabled: true})
	_, ok := sender.(*noOpSender)
	require.True(t, ok)

	res, err := sender.Send(context.Background(), SendOptions{To: "a@example.com", Subject: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "noop-a@example.com", res.MessageID)
}

func TestNewConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Email.Enabled = true
	cfg.Email.MailgunDomain = "mg.example.com"
	cfg.Email.MailgunAPIKey = "key"
	cfg.Email.WorkerIntervalMs = 250

	c := NewConfig(cfg)
	assert.True(t, c.IsConfigured())
	assert.Equal(t, 250*time.Millisecond, c.WorkerInterval())
	assert.Equal(t, 5*time.Second, (&Config{}).WorkerInterval())
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 60*time.Second, RetryDelay(60, 1))
	assert.Equal(t, 240*time.Second, RetryDelay(60, 2))
	assert.Equal(t, time.Hour, RetryDelay(60, 100))
}

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "short", truncateError("short"))
	assert.Len(t, truncateError(strings.Repeat("x", 2000)), 1000)
}

func TestTemplateServiceEmbedded(t *testing.T) {
	ts, err := NewEmbeddedTemplateService(testutil.DiscardLogger())
	require.NoError(t, err)
	require.True(t, ts.HasTemplate(TemplateSignupConfirmation))
	assert.False(t, ts.HasTemplate("missing"))

	res, err := ts.Render(TemplateSignupConfirmation, TemplateContext{
		"title":         "You're on the list",
		"recipientName": "Ada",
		"siteUrl":       "https://seekkrr.com",
	}, "default")
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "<html")
	assert.Contains(t, res.HTML, "Ada")
	assert.Contains(t, res.Text, "Ada")
	assert.Contains(t, res.Text, "https://seekkrr.com")
}

func TestTemplateServiceWithoutLayouts(t *testing.T) {
	fsys := fstest.MapFS{
		"note.hbs": {Data: []byte("<p>{{message}}</p>")},
	}
	ts, err := NewTemplateService(fsys, testutil.DiscardLogger())
	require.NoError(t, err)

	res, err := ts.Render("note", TemplateContext{"message": "hi <b>", "title": "Note"}, "default")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi &lt;b&gt;</p>", res.HTML)
	assert.Equal(t, "Note\n\nhi <b>\n", res.Text)

	_, err = ts.Render("missing", nil, "")
	assert.Error(t, err)
}

func TestTemplateServiceParseError(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.hbs": {Data: []byte("{{#if}}")},
	}
	_, err := NewTemplateService(fsys, testutil.DiscardLogger())
	assert.Error(t, err)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []SendOptions
	fail error
}

func (f *fakeSender) Send(_ context.Context, opts SendOptions) (*SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, opts)
	if f.fail != nil {
		return &SendResult{Error: f.fail.Error()}, nil
	}
	return &SendResult{Success: true, MessageID: "msg-" + opts.To}, nil
}

type JobsSuite struct {
	testutil.DBSuite
	cfg  *Config
	jobs *JobsService
	now  time.Time
}

func TestJobsSuite(t *testing.T) {
	suite.Run(t, new(JobsSuite))
}

func (s *JobsSuite) SetupTest() {
	s.DBSuite.SetupTest()
	s.cfg = &Config{Enabled: true, MaxRetries: 2, RetryDelaySec: 60, WorkerBatchSize: 10}
	s.jobs = NewJobsService(s.DB, testutil.DiscardLogger(), s.cfg)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.jobs.now = func() time.Time { return s.now }
}

func (s *JobsSuite) enqueue(to string) *Job {
	id := int64(7)
	job, err := s.jobs.Enqueue(s.Ctx, EnqueueOptions{
		TemplateName: TemplateSignupConfirmation,
		ToEmail:      to,
		Subject:      "Welcome",
		TemplateData: map[string]any{"siteUrl": "https://seekkrr.com"},
		SourceID:     &id,
	})
	s.Require().NoError(err)
	return job
}

func (s *JobsSuite) TestEnqueueAndGet() {
	job := s.enqueue("a@example.com")

	got, err := s.jobs.GetJob(s.Ctx, job.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(JobStatusPending, got.Status)
	s.Equal(2, got.MaxAttempts)
	s.Equal("https://seekkrr.com", got.TemplateData["siteUrl"])
	s.Require().NotNil(got.SourceID)
	s.Equal(int64(7), *got.SourceID)

	missing, err := s.jobs.GetJob(s.Ctx, "does-not-exist")
	s.NoError(err)
	s.Nil(missing)
}

func (s *JobsSuite) TestDequeueClaimsOnce() {
	s.enqueue("a@example.com")
	s.enqueue("b@example.com")

	jobs, err := s.jobs.Dequeue(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	for _, j := range jobs {
		s.Equal(JobStatusProcessing, j.Status)
		s.Equal(1, j.Attempts)
	}

	again, err := s.jobs.Dequeue(s.Ctx, 10)
	s.Require().NoError(err)
	s.Empty(again)
}

func (s *JobsSuite) TestMarkFailedRetriesThenDeadLetters() {
	job := s.enqueue("a@example.com")

	_, err := s.jobs.Dequeue(s.Ctx, 1)
	s.Require().NoError(err)
	s.Require().NoError(s.jobs.MarkFailed(s.Ctx, job.ID, errors.New("boom")))

	got, err := s.jobs.GetJob(s.Ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(JobStatusPending, got.Status)
	s.Require().NotNil(got.NextRetryAt)
	s.True(got.NextRetryAt.Equal(s.now.Add(time.Minute)))

	// Not due yet.
	jobs, err := s.jobs.Dequeue(s.Ctx, 1)
	s.Require().NoError(err)
	s.Empty(jobs)

	s.now = s.now.Add(2 * time.Minute)
	jobs, err = s.jobs.Dequeue(s.Ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Require().NoError(s.jobs.MarkFailed(s.Ctx, job.ID, errors.New("boom again")))

	got, err = s.jobs.GetJob(s.Ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(JobStatusDeadLetter, got.Status)
	s.Require().NotNil(got.LastError)
	s.Equal("boom again", *got.LastError)

	s.NoError(s.jobs.MarkFailed(s.Ctx, "unknown", errors.New("x")))
}

func (s *JobsSuite) TestRecoverStaleJobs() {
	s.enqueue("a@example.com")
	_, err := s.jobs.Dequeue(s.Ctx, 1)
	s.Require().NoError(err)

	n, err := s.jobs.RecoverStaleJobs(s.Ctx, 10*time.Minute)
	s.Require().NoError(err)
	s.Equal(0, n)

	s.now = s.now.Add(11 * time.Minute)
	n, err = s.jobs.RecoverStaleJobs(s.Ctx, 10*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, n)

	stats, err := s.jobs.Stats(s.Ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Pending)
	s.Equal(int64(0), stats.Processing)
}

func (s *JobsSuite) TestWorkerSendsAndMarks() {
	ok := s.enqueue("a@example.com")
	sender := &fakeSender{}
	templates, err := NewEmbeddedTemplateService(testutil.DiscardLogger())
	s.Require().NoError(err)

	w := NewWorker(s.jobs, sender, templates, s.cfg, prometheus.NewRegistry(), testutil.DiscardLogger())
	n, err := w.ProcessBatch(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	s.Require().Len(sender.sent, 1)
	s.Equal("a@example.com", sender.sent[0].To)
	s.Contains(sender.sent[0].HTML, "<html")

	got, err := s.jobs.GetJob(s.Ctx, ok.ID)
	s.Require().NoError(err)
	s.Equal(JobStatusSent, got.Status)
	s.Require().NotNil(got.MessageID)
	s.Equal("msg-a@example.com", *got.MessageID)
	s.Equal(WorkerMetrics{Processed: 1, Succeeded: 1}, w.Metrics())
}

func (s *JobsSuite) TestWorkerFallbackAndFailure() {
	job, err := s.jobs.Enqueue(s.Ctx, EnqueueOptions{
		TemplateName: "unknown_template",
		ToEmail:      "b@example.com",
		Subject:      "Hello",
		TemplateData: map[string]any{"message": "Thanks <3"},
	})
	s.Require().NoError(err)

	sender := &fakeSender{fail: errors.New("provider down")}
	w := NewWorker(s.jobs, sender, nil, s.cfg, prometheus.NewRegistry(), testutil.DiscardLogger())
	_, err = w.ProcessBatch(s.Ctx)
	s.Require().NoError(err)

	s.Require().Len(sender.sent, 1)
	s.Contains(sender.sent[0].HTML, "Thanks &lt;3")
	s.Contains(sender.sent[0].Text, "Thanks <3")

	got, err := s.jobs.GetJob(s.Ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(JobStatusPending, got.Status)
	s.Equal(WorkerMetrics{Processed: 1, Failed: 1}, w.Metrics())
}

func (s *JobsSuite) TestWorkerStartStop() {
	cfg := *s.cfg
	cfg.WorkerIntervalMs = 10
	w := NewWorker(s.jobs, &fakeSender{}, nil, &cfg, prometheus.NewRegistry(), testutil.DiscardLogger())

	s.Require().NoError(w.Start(s.Ctx))
	s.True(w.IsRunning())
	ctx, cancel := context.WithTimeout(s.Ctx, time.Second)
	defer cancel()
	s.Require().NoError(w.Stop(ctx))
	s.False(w.IsRunning())

	disabled := NewWorker(s.jobs, &fakeSender{}, nil, &Config{}, prometheus.NewRegistry(), testutil.DiscardLogger())
	s.Require().NoError(disabled.Start(s.Ctx))
	s.False(disabled.IsRunning())
}
