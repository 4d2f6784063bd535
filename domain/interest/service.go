package interest

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/seekkrr/landingpage/domain/email"
	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/pkg/apperror"
	"github.com/seekkrr/landingpage/pkg/logger"
	"github.com/seekkrr/landingpage/pkg/waitlist"
)

// Mailer queues outgoing email. *email.JobsService implements it.
type Mailer interface {
	Enqueue(ctx context.Context, opts email.EnqueueOptions) (*email.Job, error)
}

// Service validates and stores waitlist submissions.
type Service struct {
	repo    *Repository
	mailer  Mailer
	siteURL string
	log     *slog.Logger
	now     func() time.Time

	submissions *prometheus.CounterVec
}

func NewService(repo *Repository, jobs *email.JobsService, cfg *config.Config, reg prometheus.Registerer, log *slog.Logger) *Service {
	s := newService(repo, cfg.SiteURL, reg, log)
	if jobs != nil {
		s.mailer = jobs
	}
	return s
}

func newService(repo *Repository, siteURL string, reg prometheus.Registerer, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		siteURL: siteURL,
		log:     log.With(logger.Scope("interest.svc")),
		now:     func() time.Time { return time.Now().UTC() },
		submissions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "seekkrr_interest_submissions_total",
			Help: "Waitlist submissions by outcome.",
		}, []string{"result"}),
	}
}

// Submit trims and validates f, stores it and queues the confirmation
// email. Validation failures come back as a 422 carrying per-field messages.
func (s *Service) Submit(ctx context.Context, f waitlist.Form) (*Interest, error) {
	f = f.Trimmed()
	if errs := f.Validate(); !errs.Empty() {
		s.submissions.WithLabelValues("invalid").Inc()
		return nil, apperror.NewValidation(errs, waitlist.FieldOrder...)
	}

	item := &Interest{
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		CreatedAt: s.now().Truncate(time.Microsecond),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		s.submissions.WithLabelValues("error").Inc()
		return nil, err
	}
	s.submissions.WithLabelValues("accepted").Inc()

	s.log.Info("interest recorded",
		slog.Int64("id", item.ID),
		slog.Bool("has_email", item.Email != ""),
		slog.Bool("has_phone", item.Phone != ""))

	s.queueConfirmation(ctx, item)
	return item, nil
}

// queueConfirmation is best effort: the submission is already stored.
func (s *Service) queueConfirmation(ctx context.Context, item *Interest) {
	if s.mailer == nil || item.Email == "" {
		return
	}
	name := item.Name
	_, err := s.mailer.Enqueue(ctx, email.EnqueueOptions{
		TemplateName: email.TemplateSignupConfirmation,
		ToEmail:      item.Email,
		ToName:       &name,
		Subject:      "You're on the SeekKrr waitlist",
		TemplateData: map[string]any{
			"position": item.ID,
			"siteUrl":  s.siteURL,
		},
		SourceID: &item.ID,
	})
	if err != nil {
		s.log.Warn("failed to queue confirmation email",
			slog.Int64("id", item.ID),
			logger.Error(err))
	}
}

// List returns stored interests in f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Interest, error) {
	return s.repo.List(ctx, f)
}

// Count returns how many interests are stored.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
