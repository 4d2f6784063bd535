package email

import (
	"time"

	"github.com/seekkrr/landingpage/internal/config"
)

// Config contains email service configuration
type Config struct {
	// Enabled determines if email sending is enabled
	Enabled       bool
	MailgunDomain string
	MailgunAPIKey string
	FromEmail     string
	FromName      string
	// MaxRetries is the maximum number of send attempts (default: 3)
	MaxRetries int
	// RetryDelaySec is the base delay in seconds for retries (default: 60)
	RetryDelaySec    int
	WorkerIntervalMs int
	WorkerBatchSize  int
}

// NewConfig creates email configuration from the app config
func NewConfig(cfg *config.Config) *Config {
	return &Config{
		Enabled:          cfg.Email.Enabled,
		MailgunDomain:    cfg.Email.MailgunDomain,
		MailgunAPIKey:    cfg.Email.MailgunAPIKey,
		FromEmail:        cfg.Email.FromEmail,
		FromName:         cfg.Email.FromName,
		MaxRetries:       cfg.Email.MaxRetries,
		RetryDelaySec:    cfg.Email.RetryDelaySec,
		WorkerIntervalMs: cfg.Email.WorkerIntervalMs,
		WorkerBatchSize:  cfg.Email.WorkerBatchSize,
	}
}

// WorkerInterval returns the worker interval as a Duration
func (c *Config) WorkerInterval() time.Duration {
	if c.WorkerIntervalMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.WorkerIntervalMs) * time.Millisecond
}

// IsConfigured returns true if Mailgun is configured
func (c *Config) IsConfigured() bool {
	return c.MailgunDomain != "" && c.MailgunAPIKey != ""
}
