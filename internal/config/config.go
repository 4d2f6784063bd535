package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds the configuration shared by the website and the API.
type Config struct {
	WebsitePort   int    `env:"WEBSITE_PORT" envDefault:"4002"`
	APIPort       int    `env:"API_PORT" envDefault:"5000"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	// SiteURL is the public landing page address used in emails.
	SiteURL string `env:"SITE_URL" envDefault:"https://seekkrr.com"`

	Database  DatabaseConfig
	Assets    AssetsConfig
	Render    RenderConfig
	Waitlist  WaitlistConfig
	Email     EmailConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Otel      OtelConfig

	// CORSAllowOrigins lists the origins allowed to call the API from a browser.
	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:4002"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig selects between the embedded SQLite file and PostgreSQL.
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"sqlite"`
	SQLitePath string `env:"DB_PATH" envDefault:"interests.db"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"seekkrr"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:""`
	Name     string `env:"POSTGRES_DB" envDefault:"seekkrr"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// IsPostgres reports whether the PostgreSQL driver is selected.
func (d *DatabaseConfig) IsPostgres() bool {
	return strings.EqualFold(d.Driver, "postgres")
}

// DSN returns the connection string for the selected driver.
func (d *DatabaseConfig) DSN() string {
	if d.IsPostgres() {
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
		)
	}
	sep := "?"
	if strings.Contains(d.SQLitePath, "?") {
		sep = "&"
	}
	return "file:" + d.SQLitePath + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// AssetsConfig configures the hero asset cache.
type AssetsConfig struct {
	// Origin is the base URL assets are fetched from. Empty serves them from
	// the embedded static files.
	Origin         string        `env:"ASSET_ORIGIN" envDefault:""`
	CacheVersion   string        `env:"ASSET_CACHE_VERSION" envDefault:"1.0.0"`
	Capacity       int           `env:"ASSET_CACHE_CAPACITY" envDefault:"50"`
	Policy         string        `env:"ASSET_CACHE_POLICY" envDefault:"fifo"`
	ImageCapacity  int           `env:"ASSET_IMAGE_CACHE_CAPACITY" envDefault:"64"`
	MaxAttempts    int           `env:"ASSET_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay     time.Duration `env:"ASSET_RETRY_DELAY" envDefault:"1s"`
	AttemptTimeout time.Duration `env:"ASSET_ATTEMPT_TIMEOUT" envDefault:"10s"`

	// Persistent is the persistent tier: "none", "sql" or "s3".
	Persistent string `env:"ASSET_PERSISTENT_TIER" envDefault:"sql"`
	S3         S3Config
}

// S3Config holds the S3 (or MinIO) bucket used as persistent asset tier.
type S3Config struct {
	Endpoint        string `env:"ASSET_S3_ENDPOINT" envDefault:""`
	Region          string `env:"ASSET_S3_REGION" envDefault:"us-east-1"`
	Bucket          string `env:"ASSET_S3_BUCKET" envDefault:"seekkrr-assets"`
	AccessKeyID     string `env:"ASSET_S3_ACCESS_KEY" envDefault:""`
	SecretAccessKey string `env:"ASSET_S3_SECRET_KEY" envDefault:""`
	UsePathStyle    bool   `env:"ASSET_S3_PATH_STYLE" envDefault:"true"`
}

// IsConfigured reports whether static credentials are present.
func (s *S3Config) IsConfigured() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// RenderConfig tunes the hero renderer and its frame scheduler.
type RenderConfig struct {
	MinInterval      time.Duration `env:"RENDER_MIN_INTERVAL" envDefault:"80ms"`
	OrientationDelay time.Duration `env:"RENDER_ORIENTATION_DELAY" envDefault:"120ms"`
	FrameRate        int           `env:"RENDER_FRAME_RATE" envDefault:"60"`
	MaxDPR           float64       `env:"RENDER_MAX_DPR" envDefault:"2"`
	MaxViewport      int           `env:"RENDER_MAX_VIEWPORT" envDefault:"4096"`
	MaxPixels        int           `env:"RENDER_MAX_PIXELS" envDefault:"8294400"`
	MaxConcurrent    int           `env:"RENDER_MAX_CONCURRENT" envDefault:"4"`
	// GeometryFile overrides the embedded geometry variables.
	GeometryFile string `env:"GEOMETRY_FILE" envDefault:""`
}

// WaitlistConfig is read by the website.
type WaitlistConfig struct {
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:5000"`
	EnableDarkMode bool          `env:"ENABLE_DARK_MODE" envDefault:"false"`
	SubmitTimeout  time.Duration `env:"WAITLIST_SUBMIT_TIMEOUT" envDefault:"10s"`
}

// EmailConfig holds the signup confirmation email settings.
type EmailConfig struct {
	Enabled       bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	MailgunDomain string `env:"MAILGUN_DOMAIN" envDefault:""`
	MailgunAPIKey string `env:"MAILGUN_API_KEY" envDefault:""`
	FromEmail     string `env:"EMAIL_FROM_ADDRESS" envDefault:"noreply@seekkrr.com"`
	FromName      string `env:"EMAIL_FROM_NAME" envDefault:"SeekKrr"`
	MaxRetries    int    `env:"EMAIL_MAX_RETRIES" envDefault:"3"`
	RetryDelaySec int    `env:"EMAIL_RETRY_DELAY_SEC" envDefault:"60"`
	// WorkerIntervalMs is the polling interval of the email worker.
	WorkerIntervalMs int `env:"EMAIL_WORKER_INTERVAL_MS" envDefault:"5000"`
	WorkerBatchSize  int `env:"EMAIL_WORKER_BATCH_SIZE" envDefault:"10"`
}

// IsConfigured returns true if Mailgun is configured
func (e *EmailConfig) IsConfigured() bool {
	return e.MailgunDomain != "" && e.MailgunAPIKey != ""
}

// WorkerInterval returns the worker interval as a Duration
func (e *EmailConfig) WorkerInterval() time.Duration {
	return time.Duration(e.WorkerIntervalMs) * time.Millisecond
}

type AdminConfig struct {
	// Token guards the export endpoints. Empty disables the check.
	Token string `env:"ADMIN_TOKEN" envDefault:""`
}

type RateLimitConfig struct {
	Enabled bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RPS     float64 `env:"RATE_LIMIT_RPS" envDefault:"0.2"`
	Burst   int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

// SchedulerConfig drives the periodic maintenance tasks. A non-empty
// schedule (standard five-field cron) takes precedence over its interval.
type SchedulerConfig struct {
	Enabled bool `env:"SCHEDULER_ENABLED" envDefault:"true"`

	LoadTimeTruncateInterval time.Duration `env:"LOAD_TIME_TRUNCATE_INTERVAL" envDefault:"1h"`
	LoadTimeTruncateSchedule string        `env:"LOAD_TIME_TRUNCATE_SCHEDULE" envDefault:""`
	AssetRefreshInterval     time.Duration `env:"ASSET_REFRESH_INTERVAL" envDefault:"15m"`
	AssetRefreshSchedule     string        `env:"ASSET_REFRESH_SCHEDULE" envDefault:""`
	StaleJobInterval         time.Duration `env:"STALE_JOB_CLEANUP_INTERVAL" envDefault:"5m"`
	StaleJobSchedule         string        `env:"STALE_JOB_CLEANUP_SCHEDULE" envDefault:""`
	StaleJobThreshold        time.Duration `env:"STALE_JOB_THRESHOLD" envDefault:"10m"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("website_port", cfg.WebsitePort),
		slog.Int("api_port", cfg.APIPort),
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("asset_tier", cfg.Assets.Persistent),
	)

	return cfg, nil
}
