package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/seekkrr/landingpage/domain/email"
	"github.com/seekkrr/landingpage/internal/metrics"
	"github.com/seekkrr/landingpage/internal/version"
)

// Handler handles health check requests
type Handler struct {
	db      bun.IDB
	jobs    *email.JobsService
	reg     *prometheus.Registry
	startAt time.Time
}

func NewHandler(db bun.IDB, jobs *email.JobsService, reg *prometheus.Registry) *Handler {
	return &Handler{
		db:      db,
		jobs:    jobs,
		reg:     reg,
		startAt: time.Now(),
	}
}

// HealthResponse represents the health check response. OK mirrors the
// {"ok": true} body the landing page has always polled.
type HealthResponse struct {
	OK        bool             `json:"ok"`
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health returns the overall service health
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	db := Check{Status: "healthy"}
	if err := h.db.NewRaw("SELECT 1").Scan(ctx, new(int)); err != nil {
		db = Check{Status: "unhealthy", Message: err.Error()}
	}

	checks := map[string]Check{"database": db}
	if h.jobs != nil && db.Status == "healthy" {
		if stats, err := h.jobs.Stats(ctx); err == nil {
			mail := Check{Status: "healthy"}
			if stats.DeadLetter > 0 {
				mail = Check{Status: "degraded", Message: "dead letter jobs present"}
			}
			checks["email"] = mail
		}
	}

	resp := HealthResponse{
		OK:        db.Status == "healthy",
		Status:    db.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Version,
		Checks:    checks,
	}

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// Healthz returns a simple health check (liveness probe)
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready returns readiness status based on database connectivity
func (h *Handler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.db.NewRaw("SELECT 1").Scan(ctx, new(int)); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "Database connection failed",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// Metrics serves the Prometheus registry.
func (h *Handler) Metrics() echo.HandlerFunc {
	return echo.WrapHandler(metrics.Handler(h.reg))
}
