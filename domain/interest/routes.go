package interest

import (
	"github.com/labstack/echo/v4"

	"github.com/seekkrr/landingpage/internal/config"
)

// RegisterRoutes registers the waitlist API routes
func RegisterRoutes(e *echo.Echo, h *Handler, limiter *RateLimiter, cfg *config.Config) {
	e.POST("/api/interest", h.Create, limiter.Middleware())

	admin := e.Group("/api/admin", RequireAdminToken(cfg.Admin.Token))
	admin.GET("/interests", h.List)
	admin.GET("/export", h.Export)
}
