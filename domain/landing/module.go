package landing

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/pkg/waitlist"
)

// Module provides the landing page routes
var Module = fx.Module("landing",
	fx.Provide(NewSubmitter),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// NewSubmitter returns the API client the waitlist form posts through.
func NewSubmitter(cfg *config.Config) waitlist.Submitter {
	return waitlist.NewClient(cfg.Waitlist.APIBaseURL, cfg.Waitlist.SubmitTimeout)
}

// RegisterRoutes registers the landing page routes
func RegisterRoutes(r *chi.Mux, h *Handler) {
	r.Get("/", h.Page)
	r.Post("/waitlist", h.Submit)
	r.Post("/theme", h.Theme)
	r.Get("/geometry.css", h.GeometryCSS)
}
