// Package main runs the SeekKrr landing page: the server-rendered hero, the
// waitlist modal and the static assets.
package main

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/seekkrr/landingpage/domain/hero"
	"github.com/seekkrr/landingpage/domain/landing"
	"github.com/seekkrr/landingpage/domain/scheduler"
	"github.com/seekkrr/landingpage/domain/tracing"
	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/internal/database"
	"github.com/seekkrr/landingpage/internal/metrics"
	"github.com/seekkrr/landingpage/internal/migrate"
	"github.com/seekkrr/landingpage/internal/server"
	"github.com/seekkrr/landingpage/pkg/logger"
)

func main() {
	config.LoadEnvFiles(".")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules. The database backs the SQL asset tier.
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		metrics.Module,
		tracing.Module,
		server.WebsiteModule,

		// Domain modules
		hero.Module,
		landing.Module,

		// Background tasks
		scheduler.Module,
		scheduler.AssetTasks,
	).Run()
}
