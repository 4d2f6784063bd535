// Package main runs the SeekKrr waitlist API: interest submissions, admin
// export, health and the signup email worker.
package main

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/seekkrr/landingpage/domain/email"
	"github.com/seekkrr/landingpage/domain/health"
	"github.com/seekkrr/landingpage/domain/interest"
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

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		metrics.Module,
		tracing.Module,
		server.Module,
		tracing.EchoModule,

		// Domain modules
		health.Module,
		email.Module,
		interest.Module,

		// Background tasks
		scheduler.Module,
		scheduler.EmailTasks,
	).Run()
}
