package email

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the email job queue, templates, sender and worker.
var Module = fx.Module("email",
	fx.Provide(
		NewConfig,
		NewJobsService,
		NewEmbeddedTemplateService,
		NewSender,
		NewWorker,
	),
	fx.Invoke(RegisterWorkerLifecycle),
)

// RegisterWorkerLifecycle registers the email worker with fx lifecycle
func RegisterWorkerLifecycle(lc fx.Lifecycle, worker *Worker, cfg *Config) {
	if !cfg.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return worker.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return worker.Stop(ctx)
		},
	})
}
