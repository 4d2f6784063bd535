package scheduler

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/seekkrr/landingpage/domain/email"
	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/pkg/assetcache"
	"github.com/seekkrr/landingpage/pkg/logger"
)

// Module provides the scheduler and runs it for the life of the app.
// Tasks are added by AssetTasks and EmailTasks.
var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(RegisterSchedulerLifecycle),
)

// AssetTasks schedules asset cache maintenance (website).
var AssetTasks = fx.Invoke(RegisterAssetTasks)

// EmailTasks schedules email queue maintenance (API).
var EmailTasks = fx.Invoke(RegisterEmailTasks)

// RegisterAssetTasks registers the load-time truncation and asset refresh tasks.
func RegisterAssetTasks(s *Scheduler, cache *assetcache.Cache, cfg *config.Config, log *slog.Logger) {
	sc := cfg.Scheduler
	if !sc.Enabled {
		return
	}

	truncate := NewLoadTimeTruncateTask(cache, assetcache.DefaultLoadTimeSamples)
	if err := s.Add(TaskLoadTimeTruncate, sc.LoadTimeTruncateSchedule, sc.LoadTimeTruncateInterval, truncate.Run); err != nil {
		log.Error("failed to register load time truncation", logger.Error(err))
	}

	refresh := NewAssetRefreshTask(cache, assetcache.DefaultPreload, log)
	if err := s.Add(TaskAssetRefresh, sc.AssetRefreshSchedule, sc.AssetRefreshInterval, refresh.Run); err != nil {
		log.Error("failed to register asset refresh", logger.Error(err))
	}
}

// RegisterEmailTasks registers stale email job recovery.
func RegisterEmailTasks(s *Scheduler, jobs *email.JobsService, cfg *config.Config, log *slog.Logger) {
	sc := cfg.Scheduler
	if !sc.Enabled {
		return
	}

	recovery := NewStaleJobRecoveryTask(jobs, sc.StaleJobThreshold)
	if err := s.Add(TaskStaleJobRecovery, sc.StaleJobSchedule, sc.StaleJobInterval, recovery.Run); err != nil {
		log.Error("failed to register stale job recovery", logger.Error(err))
	}
}

// RegisterSchedulerLifecycle registers the scheduler with fx lifecycle
func RegisterSchedulerLifecycle(lc fx.Lifecycle, s *Scheduler, cfg *config.Config) {
	if !cfg.Scheduler.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
