package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/seekkrr/landingpage/pkg/assetcache"
	"github.com/seekkrr/landingpage/pkg/logger"
)

// Task names.
const (
	TaskLoadTimeTruncate = "load_time_truncate"
	TaskAssetRefresh     = "asset_refresh"
	TaskStaleJobRecovery = "stale_email_job_recovery"
)

// LoadTimeTruncator is implemented by *assetcache.Cache.
type LoadTimeTruncator interface {
	TruncateLoadTimes(n int)
}

// LoadTimeTruncateTask keeps the asset cache's load samples bounded.
type LoadTimeTruncateTask struct {
	cache LoadTimeTruncator
	keep  int
}

func NewLoadTimeTruncateTask(cache LoadTimeTruncator, keep int) *LoadTimeTruncateTask {
	if keep <= 0 {
		keep = assetcache.DefaultLoadTimeSamples
	}
	return &LoadTimeTruncateTask{cache: cache, keep: keep}
}

func (t *LoadTimeTruncateTask) Run(context.Context) error {
	t.cache.TruncateLoadTimes(t.keep)
	return nil
}

// Preloader is implemented by *assetcache.Cache.
type Preloader interface {
	Preload(ctx context.Context, urls []string) []assetcache.PreloadResult
}

// AssetRefreshTask preloads the hero assets again so that entries which
// failed earlier get another chance. Loaded entries are memory hits.
type AssetRefreshTask struct {
	cache Preloader
	urls  []string
	log   *slog.Logger
}

func NewAssetRefreshTask(cache Preloader, urls []string, log *slog.Logger) *AssetRefreshTask {
	return &AssetRefreshTask{
		cache: cache,
		urls:  urls,
		log:   log.With(logger.Scope("scheduler.asset_refresh")),
	}
}

func (t *AssetRefreshTask) Run(ctx context.Context) error {
	var missing []string
	for _, r := range t.cache.Preload(ctx, t.urls) {
		if !r.Success {
			missing = append(missing, r.URL)
		}
	}
	if len(missing) > 0 {
		t.log.Warn("hero assets still unavailable", slog.Any("urls", missing))
	}
	return nil
}

// StaleJobRecoverer is implemented by *email.JobsService.
type StaleJobRecoverer interface {
	RecoverStaleJobs(ctx context.Context, threshold time.Duration) (int, error)
}

// StaleJobRecoveryTask requeues email jobs left in processing by a worker
// that stopped mid-batch.
type StaleJobRecoveryTask struct {
	jobs      StaleJobRecoverer
	threshold time.Duration
}

func NewStaleJobRecoveryTask(jobs StaleJobRecoverer, threshold time.Duration) *StaleJobRecoveryTask {
	return &StaleJobRecoveryTask{jobs: jobs, threshold: threshold}
}

func (t *StaleJobRecoveryTask) Run(ctx context.Context) error {
	_, err := t.jobs.RecoverStaleJobs(ctx, t.threshold)
	return err
}
