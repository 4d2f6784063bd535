package hero

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/pkg/assetcache"
	"github.com/seekkrr/landingpage/pkg/frame"
	"github.com/seekkrr/landingpage/pkg/geometry"
	"github.com/seekkrr/landingpage/pkg/logger"
	"github.com/seekkrr/landingpage/web"
)

// Module provides the asset cache, the renderer and the hero routes.
var Module = fx.Module("hero",
	fx.Provide(
		NewAssetCache,
		NewGeometryStore,
		NewFrameSource,
		NewRendererFromConfig,
		NewHandlerFromConfig,
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RegisterCacheLifecycle),
)

type AssetCacheParams struct {
	fx.In

	Config     *config.Config
	DB         bun.IDB `optional:"true"`
	Registerer prometheus.Registerer
	Log        *slog.Logger
}

// NewAssetCache builds the cache from config. Assets come from ASSET_ORIGIN
// when set, otherwise from the embedded static files.
func NewAssetCache(p AssetCacheParams) (*assetcache.Cache, error) {
	ac := p.Config.Assets

	var fetcher assetcache.Fetcher
	if ac.Origin != "" {
		fetcher = assetcache.NewHTTPFetcher(ac.Origin, ac.AttemptTimeout)
	} else {
		fetcher = assetcache.NewFSFetcher(web.Static())
	}

	tier, err := newPersistentTier(ac, p.DB, p.Log)
	if err != nil {
		return nil, err
	}

	opts := assetcache.DefaultOptions()
	opts.Version = ac.CacheVersion
	opts.Capacity = ac.Capacity
	opts.Policy = assetcache.Policy(strings.ToLower(ac.Policy))
	opts.ImageCapacity = ac.ImageCapacity
	opts.Retry = assetcache.RetryPolicy{
		MaxAttempts:    ac.MaxAttempts,
		BaseDelay:      ac.RetryDelay,
		AttemptTimeout: ac.AttemptTimeout,
	}
	opts.Registerer = p.Registerer

	return assetcache.New(opts, fetcher, tier, p.Log)
}

func newPersistentTier(ac config.AssetsConfig, db bun.IDB, log *slog.Logger) (assetcache.PersistentTier, error) {
	switch strings.ToLower(ac.Persistent) {
	case "", "none":
		return assetcache.NoPersistence{}, nil
	case "sql":
		if db == nil {
			log.Warn("sql asset tier requested without a database, using memory only")
			return assetcache.NoPersistence{}, nil
		}
		return assetcache.NewSQLTier(db), nil
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return assetcache.NewS3Tier(ctx, assetcache.S3Options{
			Endpoint:        ac.S3.Endpoint,
			Region:          ac.S3.Region,
			Bucket:          ac.S3.Bucket,
			AccessKeyID:     ac.S3.AccessKeyID,
			SecretAccessKey: ac.S3.SecretAccessKey,
			UsePathStyle:    ac.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown asset tier %q", ac.Persistent)
	}
}

// NewGeometryStore loads GEOMETRY_FILE, or the embedded defaults.
func NewGeometryStore(cfg *config.Config) (*geometry.Store, error) {
	if cfg.Render.GeometryFile != "" {
		return geometry.LoadFile(cfg.Render.GeometryFile)
	}
	return geometry.Default()
}

// NewFrameSource starts the ticker shared by all hero sessions.
func NewFrameSource(lc fx.Lifecycle, cfg *config.Config) *frame.TickerSource {
	src := frame.NewTickerSource(cfg.Render.FrameRate)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			src.Stop()
			return nil
		},
	})
	return src
}

func NewRendererFromConfig(cache *assetcache.Cache, store *geometry.Store, cfg *config.Config, log *slog.Logger) *Renderer {
	return NewRenderer(cache, store, Options{
		MaxDPR:        cfg.Render.MaxDPR,
		MaxViewport:   cfg.Render.MaxViewport,
		MaxPixels:     cfg.Render.MaxPixels,
		MaxConcurrent: cfg.Render.MaxConcurrent,
	}, log)
}

func NewHandlerFromConfig(r *Renderer, cache *assetcache.Cache, src *frame.TickerSource, cfg *config.Config, log *slog.Logger) *Handler {
	return NewHandler(r, cache, SessionOptions{
		Source:           src,
		MinInterval:      cfg.Render.MinInterval,
		OrientationDelay: cfg.Render.OrientationDelay,
	}, log)
}

// RegisterRoutes mounts the hero endpoints.
func RegisterRoutes(r *chi.Mux, h *Handler) {
	r.Get("/hero.png", h.Image)
	r.Get("/hero/layout", h.Layout)
	r.Get("/hero/background.png", h.Background)
	r.Handle("/ws/hero", h.Socket())
}

// RegisterCacheLifecycle purges stale cache versions and preloads the hero
// assets in the background once the app starts.
func RegisterCacheLifecycle(lc fx.Lifecycle, cache *assetcache.Cache, log *slog.Logger) {
	log = log.With(logger.Scope("hero"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				cache.Init(ctx)
				loaded := 0
				for _, res := range cache.Preload(ctx, assetcache.DefaultPreload) {
					if res.Success {
						loaded++
					}
				}
				log.Info("hero assets preloaded",
					slog.Int("loaded", loaded),
					slog.Int("total", len(assetcache.DefaultPreload)),
				)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
