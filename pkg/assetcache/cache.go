// Package assetcache loads hero assets through a memory tier, a persistent
// tier and finally the network, with bounded retries.
//
// A lookup either yields content or reports absence. Absence means the URL
// failed validation or exhausted its retries; callers render without the
// asset.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/gg"
	ggcache "github.com/gogpu/gg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seekkrr/landingpage/pkg/logger"
	"github.com/seekkrr/landingpage/pkg/tracing"
)

var (
	ErrStatus     = errors.New("unexpected status")
	ErrInvalidSVG = errors.New("invalid SVG content")
)

// DefaultPreload lists the hero assets loaded at startup.
var DefaultPreload = []string{
	"composed-wrapper-landscape.svg",
	"composed-wrapper-portrait.svg",
	"svg_components/background_landscape.svg",
	"svg_components/background_portrait.svg",
	"svg_components/background.svg",
	"svg_components/Body.svg",
	"svg_components/Heading.svg",
	"svg_components/logo.svg",
	"svg_components/Rectangle 32.svg",
}

// DefaultLoadTimeSamples is how many load samples survive a truncation.
const DefaultLoadTimeSamples = 100

type Options struct {
	Version       string
	Capacity      int
	Policy        Policy
	ImageCapacity int
	// RasterScale multiplies intrinsic SVG size when rasterising.
	RasterScale float64
	Retry       RetryPolicy
	// Registerer receives the Prometheus collectors. Nil skips registration.
	Registerer prometheus.Registerer
}

// DefaultOptions mirrors the production defaults.
func DefaultOptions() Options {
	return Options{
		Version:       "1.0.0",
		Capacity:      50,
		Policy:        PolicyFIFO,
		ImageCapacity: 64,
		RasterScale:   2,
		Retry:         DefaultRetryPolicy,
	}
}

// Cache is safe for concurrent use. Build one per application with New.
type Cache struct {
	opts    Options
	name    string
	fetcher Fetcher
	log     *slog.Logger

	persistMu  sync.RWMutex
	persistent PersistentTier

	memory MemoryTier
	images *ggcache.ShardedCache[string, *gg.ImageBuf]

	ratioMu sync.RWMutex
	ratios  map[string]float64

	flight singleflight.Group

	metricsMu sync.Mutex
	hits      int64
	misses    int64
	errors    int64
	loadTimes []LoadTime
	prom      *collectors
}

// New builds a cache. A nil persistent tier means memory only.
func New(opts Options, fetcher Fetcher, persistent PersistentTier, log *slog.Logger) (*Cache, error) {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy
	}
	if persistent == nil {
		persistent = NoPersistence{}
	}

	memory, err := NewMemoryTier(opts.Policy, opts.Capacity)
	if err != nil {
		return nil, err
	}

	perShard := (opts.ImageCapacity + ggcache.DefaultShardCount - 1) / ggcache.DefaultShardCount
	if perShard < 1 {
		perShard = 1
	}

	c := &Cache{
		opts:       opts,
		name:       CacheName(opts.Version),
		fetcher:    fetcher,
		log:        log.With(logger.Scope("assetcache")),
		persistent: persistent,
		memory:     memory,
		images:     ggcache.NewSharded[string, *gg.ImageBuf](perShard, ggcache.StringHasher),
		ratios:     make(map[string]float64),
	}
	c.prom = newCollectors(opts.Registerer, func() (int, int) {
		return c.memory.Len(), c.images.Len()
	})
	return c, nil
}

// Name is the versioned namespace of persisted entries.
func (c *Cache) Name() string { return c.name }

// Init removes persisted entries from other cache versions. If the
// persistent tier is unusable the cache carries on memory-only.
func (c *Cache) Init(ctx context.Context) {
	purged, err := c.persistentTier().PurgeOtherVersions(ctx, c.name)
	if err != nil {
		c.log.Error("persistent tier unavailable, continuing memory-only",
			slog.String("cache", c.name),
			logger.Error(err),
		)
		c.persistMu.Lock()
		c.persistent = NoPersistence{}
		c.persistMu.Unlock()
		return
	}
	if purged > 0 {
		c.log.Info("purged stale cache versions", slog.Int("entries", purged))
	}
}

func (c *Cache) persistentTier() PersistentTier {
	c.persistMu.RLock()
	defer c.persistMu.RUnlock()
	return c.persistent
}

// Get returns the optimised SVG text for url, or false when it cannot be
// loaded. Concurrent calls for the same url share one load.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, bool) {
	if v, ok := c.memory.Get(url); ok {
		c.recordHit()
		return v, true
	}

	ch := c.flight.DoChan("svg:"+url, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), url)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, false
		}
		return r.Val.([]byte), true
	case <-ctx.Done():
		return nil, false
	}
}

func (c *Cache) load(ctx context.Context, url string) ([]byte, error) {
	ctx, span := tracing.Start(ctx, "assetcache.load", attribute.String("asset.url", url))
	defer span.End()

	start := time.Now()
	persistent := c.persistentTier()

	data, ok, err := persistent.Get(ctx, c.name, url)
	if err != nil {
		c.log.Warn("persistent tier read failed", slog.String("url", url), logger.Error(err))
	} else if ok {
		c.memory.Set(url, data)
		c.recordHit()
		span.SetAttributes(attribute.String("asset.tier", "persistent"))
		return data, nil
	}

	c.recordMiss()
	body, err := c.fetchWithRetry(ctx, url, true)
	if err != nil {
		c.recordError()
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		c.log.Warn("asset unavailable", slog.String("url", url), logger.Error(err))
		return nil, err
	}

	optimized := OptimizeSVG(body)
	if err := persistent.Put(ctx, c.name, url, optimized, "image/svg+xml"); err != nil {
		c.log.Warn("persistent tier write failed", slog.String("url", url), logger.Error(err))
	}
	c.memory.Set(url, optimized)

	elapsed := time.Since(start)
	c.recordLoad(url, elapsed)
	span.SetAttributes(attribute.String("asset.tier", "network"))
	c.log.Debug("asset fetched", slog.String("url", url), slog.Duration("duration", elapsed))
	return optimized, nil
}

func (c *Cache) fetchWithRetry(ctx context.Context, url string, svg bool) ([]byte, error) {
	return Do(ctx, c.opts.Retry, func(ctx context.Context) ([]byte, error) {
		resp, err := c.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			err := fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
			if clientError(resp.StatusCode) {
				return nil, Permanent(err)
			}
			return nil, err
		}
		if svg && !IsValidSVG(resp.Body) {
			return nil, ErrInvalidSVG
		}
		return resp.Body, nil
	}, func(attempt int, err error, wait time.Duration) {
		c.log.Debug("retrying asset",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			logger.Error(err),
		)
	})
}

// clientError reports a 4xx that another attempt cannot fix.
func clientError(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

// Image returns the decoded image for url. SVGs go through Get; raster
// formats are fetched directly under the same retry policy. As with Get, the
// shared load outlives a cancelled caller.
func (c *Cache) Image(ctx context.Context, url string) (*gg.ImageBuf, bool) {
	if img, ok := c.images.Get(url); ok {
		return img, true
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan("image:"+url, func() (any, error) {
		isSVG := IsSVGURL(url)

		var data []byte
		if isSVG {
			d, ok := c.Get(loadCtx, url)
			if !ok {
				return nil, ErrInvalidSVG
			}
			data = d
		} else {
			d, err := c.fetchWithRetry(loadCtx, url, false)
			if err != nil {
				c.recordError()
				return nil, err
			}
			data = d
		}

		img, ratio, err := Decode(data, isSVG, c.opts.RasterScale)
		if err != nil {
			return nil, err
		}
		buf := gg.ImageBufFromImage(img)
		c.images.Set(url, buf)
		c.setRatio(url, ratio)
		return buf, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			c.log.Debug("image unavailable", slog.String("url", url), logger.Error(r.Err))
			return nil, false
		}
		return r.Val.(*gg.ImageBuf), true
	case <-ctx.Done():
		return nil, false
	}
}

func (c *Cache) setRatio(url string, ratio float64) {
	c.ratioMu.Lock()
	defer c.ratioMu.Unlock()
	if _, ok := c.ratios[url]; !ok {
		c.ratios[url] = ratio
	}
}

// Ratio returns the cached intrinsic width/height ratio of url, or fallback
// when the image has not been decoded.
func (c *Cache) Ratio(url string, fallback float64) float64 {
	c.ratioMu.RLock()
	defer c.ratioMu.RUnlock()
	if r, ok := c.ratios[url]; ok && r > 0 {
		return r
	}
	return fallback
}

// PreloadResult reports one URL of a Preload call.
type PreloadResult struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
}

// Preload loads urls in parallel. Failures are reported, not returned.
func (c *Cache) Preload(ctx context.Context, urls []string) []PreloadResult {
	ctx, span := tracing.Start(ctx, "assetcache.preload", attribute.Int("asset.count", len(urls)))
	defer span.End()

	start := time.Now()
	results := make([]PreloadResult, len(urls))

	var g errgroup.Group
	g.SetLimit(8)
	for i, url := range urls {
		g.Go(func() error {
			_, ok := c.Get(ctx, url)
			results[i] = PreloadResult{URL: url, Success: ok}
			return nil
		})
	}
	_ = g.Wait()

	loaded := 0
	for _, r := range results {
		if r.Success {
			loaded++
		}
	}
	c.log.Info("assets preloaded",
		slog.Int("loaded", loaded),
		slog.Int("total", len(urls)),
		slog.Duration("duration", time.Since(start)),
	)
	return results
}

// PrewarmOrientation reloads memory-tier entries whose URL mentions
// orientation ("portrait" or "landscape"). It returns how many were touched.
func (c *Cache) PrewarmOrientation(ctx context.Context, orientation string) int {
	if orientation == "" {
		return 0
	}
	var urls []string
	for _, k := range c.memory.Keys() {
		if strings.Contains(k, orientation) {
			urls = append(urls, k)
		}
	}
	c.Preload(ctx, urls)
	return len(urls)
}

func (c *Cache) recordHit() {
	c.metricsMu.Lock()
	c.hits++
	c.metricsMu.Unlock()
	c.prom.hits.Inc()
}

func (c *Cache) recordMiss() {
	c.metricsMu.Lock()
	c.misses++
	c.metricsMu.Unlock()
	c.prom.misses.Inc()
}

func (c *Cache) recordError() {
	c.metricsMu.Lock()
	c.errors++
	c.metricsMu.Unlock()
	c.prom.errors.Inc()
}

func (c *Cache) recordLoad(url string, d time.Duration) {
	c.metricsMu.Lock()
	c.loadTimes = append(c.loadTimes, LoadTime{URL: url, Duration: d})
	c.metricsMu.Unlock()
	c.prom.loadTime.Observe(d.Seconds())
}

// Metrics returns a snapshot of the counters.
func (c *Cache) Metrics() Metrics {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()

	samples := append([]LoadTime(nil), c.loadTimes...)
	return Metrics{
		Hits:            c.hits,
		Misses:          c.misses,
		Errors:          c.errors,
		CacheSize:       c.memory.Len(),
		ImageCacheSize:  c.images.Len(),
		LoadTimes:       samples,
		AverageLoadTime: averageLoadTime(samples),
	}
}

// TruncateLoadTimes keeps only the newest n load samples.
func (c *Cache) TruncateLoadTimes(n int) {
	if n < 0 {
		n = 0
	}
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()
	if len(c.loadTimes) > n {
		c.loadTimes = append([]LoadTime(nil), c.loadTimes[len(c.loadTimes)-n:]...)
	}
}

// Clear drops every in-memory entry, decoded image and ratio and resets
// the counters. Persisted entries are kept.
func (c *Cache) Clear() {
	c.memory.Clear()
	c.images.Clear()

	c.ratioMu.Lock()
	c.ratios = make(map[string]float64)
	c.ratioMu.Unlock()

	c.metricsMu.Lock()
	c.hits, c.misses, c.errors = 0, 0, 0
	c.loadTimes = nil
	c.metricsMu.Unlock()

	c.log.Info("asset caches cleared")
}
