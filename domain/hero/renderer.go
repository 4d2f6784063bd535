// Package hero draws the landing page hero (logo, heading, body and the
// orientation background) on the server and streams it to the page.
package hero

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/seekkrr/landingpage/pkg/geometry"
	"github.com/seekkrr/landingpage/pkg/logger"
	"github.com/seekkrr/landingpage/pkg/tracing"
)

// Hero asset paths, relative to the asset origin.
const (
	LogoURL    = "svg_components/logo.svg"
	HeadingURL = "svg_components/Heading.svg"
	BodyURL    = "svg_components/Body.svg"
)

// Images is the part of the asset cache the renderer reads.
type Images interface {
	Image(ctx context.Context, url string) (*gg.ImageBuf, bool)
	Ratio(url string, fallback float64) float64
}

type Options struct {
	// MaxDPR caps the device pixel ratio. Default 2.
	MaxDPR float64
	// MaxViewport caps each viewport side in CSS pixels. Default 4096.
	MaxViewport int
	// MaxPixels caps the device pixels of one surface. Larger requests are
	// drawn at a lower pixel ratio. Default 3840x2160.
	MaxPixels int
	// MaxConcurrent bounds the surfaces being drawn at once. Default 4.
	MaxConcurrent int
	// DistortionThreshold is how much non-uniform stretch the background
	// tolerates before it switches to contain. Default 0.1.
	DistortionThreshold float64
}

func (o Options) withDefaults() Options {
	if !(o.MaxDPR > 0) {
		o.MaxDPR = 2
	}
	if o.MaxViewport <= 0 {
		o.MaxViewport = 4096
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = 3840 * 2160
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if !(o.DistortionThreshold > 0) {
		o.DistortionThreshold = 0.1
	}
	return o
}

// Renderer turns a viewport into a hero image. It is safe for concurrent use.
type Renderer struct {
	images Images
	store  *geometry.Store
	opts   Options
	sem    *semaphore.Weighted
	log    *slog.Logger
}

func NewRenderer(images Images, store *geometry.Store, opts Options, log *slog.Logger) *Renderer {
	opts = opts.withDefaults()
	return &Renderer{
		images: images,
		store:  store,
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		log:    log.With(logger.Scope("hero")),
	}
}

// Frame is one rendered hero.
type Frame struct {
	Layout   geometry.Layout `json:"layout"`
	HideBody bool            `json:"hide_body"`
	DPR      float64         `json:"dpr"`
	Missing  []string        `json:"missing,omitempty"`
	PNG      []byte          `json:"-"`
}

// ClampDPR maps a reported device pixel ratio into (0, MaxDPR]. Missing or
// invalid values count as 1.
func (r *Renderer) ClampDPR(dpr float64) float64 {
	if !(dpr > 0) || math.IsInf(dpr, 0) {
		return 1
	}
	return math.Min(dpr, r.opts.MaxDPR)
}

// ClampViewport floors each side at 1 and caps it at MaxViewport.
func (r *Renderer) ClampViewport(vp geometry.Viewport) geometry.Viewport {
	vp = vp.Normalize()
	return geometry.Viewport{
		Width:  min(vp.Width, r.opts.MaxViewport),
		Height: min(vp.Height, r.opts.MaxViewport),
	}
}

// SurfaceDPR is the pixel ratio a surface for vp is actually drawn at: dpr
// clamped, then lowered until the surface fits MaxPixels. For very large
// viewports it drops below 1 and the page scales the bitmap up.
func (r *Renderer) SurfaceDPR(vp geometry.Viewport, dpr float64) float64 {
	dpr = r.ClampDPR(dpr)
	area := float64(vp.Width) * float64(vp.Height)
	if limit := math.Sqrt(float64(r.opts.MaxPixels) / area); dpr > limit {
		dpr = limit
	}
	return dpr
}

// SurfaceSize is the device pixel size of the surface for vp at dpr.
func (r *Renderer) SurfaceSize(vp geometry.Viewport, dpr float64) (int, int) {
	vp = r.ClampViewport(vp)
	dpr = r.SurfaceDPR(vp, dpr)
	return surfaceSize(vp.Width, dpr), surfaceSize(vp.Height, dpr)
}

// acquire waits for a drawing slot.
func (r *Renderer) acquire(ctx context.Context) (func(), error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for render slot: %w", err)
	}
	return func() { r.sem.Release(1) }, nil
}

type assets struct {
	logo, heading, body *gg.ImageBuf
}

func (a assets) missing() []string {
	var out []string
	if a.logo == nil {
		out = append(out, LogoURL)
	}
	if a.heading == nil {
		out = append(out, HeadingURL)
	}
	if a.body == nil {
		out = append(out, BodyURL)
	}
	return out
}

// load fetches the three hero images in parallel. A missing image is nil.
func (r *Renderer) load(ctx context.Context) assets {
	var a assets
	var g errgroup.Group
	for url, dst := range map[string]**gg.ImageBuf{
		LogoURL:    &a.logo,
		HeadingURL: &a.heading,
		BodyURL:    &a.body,
	} {
		g.Go(func() error {
			if img, ok := r.images.Image(ctx, url); ok {
				*dst = img
			}
			return nil
		})
	}
	_ = g.Wait()
	return a
}

func (r *Renderer) ratios() geometry.Ratios {
	return geometry.Ratios{
		Logo:    r.images.Ratio(LogoURL, geometry.LogoRatio),
		Heading: r.images.Ratio(HeadingURL, geometry.HeadingRatio),
		Body:    r.images.Ratio(BodyURL, geometry.BodyRatio),
	}
}

// Layout computes the placement for vp without drawing. Images are loaded so
// their intrinsic ratios are known.
func (r *Renderer) Layout(ctx context.Context, vp geometry.Viewport) geometry.Layout {
	vp = r.ClampViewport(vp)
	r.load(ctx)
	return geometry.ComputeLayout(vp, r.store.Resolve(vp), r.ratios())
}

// Render draws the hero for vp at dpr onto a transparent surface and
// encodes it as PNG. Missing assets are left out. The surface stays within
// MaxPixels and at most MaxConcurrent renders draw at once.
func (r *Renderer) Render(ctx context.Context, vp geometry.Viewport, dpr float64) (*Frame, error) {
	vp = r.ClampViewport(vp)
	dpr = r.SurfaceDPR(vp, dpr)

	ctx, span := tracing.Start(ctx, "hero.render",
		attribute.Int("viewport.width", vp.Width),
		attribute.Int("viewport.height", vp.Height),
		attribute.Float64("dpr", dpr),
	)
	defer span.End()

	a := r.load(ctx)
	layout := geometry.ComputeLayout(vp, r.store.Resolve(vp), r.ratios())

	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	dc := gg.NewContext(surfaceSize(vp.Width, dpr), surfaceSize(vp.Height, dpr))
	defer dc.Close()
	dc.Clear()
	dc.Scale(dpr, dpr)

	if layout.Visibility.Logo {
		drawAt(dc, a.logo, layout.Logo)
	}
	if layout.Visibility.Heading {
		drawAt(dc, a.heading, layout.Heading)
		if layout.Visibility.Body {
			drawAt(dc, a.body, layout.Body)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil, fmt.Errorf("encode hero: %w", err)
	}

	missing := a.missing()
	if len(missing) > 0 {
		r.log.Debug("rendered hero without assets", slog.Any("missing", missing))
	}

	return &Frame{
		Layout:   layout,
		HideBody: layout.HideBody(),
		DPR:      dpr,
		Missing:  missing,
		PNG:      buf.Bytes(),
	}, nil
}

// surfaceSize truncates so a budgeted surface never rounds past MaxPixels.
func surfaceSize(css int, dpr float64) int {
	return max(1, int(float64(css)*dpr+1e-9))
}

func drawAt(dc *gg.Context, img *gg.ImageBuf, rect geometry.Rect) {
	if img == nil {
		return
	}
	rect = rect.Round()
	dc.DrawImageEx(img, gg.DrawImageOptions{
		X:             rect.X,
		Y:             rect.Y,
		DstWidth:      rect.Width,
		DstHeight:     rect.Height,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
		BlendMode:     gg.BlendNormal,
	})
}
