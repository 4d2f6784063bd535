package hero

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/gogpu/gg"
	"go.opentelemetry.io/otel/attribute"

	"github.com/seekkrr/landingpage/pkg/geometry"
	"github.com/seekkrr/landingpage/pkg/tracing"
)

// Background fit modes.
const (
	FitStretch = "stretch"
	FitContain = "contain"
)

// WrapperURL is the composed background for an orientation.
func WrapperURL(orientation string) string {
	return "composed-wrapper-" + orientation + ".svg"
}

// FitMode picks how a background of the given aspect ratio covers a
// cw x ch container. Stretching is allowed while the horizontal and vertical
// scale factors differ by at most threshold.
func FitMode(cw, ch int, ratio, threshold float64) string {
	if cw <= 0 || ch <= 0 || !(ratio > 0) {
		return FitStretch
	}
	imgW, imgH := ratio, 1.0
	scaleX := float64(cw) / imgW
	scaleY := float64(ch) / imgH
	if math.Abs(scaleX/scaleY-1) <= threshold {
		return FitStretch
	}
	return FitContain
}

// BackgroundInfo describes a rendered background.
type BackgroundInfo struct {
	URL      string `json:"url"`
	Mode     string `json:"mode"`
	Fallback bool   `json:"fallback"`
}

// RenderBackground draws the orientation wrapper for vp on white. Without
// the wrapper image a vertical gradient is drawn instead.
func (r *Renderer) RenderBackground(ctx context.Context, vp geometry.Viewport, dpr float64) ([]byte, BackgroundInfo, error) {
	vp = r.ClampViewport(vp)
	dpr = r.SurfaceDPR(vp, dpr)
	info := BackgroundInfo{URL: WrapperURL(vp.Orientation())}

	ctx, span := tracing.Start(ctx, "hero.background",
		attribute.String("background.url", info.URL),
	)
	defer span.End()

	img, ok := r.images.Image(ctx, info.URL)

	release, err := r.acquire(ctx)
	if err != nil {
		return nil, info, err
	}
	defer release()

	dc := gg.NewContext(surfaceSize(vp.Width, dpr), surfaceSize(vp.Height, dpr))
	defer dc.Close()
	dc.ClearWithColor(gg.White)
	dc.Scale(dpr, dpr)

	w, h := float64(vp.Width), float64(vp.Height)
	switch {
	case !ok:
		info.Fallback = true
		info.Mode = FitStretch
		grad := gg.NewLinearGradientBrush(0, 0, 0, h).
			AddColorStop(0, gg.Hex("#eef4ff")).
			AddColorStop(1, gg.Hex("#ffffff"))
		dc.SetFillBrush(grad)
		dc.DrawRectangle(0, 0, w, h)
		if err := dc.Fill(); err != nil {
			return nil, info, fmt.Errorf("fill background: %w", err)
		}
	default:
		ratio := float64(img.Width()) / float64(max(1, img.Height()))
		info.Mode = FitMode(vp.Width, vp.Height, ratio, r.opts.DistortionThreshold)
		dst := geometry.Rect{Width: w, Height: h}
		if info.Mode == FitContain {
			dst = containRect(w, h, ratio)
		}
		drawAt(dc, img, dst)
	}
	span.SetAttributes(attribute.String("background.mode", info.Mode))

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, info, fmt.Errorf("encode background: %w", err)
	}
	return buf.Bytes(), info, nil
}

// containRect centers the largest rect of the given ratio that fits w x h.
func containRect(w, h, ratio float64) geometry.Rect {
	dw, dh := w, w/ratio
	if dh > h {
		dw, dh = h*ratio, h
	}
	return geometry.Rect{X: (w - dw) / 2, Y: (h - dh) / 2, Width: dw, Height: dh}
}
