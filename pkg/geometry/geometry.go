// Package geometry computes where the hero elements sit for a given viewport.
//
// Everything here is a pure function of the viewport and a Config resolved
// from the variable store, so the server-side renderer and the stylesheet the
// browser receives agree on the same numbers.
package geometry

import "math"

// Fallback intrinsic ratios used until the real asset has been decoded.
const (
	LogoRatio    = 4.2
	HeadingRatio = 820.0 / 120.0
	BodyRatio    = 560.0 / 80.0
)

// Breakpoints.
const (
	HeadingMinHeight   = 300
	BodyMinHeight      = 420
	ShortDesktopWidth  = 768
	ShortDesktopHeight = 576
	CenterBelowWidth   = 600
)

// Viewport is the CSS pixel size of the window.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Normalize floors both sides to at least one pixel.
func (v Viewport) Normalize() Viewport {
	return Viewport{Width: max(1, v.Width), Height: max(1, v.Height)}
}

// Portrait reports whether the viewport is taller than it is wide.
func (v Viewport) Portrait() bool {
	return v.Height > v.Width
}

// Orientation returns "portrait" or "landscape".
func (v Viewport) Orientation() string {
	if v.Portrait() {
		return "portrait"
	}
	return "landscape"
}

// Rect is a placed element in CSS pixels. Values are rounded to whole pixels
// the same way they are drawn.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom is the first row below the element, before rounding.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Visibility says which hero elements are shown.
type Visibility struct {
	Heading bool `json:"heading"`
	Body    bool `json:"body"`
	Logo    bool `json:"logo"`
}

// Ratios are the intrinsic width/height ratios of the three hero assets.
type Ratios struct {
	Logo    float64
	Heading float64
	Body    float64
}

// DefaultRatios returns the fallback ratios.
func DefaultRatios() Ratios {
	return Ratios{Logo: LogoRatio, Heading: HeadingRatio, Body: BodyRatio}
}

func (r Ratios) orDefault() Ratios {
	d := DefaultRatios()
	if !(r.Logo > 0) {
		r.Logo = d.Logo
	}
	if !(r.Heading > 0) {
		r.Heading = d.Heading
	}
	if !(r.Body > 0) {
		r.Body = d.Body
	}
	return r
}

// Layout is the full hero placement for one viewport.
type Layout struct {
	Viewport   Viewport   `json:"viewport"`
	Visibility Visibility `json:"visibility"`
	Logo       Rect       `json:"logo"`
	Heading    Rect       `json:"heading"`
	Body       Rect       `json:"body"`
}

// HideBody mirrors what the page does with the DOM fallback text.
func (l Layout) HideBody() bool {
	return !l.Visibility.Heading || !l.Visibility.Body
}

// CalcResponsiveSize resolves preferredVW percent of viewportW into
// [minVal, maxVal]. A finite availableW then caps the result, never below 1.
// Pass math.Inf(1) or NaN to skip the cap.
func CalcResponsiveSize(minVal, preferredVW, maxVal, viewportW, availableW float64) float64 {
	preferred := viewportW * preferredVW / 100
	size := math.Max(minVal, math.Min(preferred, maxVal))
	if !math.IsInf(availableW, 0) && !math.IsNaN(availableW) {
		size = math.Min(size, availableW)
		size = math.Max(1, size)
	}
	return size
}

// ComputeVisibility applies the height and short-desktop thresholds. The body
// is never visible without the heading.
func ComputeVisibility(width, height int) Visibility {
	heading := height >= HeadingMinHeight
	hiddenByHeight := height < BodyMinHeight
	hiddenByShortDesktop := width > ShortDesktopWidth && height < ShortDesktopHeight
	return Visibility{
		Heading: heading,
		Body:    heading && !hiddenByHeight && !hiddenByShortDesktop,
		Logo:    true,
	}
}

// ComputeLayout places logo, heading and body for vp using cfg. Ratios that
// are zero or negative fall back to the defaults.
func ComputeLayout(vp Viewport, cfg Config, ratios Ratios) Layout {
	vp = vp.Normalize()
	ratios = ratios.orDefault()
	w := float64(vp.Width)

	d := cfg.Dimensions()
	vis := ComputeVisibility(vp.Width, vp.Height)

	logoW := math.Max(d.LogoMin, math.Min(d.LogoMax, d.LogoScale*(w*0.22)))
	logoH := math.Max(1, logoW/ratios.Logo)

	avail := math.Max(1, w-d.HeroLeftMargin-d.HeroRightMargin)

	headingW0 := CalcResponsiveSize(d.HeadingMin, d.HeadingVW, d.HeadingMax, w, avail)
	headingH := math.Max(1, headingW0/ratios.Heading)
	headingW := math.Min(headingW0, avail)

	bodyW0 := CalcResponsiveSize(d.BodyMin, d.BodyVW, d.BodyMax, w, avail)
	bodyH := math.Max(1, bodyW0/ratios.Body)
	bodyW := math.Min(bodyW0, avail)

	logo := Rect{X: (w - logoW) / 2, Y: d.HeroLogoTop, Width: logoW, Height: logoH}

	centerHeading := vp.Width < CenterBelowWidth
	centerBody := vp.Width < CenterBelowWidth && vp.Portrait()

	heading := Rect{
		X:      alignX(centerHeading, w, headingW, d.HeroLeftMargin),
		Y:      math.Max(d.HeroHeadingTop, logo.Bottom()+d.GapAfterLogo),
		Width:  headingW,
		Height: headingH,
	}
	body := Rect{
		X:      alignX(centerBody, w, bodyW, d.HeroLeftMargin),
		Y:      math.Max(d.HeroBodyTop, heading.Bottom()+d.GapAfterHeading),
		Width:  bodyW,
		Height: bodyH,
	}

	return Layout{
		Viewport:   vp,
		Visibility: vis,
		Logo:       logo,
		Heading:    heading,
		Body:       body,
	}
}

func alignX(center bool, viewportW, elemW, leftMargin float64) float64 {
	if center {
		return math.Round((viewportW - elemW) / 2)
	}
	return math.Max(0, math.Min(leftMargin, viewportW-elemW))
}

// Round snaps a rect to whole pixels for drawing.
func (r Rect) Round() Rect {
	return Rect{
		X:      math.Round(r.X),
		Y:      math.Round(r.Y),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}
