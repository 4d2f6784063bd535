package components

import (
	"strconv"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// Hero is the drawn hero section. The canvas is painted from /ws/hero; the
// text below it is the fallback shown to crawlers, screen readers and
// visitors without scripts.
func Hero(hideBody bool) g.Node {
	return Div(
		Class("main-container"),
		ID("appRoot"),

		Div(
			Class("background-wrapper"),
			ID("hero-background"),
			g.Attr("aria-hidden", "true"),
		),

		Div(
			Class("canvas-container"),
			g.Attr("data-hide-body", strconv.FormatBool(hideBody)),
			g.El("canvas",
				ID("hero-canvas"),
				Class("hero-canvas"),
				g.Attr("role", "img"),
				g.Attr("aria-label", "SeekKrr"),
			),
			g.El("noscript",
				Img(Class("hero-canvas"), Src("/hero.png?w=1280&h=800"), Alt("SeekKrr")),
			),
			Div(
				Class("hero-fallback"),
				H1(Class("hero-heading"), g.Text("SeekKrr")),
				P(Class("hero-body"), g.Text("Discover what is around you. Something new is on the way.")),
			),
		),
	)
}
