package components

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type PageConfig struct {
	Title       string
	Description string
	Theme       string
	OGImage     string
}

func Layout(config PageConfig, content ...g.Node) g.Node {
	if config.Theme != ThemeDark {
		config.Theme = ThemeLight
	}

	if config.Title == "" {
		config.Title = "SeekKrr"
	}

	if config.Description == "" {
		config.Description = "SeekKrr is coming soon. Join the waitlist to be the first to know."
	}

	if config.OGImage == "" {
		config.OGImage = "/static/svg_components/logo.svg"
	}

	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		HTML(
			Lang("en"),
			g.Attr("data-color-scheme", config.Theme),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				TitleEl(g.Text(config.Title)),
				Meta(Name("description"), Content(config.Description)),

				Meta(g.Attr("property", "og:title"), Content(config.Title)),
				Meta(g.Attr("property", "og:description"), Content(config.Description)),
				Meta(g.Attr("property", "og:type"), Content("website")),
				Meta(g.Attr("property", "og:image"), Content(config.OGImage)),

				Link(Rel("icon"), Href("/static/svg_components/logo.svg"), Type("image/svg+xml")),

				Link(Rel("stylesheet"), Href("/static/css/styles.css")),
				Link(Rel("stylesheet"), Href("/geometry.css")),
			),
			Body(
				g.Group(content),

				Script(Type("module"), Src("/static/js/hero.js")),
				Script(Type("module"), Src("/static/js/modal.js")),
				Script(Type("module"), Src("/static/js/theme.js")),
			),
		),
	})
}
