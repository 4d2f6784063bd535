package components

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// ThemeToggle posts to /theme. It renders nothing unless dark mode is enabled.
func ThemeToggle(theme string, enabled bool) g.Node {
	if !enabled {
		return nil
	}
	label := "Switch to Dark"
	if theme == ThemeDark {
		label = "Switch to Light"
	}
	return g.El("form",
		Class("theme-toggle"),
		Method("post"),
		Action("/theme"),
		Button(
			Type("submit"),
			Class("btn btn--outline btn--sm"),
			g.Attr("aria-pressed", boolAttr(theme == ThemeDark)),
			g.Attr("data-theme-toggle", ""),
			g.Text(label),
		),
	)
}
