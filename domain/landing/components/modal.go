package components

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// ModalTitleID labels the dialog. The content must carry an element with
// this id.
const ModalTitleID = "modal-title"

// Modal renders an accessible dialog. A closed modal stays in the document
// hidden so scripts can open it without a round trip.
func Modal(id string, open bool, content ...g.Node) g.Node {
	return Div(
		ID(id),
		Class("modal-backdrop"),
		g.Attr("role", "dialog"),
		g.Attr("aria-modal", "true"),
		g.Attr("aria-labelledby", ModalTitleID),
		g.Attr("data-open", boolAttr(open)),
		g.If(!open, g.Attr("hidden")),
		Div(
			Class("modal"),
			g.Attr("role", "document"),
			A(
				Href("/"),
				Class("modal-close"),
				g.Attr("role", "button"),
				g.Attr("aria-label", "Close modal"),
				g.Attr("data-modal-close", ""),
				Img(Src("/static/svg_components/cancel.svg"), Alt(""), g.Attr("aria-hidden", "true")),
			),
			g.Group(content),
		),
	)
}

func boolAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
