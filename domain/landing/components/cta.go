package components

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const (
	CTALabel     = "Show Interest"
	CTASubmitted = "You have joined the waitlist"
)

// CTA opens the waitlist modal. Without scripts it reloads the page with
// ?join=1, which renders the modal open.
func CTA(submitted bool) g.Node {
	label := CTALabel
	if submitted {
		label = CTASubmitted
	}

	return Div(
		Class("overlay-cta"),
		g.El("form",
			Method("get"),
			Action("/"),
			Input(Type("hidden"), Name("join"), Value("1")),
			Button(
				ID("show-interest-cta"),
				Class("cta"),
				Type("submit"),
				g.Attr("aria-label", label),
				g.Attr("data-modal-open", "waitlist-modal"),
				g.If(submitted, Disabled()),
				g.Text(label),
			),
		),
	)
}
