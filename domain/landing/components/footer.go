package components

import (
	"fmt"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func PageFooter(year int, themeToggle g.Node) g.Node {
	return Footer(
		Class("page-footer"),
		P(g.Text(fmt.Sprintf("© %d SeekKrr. All rights reserved.", year))),
		themeToggle,
	)
}
