package assetcache

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	svgComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	interTagSpace = regexp.MustCompile(`>\s+<`)
)

// IsValidSVG reports whether content carries both an opening and a closing
// svg tag. It is a sanity check, not a parser.
func IsValidSVG(content []byte) bool {
	return bytes.Contains(content, []byte("<svg")) && bytes.Contains(content, []byte("</svg>"))
}

// OptimizeSVG strips comments and collapses whitespace between tags.
func OptimizeSVG(content []byte) []byte {
	out := svgComment.ReplaceAll(content, nil)
	return interTagSpace.ReplaceAll(out, []byte("><"))
}

// IsSVGURL reports whether url names an SVG document.
func IsSVGURL(url string) bool {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return strings.HasSuffix(strings.ToLower(url), ".svg")
}
