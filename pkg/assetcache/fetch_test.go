package assetcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSFetcher(t *testing.T) {
	f := NewFSFetcher(fstest.MapFS{
		"svg_components/logo.svg": {Data: []byte(logoSVG)},
	})
	ctx := context.Background()

	resp, err := f.Fetch(ctx, "/svg_components/logo.svg")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "image/svg+xml", resp.ContentType)

	resp, err = f.Fetch(ctx, "svg_components/../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/static/svg_components/logo.svg":
			w.Header().Set("Content-Type", "image/svg+xml")
			_, _ = w.Write([]byte(logoSVG))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(srv.URL+"/static/", time.Second)
	ctx := context.Background()

	resp, err := f.Fetch(ctx, "svg_components/logo.svg")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.True(t, IsValidSVG(resp.Body))

	resp, err = f.Fetch(ctx, "svg_components/missing.svg")
	require.NoError(t, err)
	assert.False(t, resp.OK())
}

func TestOptimizeSVG(t *testing.T) {
	in := "<svg>\n  <!-- a\n multi-line comment -->\n  <g>\n    <path d=\"M0 0\"/>\n  </g>\n</svg>"

	assert.Equal(t, `<svg><g><path d="M0 0"/></g></svg>`, string(OptimizeSVG([]byte(in))))
}

func TestIsValidSVG(t *testing.T) {
	assert.True(t, IsValidSVG([]byte(`<svg viewBox="0 0 1 1"></svg>`)))
	assert.False(t, IsValidSVG([]byte(`<svg viewBox="0 0 1 1">`)))
	assert.False(t, IsValidSVG([]byte(`</svg>`)))
	assert.False(t, IsValidSVG(nil))
}

func TestIsSVGURL(t *testing.T) {
	assert.True(t, IsSVGURL("svg_components/Rectangle 32.svg"))
	assert.True(t, IsSVGURL("/a/LOGO.SVG?v=2"))
	assert.False(t, IsSVGURL("photo.png"))
}
