package hero

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/seekkrr/landingpage/internal/testutil"
	"github.com/seekkrr/landingpage/pkg/frame"
	"github.com/seekkrr/landingpage/pkg/geometry"
)

// fakeImages serves solid-colour images.
type fakeImages struct {
	mu       sync.Mutex
	images   map[string]*gg.ImageBuf
	prewarms []string
}

func solid(w, h int, c color.RGBA) *gg.ImageBuf {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return gg.ImageBufFromImage(img)
}

func heroImages() *fakeImages {
	red := color.RGBA{R: 255, A: 255}
	return &fakeImages{images: map[string]*gg.ImageBuf{
		LogoURL:    solid(42, 10, red),
		HeadingURL: solid(82, 12, red),
		BodyURL:    solid(56, 8, red),
	}}
}

func (f *fakeImages) Image(_ context.Context, url string) (*gg.ImageBuf, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[url]
	return img, ok
}

func (f *fakeImages) Ratio(url string, fallback float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if img, ok := f.images[url]; ok {
		return float64(img.Width()) / float64(img.Height())
	}
	return fallback
}

func (f *fakeImages) PrewarmOrientation(_ context.Context, orientation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prewarms = append(f.prewarms, orientation)
	return 0
}

func newTestRenderer(t *testing.T, images Images) *Renderer {
	t.Helper()
	store, err := geometry.Default()
	require.NoError(t, err)
	return NewRenderer(images, store, Options{}, testutil.DiscardLogger())
}

func decodePNG(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img
}

func alphaAt(img image.Image, x, y float64) uint32 {
	_, _, _, a := img.At(int(x), int(y)).RGBA()
	return a
}

func TestClampDPR(t *testing.T) {
	r := newTestRenderer(t, &fakeImages{})
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{-2, 1},
		{math.NaN(), 1},
		{math.Inf(1), 1},
		{1.5, 1.5},
		{3, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.ClampDPR(tt.in), "dpr %v", tt.in)
	}
}

func TestClampViewport(t *testing.T) {
	r := newTestRenderer(t, &fakeImages{})
	assert.Equal(t, geometry.Viewport{Width: 1, Height: 1}, r.ClampViewport(geometry.Viewport{}))
	assert.Equal(t, geometry.Viewport{Width: 4096, Height: 800}, r.ClampViewport(geometry.Viewport{Width: 10000, Height: 800}))
}

func TestSurfaceStaysWithinPixelBudget(t *testing.T) {
	r := newTestRenderer(t, heroImages())

	w, h := r.SurfaceSize(geometry.Viewport{Width: 1280, Height: 800}, 2)
	assert.Equal(t, 2560, w)
	assert.Equal(t, 1600, h)

	huge := geometry.Viewport{Width: 100000, Height: 100000}
	w, h = r.SurfaceSize(huge, 9)
	assert.LessOrEqual(t, w*h, 3840*2160)
	assert.Equal(t, 2880, w)
	assert.Equal(t, 2880, h)

	store, err := geometry.Default()
	require.NoError(t, err)
	small := NewRenderer(heroImages(), store, Options{MaxPixels: 1_000_000}, testutil.DiscardLogger())

	f, err := small.Render(context.Background(), huge, 9)
	require.NoError(t, err)
	b := decodePNG(t, f.PNG).Bounds()
	assert.LessOrEqual(t, b.Dx()*b.Dy(), 1_000_000)
	assert.Equal(t, 1000, b.Dx())
	assert.InDelta(t, 1000.0/4096.0, f.DPR, 1e-9)
	assert.Equal(t, 4096, f.Layout.Viewport.Width)

	bg, _, err := small.RenderBackground(context.Background(), huge, 9)
	require.NoError(t, err)
	b = decodePNG(t, bg).Bounds()
	assert.LessOrEqual(t, b.Dx()*b.Dy(), 1_000_000)
}

func TestRender_WaitsForDrawingSlot(t *testing.T) {
	store, err := geometry.Default()
	require.NoError(t, err)
	r := NewRenderer(heroImages(), store, Options{MaxConcurrent: 2}, testutil.DiscardLogger())

	require.NoError(t, r.sem.Acquire(context.Background(), 2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Render(ctx, geometry.Viewport{Width: 320, Height: 640}, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_, _, err = r.RenderBackground(ctx, geometry.Viewport{Width: 320, Height: 640}, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	r.sem.Release(1)
	f, err := r.Render(context.Background(), geometry.Viewport{Width: 320, Height: 640}, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, f.PNG)
	r.sem.Release(1)
}

func TestFitMode(t *testing.T) {
	wide := 16.0 / 9.0
	tests := []struct {
		name   string
		cw, ch int
		ratio  float64
		want   string
	}{
		{"exact", 1600, 900, wide, FitStretch},
		{"within threshold", 1650, 900, wide, FitStretch},
		{"too narrow", 1000, 900, wide, FitContain},
		{"portrait art on landscape", 1600, 900, 9.0 / 16.0, FitContain},
		{"unknown ratio", 1600, 900, 0, FitStretch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FitMode(tt.cw, tt.ch, tt.ratio, 0.1))
		})
	}
}

func TestContainRect(t *testing.T) {
	r := containRect(1600, 900, 9.0/16.0)
	assert.InDelta(t, 506.25, r.Width, 1e-9)
	assert.InDelta(t, 900, r.Height, 1e-9)
	assert.InDelta(t, (1600-506.25)/2, r.X, 1e-9)
	assert.Zero(t, r.Y)
}

func TestWrapperURL(t *testing.T) {
	assert.Equal(t, "composed-wrapper-portrait.svg", WrapperURL("portrait"))
}

func TestRender_DrawsVisibleElements(t *testing.T) {
	r := newTestRenderer(t, heroImages())

	f, err := r.Render(context.Background(), geometry.Viewport{Width: 1280, Height: 800}, 2)
	require.NoError(t, err)
	assert.Empty(t, f.Missing)
	assert.Equal(t, 2.0, f.DPR)
	assert.False(t, f.HideBody)

	img := decodePNG(t, f.PNG)
	assert.Equal(t, image.Rect(0, 0, 2560, 1600), img.Bounds())

	for name, rect := range map[string]geometry.Rect{
		"logo":    f.Layout.Logo,
		"heading": f.Layout.Heading,
		"body":    f.Layout.Body,
	} {
		cx := (rect.X + rect.Width/2) * f.DPR
		cy := (rect.Y + rect.Height/2) * f.DPR
		assert.NotZero(t, alphaAt(img, cx, cy), name)
	}
	assert.Zero(t, alphaAt(img, 2559, 1599), "background stays transparent")
}

func TestRender_HidesBodyOnShortViewport(t *testing.T) {
	r := newTestRenderer(t, heroImages())

	f, err := r.Render(context.Background(), geometry.Viewport{Width: 1024, Height: 360}, 1)
	require.NoError(t, err)
	assert.True(t, f.HideBody)
	assert.True(t, f.Layout.Visibility.Heading)

	img := decodePNG(t, f.PNG)
	body := f.Layout.Body
	if body.Y+body.Height/2 < 360 {
		assert.Zero(t, alphaAt(img, body.X+body.Width/2, body.Y+body.Height/2))
	}
}

func TestRender_MissingAssetsAreSkipped(t *testing.T) {
	r := newTestRenderer(t, &fakeImages{})

	f, err := r.Render(context.Background(), geometry.Viewport{Width: 800, Height: 600}, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{LogoURL, HeadingURL, BodyURL}, f.Missing)
	assert.Equal(t, 1.0, f.DPR)

	img := decodePNG(t, f.PNG)
	logo := f.Layout.Logo
	assert.Zero(t, alphaAt(img, logo.X+logo.Width/2, logo.Y+logo.Height/2))
}

func TestRenderBackground(t *testing.T) {
	t.Run("gradient fallback", func(t *testing.T) {
		r := newTestRenderer(t, &fakeImages{})
		b, info, err := r.RenderBackground(context.Background(), geometry.Viewport{Width: 400, Height: 300}, 1)
		require.NoError(t, err)
		assert.True(t, info.Fallback)
		assert.Equal(t, "composed-wrapper-landscape.svg", info.URL)

		img := decodePNG(t, b)
		top, _, _, _ := img.At(200, 0).RGBA()
		bottom, _, _, _ := img.At(200, 299).RGBA()
		assert.Less(t, top, bottom, "gradient runs light blue to white")
	})

	t.Run("contain leaves white bars", func(t *testing.T) {
		blue := color.RGBA{B: 255, A: 255}
		r := newTestRenderer(t, &fakeImages{images: map[string]*gg.ImageBuf{
			WrapperURL("landscape"): solid(9, 16, blue),
		}})
		b, info, err := r.RenderBackground(context.Background(), geometry.Viewport{Width: 1600, Height: 900}, 1)
		require.NoError(t, err)
		assert.False(t, info.Fallback)
		assert.Equal(t, FitContain, info.Mode)

		img := decodePNG(t, b)
		r8, g8, b8, _ := img.At(5, 450).RGBA()
		assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r8, g8, b8})
		r8, _, b8, _ = img.At(800, 450).RGBA()
		assert.Less(t, r8, uint32(0x1000))
		assert.Greater(t, b8, uint32(0xf000))
	})

	t.Run("stretch", func(t *testing.T) {
		r := newTestRenderer(t, &fakeImages{images: map[string]*gg.ImageBuf{
			WrapperURL("portrait"): solid(9, 16, color.RGBA{G: 255, A: 255}),
		}})
		_, info, err := r.RenderBackground(context.Background(), geometry.Viewport{Width: 900, Height: 1600}, 1)
		require.NoError(t, err)
		assert.Equal(t, FitStretch, info.Mode)
	})
}

func TestHandler_HTTP(t *testing.T) {
	images := heroImages()
	h := NewHandler(newTestRenderer(t, images), images, SessionOptions{Source: frame.NewManualSource()}, testutil.DiscardLogger())
	r := chi.NewRouter()
	RegisterRoutes(r, h)

	do := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	for _, target := range []string{"/hero.png", "/hero.png?w=0&h=10", "/hero/layout?w=10&h=abc", "/hero/background.png?w=10&h=10&dpr=x"} {
		assert.Equal(t, http.StatusBadRequest, do(target).Code, target)
	}

	rec := do("/hero.png?w=640&h=480&dpr=1.5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "false", rec.Header().Get("X-Hero-Hide-Body"))
	assert.Equal(t, image.Rect(0, 0, 960, 720), decodePNG(t, rec.Body.Bytes()).Bounds())

	rec = do("/hero/layout?w=390&h=844&dpr=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var f Frame
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, 2.0, f.DPR)
	assert.Equal(t, "portrait", f.Layout.Viewport.Orientation())

	rec = do("/hero/background.png?w=390&h=844")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Background-Fallback"))
}

// bufferPeer collects frames written by a session.
type bufferPeer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *bufferPeer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufferPeer) frames(t *testing.T) []wsFrame {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []wsFrame
	dec := json.NewDecoder(bytes.NewReader(b.buf.Bytes()))
	for dec.More() {
		var f wsFrame
		require.NoError(t, dec.Decode(&f))
		out = append(out, f)
	}
	return out
}

func TestSession_DropsStaleFrames(t *testing.T) {
	out := &bufferPeer{}
	s := newSession(newTestRenderer(t, heroImages()), nil, &wsPeer{encoder: json.NewEncoder(out)},
		SessionOptions{Source: frame.NewManualSource()}, testutil.DiscardLogger())
	defer s.sched.Close()

	first := s.update("a", ViewportPayload{Width: 800, Height: 600, DPR: 1})
	stale := s.latest
	second := s.update("b", ViewportPayload{Width: 600, Height: 800, DPR: 1})
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)

	s.render(context.Background(), stale)
	assert.Empty(t, out.frames(t))

	s.render(context.Background(), s.latest)
	frames := out.frames(t)
	require.Len(t, frames, 1)
	assert.Equal(t, FrameHero, frames[0].Type)
	assert.Equal(t, "b", frames[0].RequestID)

	var p HeroPayload
	require.NoError(t, json.Unmarshal(frames[0].Payload, &p))
	assert.Equal(t, uint64(2), p.Generation)
	assert.Equal(t, "portrait", p.Orientation)
}

func TestSession_EnqueueKeepsLatest(t *testing.T) {
	s := newSession(newTestRenderer(t, heroImages()), nil, &wsPeer{encoder: json.NewEncoder(&bufferPeer{})},
		SessionOptions{Source: frame.NewManualSource()}, testutil.DiscardLogger())
	defer s.sched.Close()

	s.enqueue(time.Now())
	assert.Len(t, s.pending, 0, "nothing to draw before the first viewport")

	s.update("", ViewportPayload{Width: 100, Height: 100})
	s.enqueue(time.Now())
	s.update("", ViewportPayload{Width: 200, Height: 100})
	s.enqueue(time.Now())
	s.enqueue(time.Now())

	require.Len(t, s.pending, 1)
	job := <-s.pending
	assert.Equal(t, uint64(2), job.gen)
	assert.Equal(t, 200, job.vp.Width)
}

type wsTestClient struct {
	t    *testing.T
	conn *websocket.Conn
	dec  *json.Decoder
}

func dialHero(t *testing.T, h *Handler) *wsTestClient {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/hero"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	return &wsTestClient{t: t, conn: conn, dec: json.NewDecoder(conn)}
}

func (c *wsTestClient) send(typ, requestID string, payload any) {
	b, err := json.Marshal(payload)
	require.NoError(c.t, err)
	require.NoError(c.t, json.NewEncoder(c.conn).Encode(wsFrame{Type: typ, RequestID: requestID, Payload: b}))
}

func (c *wsTestClient) read() wsFrame {
	var f wsFrame
	require.NoError(c.t, c.dec.Decode(&f))
	return f
}

func TestSocket_StreamsFrames(t *testing.T) {
	images := heroImages()
	src := frame.NewTickerSource(200)
	t.Cleanup(src.Stop)

	h := NewHandler(newTestRenderer(t, images), images, SessionOptions{
		Source:           src,
		MinInterval:      time.Millisecond,
		OrientationDelay: time.Millisecond,
	}, testutil.DiscardLogger())
	c := dialHero(t, h)

	ready := c.read()
	require.Equal(t, FrameReady, ready.Type)
	var rp readyPayload
	require.NoError(t, json.Unmarshal(ready.Payload, &rp))
	assert.NotEmpty(t, rp.SessionID)

	c.send(FrameResize, "r1", ViewportPayload{Width: 320, Height: 640, DPR: 2})
	f := c.read()
	require.Equal(t, FrameHero, f.Type, string(f.Payload))

	var hp HeroPayload
	require.NoError(t, json.Unmarshal(f.Payload, &hp))
	assert.Equal(t, uint64(1), hp.Generation)
	assert.Equal(t, 2.0, hp.DPR)
	pngBytes, err := base64.StdEncoding.DecodeString(hp.PNG)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 640, 1280), decodePNG(t, pngBytes).Bounds())

	c.send(FrameOrientation, "o1", ViewportPayload{Width: 640, Height: 320, DPR: 1})
	f = c.read()
	require.Equal(t, FrameHero, f.Type)
	require.NoError(t, json.Unmarshal(f.Payload, &hp))
	assert.Equal(t, "landscape", hp.Orientation)

	images.mu.Lock()
	assert.Equal(t, []string{"landscape"}, images.prewarms)
	images.mu.Unlock()
}

func TestSocket_RejectsBadFrames(t *testing.T) {
	images := heroImages()
	h := NewHandler(newTestRenderer(t, images), images, SessionOptions{Source: frame.NewManualSource()}, testutil.DiscardLogger())
	c := dialHero(t, h)
	require.Equal(t, FrameReady, c.read().Type)

	c.send("chat.join", "x1", map[string]string{})
	f := c.read()
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "x1", f.RequestID)

	c.send(FrameResize, "x2", ViewportPayload{Width: -1, Height: 10})
	f = c.read()
	assert.Equal(t, FrameError, f.Type)

	var e wsError
	require.NoError(t, json.Unmarshal(f.Payload, &e))
	assert.Equal(t, "INVALID_ARGUMENT", e.Code)
}
