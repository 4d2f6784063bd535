package hero

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/net/websocket"

	"github.com/seekkrr/landingpage/pkg/geometry"
	"github.com/seekkrr/landingpage/pkg/logger"
)

// Handler serves the hero over HTTP and websocket.
type Handler struct {
	renderer *Renderer
	prewarm  Prewarmer
	session  SessionOptions
	log      *slog.Logger
}

func NewHandler(renderer *Renderer, prewarm Prewarmer, session SessionOptions, log *slog.Logger) *Handler {
	return &Handler{
		renderer: renderer,
		prewarm:  prewarm,
		session:  session,
		log:      log.With(logger.Scope("hero.http")),
	}
}

// parseViewport reads w, h and dpr from the query. w and h are required.
func parseViewport(r *http.Request) (geometry.Viewport, float64, error) {
	q := r.URL.Query()
	w, err := strconv.Atoi(q.Get("w"))
	if err != nil || w <= 0 {
		return geometry.Viewport{}, 0, errors.New("w must be a positive integer")
	}
	h, err := strconv.Atoi(q.Get("h"))
	if err != nil || h <= 0 {
		return geometry.Viewport{}, 0, errors.New("h must be a positive integer")
	}
	dpr := 1.0
	if s := q.Get("dpr"); s != "" {
		dpr, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return geometry.Viewport{}, 0, errors.New("dpr must be a number")
		}
	}
	return geometry.Viewport{Width: w, Height: h}, dpr, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// Image handles GET /hero.png
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	vp, dpr, err := parseViewport(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := h.renderer.Render(r.Context(), vp, dpr)
	if err != nil {
		h.log.Error("render hero", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("X-Hero-Hide-Body", strconv.FormatBool(f.HideBody))
	writePNG(w, f.PNG)
}

// Layout handles GET /hero/layout
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	vp, dpr, err := parseViewport(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	layout := h.renderer.Layout(r.Context(), vp)
	writeJSON(w, http.StatusOK, Frame{
		Layout:   layout,
		HideBody: layout.HideBody(),
		DPR:      h.renderer.SurfaceDPR(layout.Viewport, dpr),
	})
}

// Background handles GET /hero/background.png
func (h *Handler) Background(w http.ResponseWriter, r *http.Request) {
	vp, dpr, err := parseViewport(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, info, err := h.renderer.RenderBackground(r.Context(), vp, dpr)
	if err != nil {
		h.log.Error("render background", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("X-Background-Mode", info.Mode)
	w.Header().Set("X-Background-Fallback", strconv.FormatBool(info.Fallback))
	writePNG(w, b)
}

// Socket returns the /ws/hero handler.
func (h *Handler) Socket() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		defer func() {
			_ = conn.Close()
		}()
		ctx := conn.Request().Context()
		s := newSession(h.renderer, h.prewarm, &wsPeer{encoder: json.NewEncoder(conn)}, h.session, h.log)
		h.log.Debug("hero session opened", slog.String("session_id", s.ID))
		s.serve(ctx, conn)
		h.log.Debug("hero session closed", slog.String("session_id", s.ID))
	})
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}
