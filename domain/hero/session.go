package hero

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/seekkrr/landingpage/pkg/frame"
	"github.com/seekkrr/landingpage/pkg/geometry"
	"github.com/seekkrr/landingpage/pkg/logger"
)

// Frame types on the hero socket.
const (
	FrameResize      = "viewport.resize"
	FrameOrientation = "viewport.orientation"
	FrameReady       = "session.ready"
	FrameHero        = "hero.frame"
	FrameError       = "error"
)

const (
	maxFramePayloadBytes   = 1024
	maxDecodeErrorsPerConn = 3
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ViewportPayload is sent by the page on every resize or orientation change.
type ViewportPayload struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

// HeroPayload carries one rendered frame. PNG is base64.
type HeroPayload struct {
	Generation  uint64          `json:"generation"`
	Orientation string          `json:"orientation"`
	Layout      geometry.Layout `json:"layout"`
	HideBody    bool            `json:"hide_body"`
	DPR         float64         `json:"dpr"`
	PNG         string          `json:"png"`
}

type readyPayload struct {
	SessionID string `json:"session_id"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (p *wsPeer) writeFrame(f wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(f)
}

func writeWSFrame(peer *wsPeer, typ, requestID string, payload any) error {
	return peer.writeFrame(wsFrame{Type: typ, RequestID: requestID, Payload: mustJSON(payload)})
}

func writeWSError(peer *wsPeer, requestID, code, message string) error {
	return writeWSFrame(peer, FrameError, requestID, wsError{Code: code, Message: message})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

// Prewarmer refreshes cached assets for an orientation.
type Prewarmer interface {
	PrewarmOrientation(ctx context.Context, orientation string) int
}

// renderJob is the latest viewport waiting to be drawn.
type renderJob struct {
	gen       uint64
	requestID string
	vp        geometry.Viewport
	dpr       float64
}

// Session drives one page's hero over a websocket. Viewport events feed a
// frame scheduler. Each accepted frame queues the newest viewport for the
// render worker, and a result is only sent if no newer viewport arrived
// while it was drawing.
type Session struct {
	ID string

	renderer *Renderer
	prewarm  Prewarmer
	sched    *frame.Scheduler
	peer     *wsPeer
	log      *slog.Logger

	mu      sync.Mutex
	latest  renderJob
	queued  uint64
	pending chan renderJob
}

// SessionOptions configures the per-session frame scheduler.
type SessionOptions struct {
	Source           frame.Source
	MinInterval      time.Duration
	OrientationDelay time.Duration
}

func newSession(r *Renderer, prewarm Prewarmer, peer *wsPeer, opts SessionOptions, log *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		renderer: r,
		prewarm:  prewarm,
		sched: frame.New(opts.Source, frame.Options{
			MinInterval:      opts.MinInterval,
			OrientationDelay: opts.OrientationDelay,
		}),
		peer:    peer,
		log:     log.With(slog.String("session_id", id)),
		pending: make(chan renderJob, 1),
	}
}

// Generation is the number of viewport events seen so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.gen
}

// update records a viewport event and returns its generation.
func (s *Session) update(requestID string, p ViewportPayload) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = renderJob{
		gen:       s.latest.gen + 1,
		requestID: requestID,
		vp:        geometry.Viewport{Width: p.Width, Height: p.Height},
		dpr:       p.DPR,
	}
	return s.latest.gen
}

// enqueue hands the newest viewport to the worker, replacing any job it has
// not started yet.
func (s *Session) enqueue(time.Time) {
	s.mu.Lock()
	job := s.latest
	if job.gen == 0 || job.gen == s.queued {
		s.mu.Unlock()
		return
	}
	s.queued = job.gen
	s.mu.Unlock()

	select {
	case <-s.pending:
	default:
	}
	select {
	case s.pending <- job:
	default:
	}
}

func (s *Session) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.pending:
			s.render(ctx, job)
		}
	}
}

func (s *Session) render(ctx context.Context, job renderJob) {
	f, err := s.renderer.Render(ctx, job.vp, job.dpr)
	if err != nil {
		s.log.Error("hero render failed", logger.Error(err))
		_ = writeWSError(s.peer, job.requestID, "INTERNAL", "render failed")
		return
	}
	if job.gen != s.Generation() {
		s.log.Debug("dropping stale hero frame", slog.Uint64("generation", job.gen))
		return
	}
	_ = writeWSFrame(s.peer, FrameHero, job.requestID, HeroPayload{
		Generation:  job.gen,
		Orientation: f.Layout.Viewport.Orientation(),
		Layout:      f.Layout,
		HideBody:    f.HideBody,
		DPR:         f.DPR,
		PNG:         base64.StdEncoding.EncodeToString(f.PNG),
	})
}

func (s *Session) handleViewport(ctx context.Context, f wsFrame) {
	var p ViewportPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		_ = writeWSError(s.peer, f.RequestID, "INVALID_ARGUMENT", "invalid viewport payload")
		return
	}
	if p.Width < 0 || p.Height < 0 {
		_ = writeWSError(s.peer, f.RequestID, "INVALID_ARGUMENT", "viewport must not be negative")
		return
	}
	s.update(f.RequestID, p)

	if f.Type == FrameOrientation {
		if s.prewarm != nil {
			vp := geometry.Viewport{Width: p.Width, Height: p.Height}
			s.prewarm.PrewarmOrientation(ctx, vp.Orientation())
		}
		s.sched.Signal(frame.EventOrientation)
		return
	}
	s.sched.Signal(frame.EventResize)
}

// serve runs the session until the socket closes.
func (s *Session) serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispose := s.sched.Subscribe(s.enqueue)
	defer func() {
		dispose()
		s.sched.Close()
	}()
	go s.work(ctx)

	if err := writeWSFrame(s.peer, FrameReady, "", readyPayload{SessionID: s.ID}); err != nil {
		return
	}

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var f wsFrame
		if err := decoder.Decode(&f); err != nil {
			if ctx.Err() != nil || isClosed(err) {
				return
			}
			decodeErrors++
			_ = writeWSError(s.peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			// The decoder cannot resync after a syntax error.
			decoder = json.NewDecoder(conn)
			continue
		}
		decodeErrors = 0

		if len(f.Payload) > maxFramePayloadBytes {
			_ = writeWSError(s.peer, f.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		switch f.Type {
		case FrameResize, FrameOrientation:
			s.handleViewport(ctx, f)
		default:
			_ = writeWSError(s.peer, f.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}
