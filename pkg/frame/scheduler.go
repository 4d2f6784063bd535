// Package frame coalesces viewport changes into throttled redraws.
//
// Any number of Signal or Request calls between two frames produce a single
// draw, and draws are at least MinInterval apart. A draw that lands inside the
// interval is deferred to the end of it rather than lost, so the last
// viewport change is always painted.
package frame

import (
	"sync"
	"time"
)

const (
	DefaultMinInterval      = 80 * time.Millisecond
	DefaultOrientationDelay = 120 * time.Millisecond
)

// Event is a viewport change.
type Event int

const (
	EventResize Event = iota + 1
	EventOrientation
)

func (e Event) String() string {
	switch e {
	case EventResize:
		return "resize"
	case EventOrientation:
		return "orientation"
	default:
		return "unknown"
	}
}

// DrawFunc is called once per accepted frame with the frame timestamp.
type DrawFunc func(now time.Time)

// AfterFunc schedules f after d and returns a stop function. It matches
// time.AfterFunc and is swapped out in tests.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type Options struct {
	MinInterval      time.Duration
	OrientationDelay time.Duration
	AfterFunc        AfterFunc
}

// Scheduler owns at most one pending frame request.
type Scheduler struct {
	source Source
	opts   Options

	mu          sync.Mutex
	handlers    map[uint64]DrawFunc
	nextID      uint64
	cancelFrame func()
	timers      map[uint64]func() bool
	nextTimer   uint64
	lastDraw    time.Time
	closed      bool
}

// New returns a scheduler fed by source. Zero option fields take defaults.
func New(source Source, opts Options) *Scheduler {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.OrientationDelay <= 0 {
		opts.OrientationDelay = DefaultOrientationDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	return &Scheduler{
		source:   source,
		opts:     opts,
		handlers: make(map[uint64]DrawFunc),
		timers:   make(map[uint64]func() bool),
	}
}

// Subscribe registers fn for every accepted frame. Calling dispose removes it;
// dispose is safe to call more than once.
func (s *Scheduler) Subscribe(fn DrawFunc) (dispose func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

// Request asks for a draw on the next frame, replacing any request that has
// not fired yet.
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestLocked()
}

func (s *Scheduler) requestLocked() {
	if s.closed {
		return
	}
	if s.cancelFrame != nil {
		s.cancelFrame()
	}
	s.cancelFrame = s.source.Request(s.onFrame)
}

// Signal records a viewport change. Orientation changes wait
// OrientationDelay for layout to settle before requesting.
func (s *Scheduler) Signal(ev Event) {
	if ev == EventOrientation {
		s.after(s.opts.OrientationDelay)
		return
	}
	s.Request()
}

// after requests a frame once d has elapsed.
func (s *Scheduler) after(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.nextTimer++
	id := s.nextTimer
	s.timers[id] = s.opts.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.timers, id)
		s.requestLocked()
	})
}

func (s *Scheduler) onFrame(now time.Time) {
	s.mu.Lock()
	s.cancelFrame = nil
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.lastDraw.IsZero() {
		if wait := s.opts.MinInterval - now.Sub(s.lastDraw); wait > 0 {
			s.mu.Unlock()
			s.after(wait)
			return
		}
	}
	s.lastDraw = now
	handlers := make([]DrawFunc, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(now)
	}
}

// Close cancels the pending frame and every delay timer. Later calls to
// Request and Signal are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancelFrame != nil {
		s.cancelFrame()
		s.cancelFrame = nil
	}
	for id, stop := range s.timers {
		stop()
		delete(s.timers, id)
	}
}
