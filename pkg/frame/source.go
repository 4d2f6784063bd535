package frame

import (
	"sync"
	"time"
)

// DefaultFrameRate is the tick rate of NewTickerSource when none is given.
const DefaultFrameRate = 60

// Source delivers frame callbacks. Request registers cb for the next frame
// only; the returned cancel removes it if it has not fired yet.
type Source interface {
	Request(cb func(now time.Time)) (cancel func())
}

// callbacks is the pending set shared by both sources.
type callbacks struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]func(time.Time)
}

func (c *callbacks) add(cb func(time.Time)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = make(map[uint64]func(time.Time))
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = cb
	return func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}
}

// fire runs everything registered before the call. Callbacks registered while
// firing wait for the next frame.
func (c *callbacks) fire(now time.Time) int {
	c.mu.Lock()
	due := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, cb := range due {
		cb(now)
	}
	return len(due)
}

func (c *callbacks) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// TickerSource fires pending callbacks on a fixed-rate ticker.
type TickerSource struct {
	callbacks
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewTickerSource starts a source ticking rate times per second.
func NewTickerSource(rate int) *TickerSource {
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	s := &TickerSource{
		ticker: time.NewTicker(time.Second / time.Duration(rate)),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *TickerSource) run() {
	for {
		select {
		case <-s.done:
			return
		case now := <-s.ticker.C:
			s.fire(now)
		}
	}
}

func (s *TickerSource) Request(cb func(now time.Time)) func() {
	return s.add(cb)
}

// Stop halts the ticker. Pending callbacks never fire.
func (s *TickerSource) Stop() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

// ManualSource fires only when told to. Used in tests and for one-shot
// server renders.
type ManualSource struct {
	callbacks
}

func NewManualSource() *ManualSource {
	return &ManualSource{}
}

func (s *ManualSource) Request(cb func(now time.Time)) func() {
	return s.add(cb)
}

// Fire runs the pending callbacks with now and reports how many ran.
func (s *ManualSource) Fire(now time.Time) int {
	return s.fire(now)
}

// Pending reports how many callbacks wait for the next frame.
func (s *ManualSource) Pending() int {
	return s.count()
}
