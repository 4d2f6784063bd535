package assetcache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Policy selects the memory tier eviction strategy.
type Policy string

const (
	// PolicyFIFO drops the oldest fifth of entries by insertion order once
	// the tier is full. Reads do not refresh an entry.
	PolicyFIFO Policy = "fifo"
	// PolicyLRU evicts the least recently used entry, one at a time.
	PolicyLRU Policy = "lru"
)

// evictFraction is the share of a full FIFO tier dropped per sweep.
const evictFraction = 0.2

// MemoryTier is the in-process tier of the cache.
type MemoryTier interface {
	Get(url string) ([]byte, bool)
	Set(url string, content []byte)
	Keys() []string
	Len() int
	Clear()
}

// NewMemoryTier builds the tier for policy.
func NewMemoryTier(policy Policy, capacity int) (MemoryTier, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("memory tier capacity must be positive, got %d", capacity)
	}
	switch policy {
	case PolicyFIFO, "":
		return newFIFOTier(capacity), nil
	case PolicyLRU:
		c, err := lru.New[string, []byte](capacity)
		if err != nil {
			return nil, fmt.Errorf("create lru tier: %w", err)
		}
		return &lruTier{c: c}, nil
	default:
		return nil, fmt.Errorf("unknown cache policy %q", policy)
	}
}

type fifoTier struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]byte
	order    []string
}

func newFIFOTier(capacity int) *fifoTier {
	return &fifoTier{
		capacity: capacity,
		entries:  make(map[string][]byte, capacity),
	}
}

func (t *fifoTier) Get(url string) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[url]
	return v, ok
}

// Set sweeps before inserting, so a full tier loses floor(capacity*0.2)
// entries even when url is already present. Overwrites keep their original
// position.
func (t *fifoTier) Set(url string, content []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.capacity {
		n := int(float64(t.capacity) * evictFraction)
		if n < 1 {
			n = 1
		}
		if n > len(t.order) {
			n = len(t.order)
		}
		for _, k := range t.order[:n] {
			delete(t.entries, k)
		}
		t.order = append(t.order[:0:0], t.order[n:]...)
	}

	if _, ok := t.entries[url]; !ok {
		t.order = append(t.order, url)
	}
	t.entries[url] = content
}

func (t *fifoTier) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

func (t *fifoTier) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *fifoTier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string][]byte, t.capacity)
	t.order = nil
}

type lruTier struct {
	c *lru.Cache[string, []byte]
}

func (t *lruTier) Get(url string) ([]byte, bool)  { return t.c.Get(url) }
func (t *lruTier) Set(url string, content []byte) { t.c.Add(url, content) }
func (t *lruTier) Keys() []string                 { return t.c.Keys() }
func (t *lruTier) Len() int                       { return t.c.Len() }
func (t *lruTier) Clear()                         { t.c.Purge() }
