// Package dedupe tracks submission ids so a playthrough is ingested at most once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Deduper records seen submission IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID so the submission can be retried. Used when a
	// submission was recorded but could not be queued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps the most recent ids in a bounded LRU. Lookups go
// through Contains/ContainsOrAdd, which do not refresh recency, so eviction
// follows insertion order. maxSize <= 0 switches to an unbounded map.
type inMemoryDeduper struct {
	maxSize int

	bounded *lru.Cache[string, struct{}]

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize > 0 {
		c, err := lru.New[string, struct{}](d.maxSize)
		if err != nil {
			panic(err) // only fails for non-positive sizes
		}
		d.bounded = c
	} else {
		d.seen = make(map[string]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if d.bounded != nil {
		found, _ := d.bounded.ContainsOrAdd(id, struct{}{})
		return found
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	if d.bounded != nil {
		d.bounded.Remove(id)
		return
	}

	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	if d.bounded != nil {
		return int64(d.bounded.Len())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
