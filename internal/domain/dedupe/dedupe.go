// Package dedupe implements the repeat-submission guard: a short window in
// which an identical write to the same endpoint is rejected before it reaches
// the network.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultInterval = time.Second
	defaultMaxSize  = 1024
)

// Deduper records the latest submission per key.
type Deduper interface {
	// SeenAndRecord atomically checks whether key's last submission carried
	// the same fingerprint and happened less than the interval ago. It
	// returns true in that case and leaves the record untouched. Otherwise it
	// records fingerprint as key's latest submission and returns false.
	SeenAndRecord(ctx context.Context, key, fingerprint string) bool

	// Unrecord forgets key's submission if it still carries fingerprint, so a
	// submission that never reached the server can be retried immediately.
	Unrecord(ctx context.Context, key, fingerprint string)

	Size() int64
}

type submission struct {
	key         string
	fingerprint string
	at          time.Time
}

// windowDeduper keeps one submission per key in insertion order so the
// oldest key is evicted first once maxSize is reached.
type windowDeduper struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently recorded
	interval time.Duration
	maxSize  int // <= 0 means unbounded
	now      func() time.Time
	size     atomic.Int64
}

// NewInMemoryDeduper creates a guard with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &windowDeduper{
		interval: defaultInterval,
		maxSize:  defaultMaxSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.entries = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *windowDeduper) SeenAndRecord(_ context.Context, key, fingerprint string) bool {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.entries[key]; ok {
		s := el.Value.(*submission)
		if s.fingerprint == fingerprint && now.Sub(s.at) < d.interval {
			return true
		}
		s.fingerprint = fingerprint
		s.at = now
		d.order.MoveToFront(el)
		return false
	}

	if d.maxSize > 0 && len(d.entries) >= d.maxSize {
		d.evictOldest()
	}
	d.entries[key] = d.order.PushFront(&submission{key: key, fingerprint: fingerprint, at: now})
	d.size.Add(1)
	return false
}

func (d *windowDeduper) Unrecord(_ context.Context, key, fingerprint string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.entries[key]
	if !ok || el.Value.(*submission).fingerprint != fingerprint {
		return
	}
	d.order.Remove(el)
	delete(d.entries, key)
	d.size.Add(-1)
}

// evictOldest drops the least recently recorded key. Caller holds d.mu.
func (d *windowDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.entries, el.Value.(*submission).key)
	d.size.Add(-1)
}

func (d *windowDeduper) Size() int64 {
	return d.size.Load()
}
