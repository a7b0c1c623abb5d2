package dedupe

import "time"

// Option applies a configuration option to the in-memory guard.
type Option func(*windowDeduper)

// WithInterval sets the window in which an identical submission is rejected.
// A zero interval disables suppression.
func WithInterval(interval time.Duration) Option {
	return func(d *windowDeduper) {
		if interval >= 0 {
			d.interval = interval
		}
	}
}

// WithMaxSize caps the number of tracked keys. If maxSize <= 0 the guard is
// unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *windowDeduper) {
		d.maxSize = maxSize
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *windowDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
