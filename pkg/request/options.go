package request

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/authclient/internal/domain/dedupe"
	"github.com/okian/authclient/pkg/logger"
	"github.com/okian/authclient/pkg/metrics"
	"golang.org/x/time/rate"
)

// HTTPDoer is the subset of *http.Client the executor needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option applies a configuration option to the Executor.
type Option func(*Executor)

// WithBaseURL sets the prefix for every request URL.
func WithBaseURL(baseURL string) Option {
	return func(e *Executor) {
		e.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(e *Executor) {
		if c != nil {
			e.client = c
		}
	}
}

// WithTimeout sets the default timeout for requests that do not carry one.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTokenProvider sets where session tokens come from.
func WithTokenProvider(p TokenProvider) Option {
	return func(e *Executor) {
		e.tokens = p
	}
}

// WithRepeatSubmitInterval sets the duplicate-submission window. Zero
// disables suppression.
func WithRepeatSubmitInterval(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.repeatInterval = d
		}
	}
}

// WithRepeatSubmitClock replaces the guard's clock, mainly for tests.
func WithRepeatSubmitClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.guardOpts = append(e.guardOpts, dedupe.WithClock(now))
	}
}

// WithRateLimit enables a client-side token bucket of rps requests per
// second with the given burst. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Executor) {
		if rps <= 0 || burst <= 0 {
			e.limiter = nil
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUnauthorizedHandler registers a hook run whenever the server answers
// 401, before the error is returned.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(e *Executor) {
		e.onUnauthorized = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records into m instead of the global manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Executor) {
		if m != nil {
			e.metrics = m
		}
	}
}
