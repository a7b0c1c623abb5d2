// Package service runs the stub auth server: it owns the listener, the HTTP
// server and the background session gauge.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/okian/authclient/internal/adapters/http/stub"
	"github.com/okian/authclient/internal/adapters/http/swagger"
	"github.com/okian/authclient/pkg/logger"
	"github.com/okian/authclient/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

// Service wraps the stub server with its HTTP lifecycle.
type Service struct {
	mu sync.RWMutex

	// Configuration
	addr          string
	stubOpts      []stub.Option
	gaugeInterval time.Duration

	// State
	stub     *stub.Server
	http     *http.Server
	listener net.Listener
	started  bool
	stopCh   chan struct{}
	done     sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAddr sets the listen address; ":0" picks a free port.
func WithAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithStubOptions forwards options to the stub server.
func WithStubOptions(opts ...stub.Option) Option {
	return func(s *Service) {
		s.stubOpts = append(s.stubOpts, opts...)
	}
}

// WithSessionGaugeInterval sets how often the active session gauge is refreshed.
func WithSessionGaugeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gaugeInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		addr:          ":8080",
		gaugeInterval: 5 * time.Second,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the stub server, binds the listener and begins serving.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	srv, err := stub.NewServer(append([]stub.Option{stub.WithLogger(s.logger.Named("stub"))}, s.stubOpts...)...)
	if err != nil {
		return fmt.Errorf("build stub server: %w", err)
	}

	mux := http.NewServeMux()
	srv.Register(ctx, mux)
	swagger.Register(ctx, mux)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.stub = srv
	s.listener = ln
	s.http = &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.stopCh = make(chan struct{})

	s.done.Add(2)
	go func() {
		defer s.done.Done()
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "HTTP server failed", logger.Error(err))
		}
	}()
	go func() {
		defer s.done.Done()
		s.updateSessionGauge()
	}()

	s.started = true
	s.logger.Info(ctx, "stub auth server started", logger.String("addr", ln.Addr().String()))
	return nil
}

// updateSessionGauge refreshes the active session gauge until Stop.
func (s *Service) updateSessionGauge() {
	ticker := time.NewTicker(s.gaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			metrics.UpdateServerActiveSessions(s.stub.ActiveSessions())
		}
	}
}

// Stop gracefully shuts down the HTTP server, waiting at most until ctx ends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping stub auth server...")

	close(s.stopCh)
	err := s.http.Shutdown(ctx)
	s.done.Wait()

	s.started = false
	s.logger.Info(ctx, "stub auth server stopped")
	return err
}

// Addr returns the bound listen address.
func (s *Service) Addr() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}
	return s.listener.Addr().String(), nil
}

// Stub exposes the running stub server.
func (s *Service) Stub() (*stub.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.stub, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
		"addr":    s.addr,
	}
	if s.started {
		stats["addr"] = s.listener.Addr().String()
		stats["activeSessions"] = s.stub.ActiveSessions()
	}
	return stats
}
