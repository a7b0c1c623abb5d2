package stub

import (
	"time"

	"github.com/okian/authclient/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithJWTSecret sets the HS256 signing key.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithTokenTTL sets the access token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithCaptchaEnabled toggles captcha verification on login.
func WithCaptchaEnabled(enabled bool) Option {
	return func(s *Server) {
		s.captchaEnabled = enabled
	}
}

// WithLockout sets how many consecutive failures lock an account and for how long.
func WithLockout(maxRetry int, lockFor time.Duration) Option {
	return func(s *Server) {
		if maxRetry > 0 {
			s.users.maxRetry = maxRetry
		}
		if lockFor > 0 {
			s.users.lockFor = lockFor
		}
	}
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) {
		s.users.cost = cost
	}
}

// WithUser seeds an account.
func WithUser(username, password, nickname string, roles ...string) Option {
	return func(s *Server) {
		s.seed = append(s.seed, seedUser{username: username, password: password, nickname: nickname, roles: roles})
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
