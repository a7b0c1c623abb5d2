// Package config defines client and stub configuration and its loading hooks.
//
// Conventions:
// - Defaults come from New(); Load layers a YAML file and env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Config contains process configuration shared by authctl and authstub.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// BaseURL is prepended to every request path, e.g. "http://localhost:8080".
	BaseURL string `koanf:"base_url"`

	// TimeoutMS is the executor default request timeout.
	TimeoutMS int `koanf:"timeout_ms"`

	// RepeatSubmitIntervalMS is the window in which an identical POST/PUT is
	// rejected as a duplicate submission.
	RepeatSubmitIntervalMS int `koanf:"repeat_submit_interval_ms"`

	// TokenFile is where authctl persists the session token.
	TokenFile string `koanf:"token_file"`

	// RateLimitRPS and RateLimitBurst configure the optional client-side
	// limiter; RPS <= 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// StubAddr is the listen address of the stub server.
	StubAddr string `koanf:"stub_addr"`

	// StubJWTSecret signs stub access tokens.
	StubJWTSecret string `koanf:"stub_jwt_secret"`

	// StubCaptchaEnabled toggles captcha checking on stub logins.
	StubCaptchaEnabled bool `koanf:"stub_captcha_enabled"`

	// StubTokenTTLSeconds is the lifetime of stub access tokens.
	StubTokenTTLSeconds int `koanf:"stub_token_ttl_s"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		BaseURL:                "http://localhost:8080",
		TimeoutMS:              10_000,
		RepeatSubmitIntervalMS: 1_000,
		TokenFile:              ".authctl/token.json",
		RateLimitRPS:           0,
		RateLimitBurst:         1,
		StubAddr:               ":8080",
		StubJWTSecret:          "change-me",
		StubCaptchaEnabled:     true,
		StubTokenTTLSeconds:    7200,
	}
}

// Timeout returns TimeoutMS as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RepeatSubmitInterval returns RepeatSubmitIntervalMS as a duration.
func (c *Config) RepeatSubmitInterval() time.Duration {
	return time.Duration(c.RepeatSubmitIntervalMS) * time.Millisecond
}

// StubTokenTTL returns StubTokenTTLSeconds as a duration.
func (c *Config) StubTokenTTL() time.Duration {
	return time.Duration(c.StubTokenTTLSeconds) * time.Second
}
