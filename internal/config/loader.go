package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment key, e.g. AUTHCLIENT_BASE_URL.
const EnvPrefix = "AUTHCLIENT_"

// ConfigFileEnv names the variable holding an optional YAML file path.
const ConfigFileEnv = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if AUTHCLIENT_CONFIG is set
//  3. env (prefix AUTHCLIENT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// AUTHCLIENT_BASE_URL -> base_url; underscores are kept to match koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the binaries rely on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base_url must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an absolute URL: %q", ErrInvalidConfig, c.BaseURL)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("%w: timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.RepeatSubmitIntervalMS < 0 {
		return fmt.Errorf("%w: repeat_submit_interval_ms must not be negative", ErrInvalidConfig)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate_limit_rps is set", ErrInvalidConfig)
	}
	if c.StubTokenTTLSeconds <= 0 {
		return fmt.Errorf("%w: stub_token_ttl_s must be positive", ErrInvalidConfig)
	}
	return nil
}
