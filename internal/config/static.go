// Package config resolves client configuration from literals, YAML files,
// .env files and XBRLUS_ environment variables.
package config

import (
	"context"

	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// Static resolves a fixed configuration.
type Static struct {
	config         *xbrl.Config
	platformSuffix bool
}

// StaticOption configures a Static provider.
type StaticOption func(*Static)

// WithoutStaticPlatformSuffix uses the configured platform verbatim.
func WithoutStaticPlatformSuffix() StaticOption {
	return func(s *Static) {
		s.platformSuffix = false
	}
}

// NewStatic returns a provider for config. Every Resolve appends a fresh
// random suffix to the platform, since the API keys refresh tokens by
// platform.
func NewStatic(config *xbrl.Config, opts ...StaticOption) *Static {
	static := &Static{config: config, platformSuffix: true}

	for _, opt := range opts {
		opt(static)
	}

	return static
}

// Resolve returns a validated copy of the configuration.
func (s *Static) Resolve(_ context.Context) (*xbrl.Config, error) {
	if s.config == nil {
		return nil, &xbrl.ConfigurationError{MissingKeys: xbrl.RequiredKeys}
	}

	resolved := *s.config

	err := resolved.Validate()
	if err != nil {
		return nil, err
	}

	if s.platformSuffix {
		resolved.Platform = PlatformWithSuffix(resolved.Platform)
	}

	return &resolved, nil
}
