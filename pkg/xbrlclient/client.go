package xbrlclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/xbrlus/xbrlapi/internal/auth"
	"github.com/xbrlus/xbrlapi/internal/client"
	"github.com/xbrlus/xbrlapi/internal/config"
	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// ErrNoConfigProvider is returned when New is given a nil provider.
var ErrNoConfigProvider = constants.ErrNoConfigProvider

// Token store configuration, re-exported for callers outside this module.
type (
	TokenStoreConfig = auth.StoreConfig
	TokenStoreType   = auth.StoreType
	NATSConfig       = auth.NATSConfig
)

// Token store backends.
const (
	TokenStoreMemory = auth.StoreTypeMemory
	TokenStoreFile   = auth.StoreTypeFile
	TokenStoreNATS   = auth.StoreTypeNATS
)

type options struct {
	client       client.Options
	logger       xbrl.Logger
	viperOptions []config.ViperOption
}

// Option customizes client construction.
type Option func(*options)

// WithTokenStore keeps the token pair in store.
func WithTokenStore(store xbrl.TokenStore) Option {
	return func(o *options) {
		o.client.TokenStore = store
	}
}

// WithErrorHandler registers handler for every error the client returns.
func WithErrorHandler(handler xbrl.ErrorHandler) Option {
	return func(o *options) {
		o.client.ErrorHandler = handler
	}
}

// WithInterceptors runs chain around every HTTP exchange.
func WithInterceptors(chain *xbrl.InterceptorChain) Option {
	return func(o *options) {
		o.client.Interceptors = chain
	}
}

// WithMaxRecords replaces the default record cap of 10000.
func WithMaxRecords(maxRecords int) Option {
	return func(o *options) {
		o.client.MaxRecords = maxRecords
	}
}

// WithRetryBackOff paces repeats of calls that failed with an unclassified
// server error.
func WithRetryBackOff(b backoff.BackOff) Option {
	return func(o *options) {
		o.client.RetryBackOff = b
	}
}

// WithLogger sets the logger used when the resolved configuration has none.
func WithLogger(logger xbrl.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfigFile reads path in NewFromEnvironment instead of
// ~/.xbrlus/config.yml.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.viperOptions = append(o.viperOptions, config.WithConfigFile(path))
	}
}

// New resolves the configuration from provider and returns a logged-in client.
func New(ctx context.Context, provider xbrl.ConfigProvider, opts ...Option) (xbrl.Client, error) {
	o := applyOptions(opts)

	if provider == nil {
		err := &xbrl.ConfigurationError{Err: ErrNoConfigProvider}
		if o.client.ErrorHandler != nil {
			o.client.ErrorHandler.HandleError(ctx, err)
		}

		return nil, err
	}

	cfg, err := provider.Resolve(ctx)
	if err != nil {
		if o.client.ErrorHandler != nil {
			o.client.ErrorHandler.HandleError(ctx, err)
		}

		return nil, fmt.Errorf("resolving configuration: %w", err)
	}

	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)

	if cfg.Logger == nil {
		cfg.Logger = o.logger
	}

	cli, err := client.New(ctx, cfg, &o.client)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// NewFromConfig builds a client from a literal configuration. A random suffix
// is appended to the platform, so each client gets its own token lineage.
func NewFromConfig(ctx context.Context, cfg *xbrl.Config, opts ...Option) (xbrl.Client, error) {
	return New(ctx, config.NewStatic(cfg), opts...)
}

// NewFromEnvironment builds a client from ~/.xbrlus/config.yml, ./.env and
// XBRLUS_ environment variables. A random suffix is appended to the platform.
func NewFromEnvironment(ctx context.Context, opts ...Option) (xbrl.Client, error) {
	o := applyOptions(opts)

	return New(ctx, config.NewViperProvider(o.viperOptions...), opts...)
}

// NewTokenStore builds a memory, file or NATS token store.
func NewTokenStore(ctx context.Context, cfg *TokenStoreConfig) (xbrl.TokenStore, error) {
	store, err := auth.NewStoreFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating token store: %w", err)
	}

	return store, nil
}

// NewFileTokenStore returns a YAML token store at path, or at
// ~/.xbrlus/tokens.yml when path is empty.
func NewFileTokenStore(path string) (xbrl.TokenStore, error) {
	if path == "" {
		var err error

		path, err = auth.DefaultTokenFilePath()
		if err != nil {
			return nil, fmt.Errorf("locating token file: %w", err)
		}
	}

	return auth.NewFileTokenStore(path), nil
}

func applyOptions(opts []Option) *options {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// normalizeBaseURL trims trailing slashes and defaults the scheme to https.
func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return baseURL
	}

	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}
