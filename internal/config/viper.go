package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// Keys read by ViperProvider.
const (
	KeyBaseURL            = "base_url"
	KeyClientID           = "client_id"
	KeyClientSecret       = "client_secret"
	KeyPlatform           = "platform"
	KeyUsername           = "username"
	KeyPassword           = "password"
	KeyHTTPTimeout        = "http_timeout"
	KeyRetryMax           = "retry_max"
	KeyRetryWaitMin       = "retry_wait_min"
	KeyRetryWaitMax       = "retry_wait_max"
	KeyInsecureSkipVerify = "insecure_skip_verify"
	KeyUserAgent          = "user_agent"
	KeyDebug              = "debug"
)

var allKeys = []string{
	KeyBaseURL, KeyClientID, KeyClientSecret, KeyPlatform, KeyUsername, KeyPassword,
	KeyHTTPTimeout, KeyRetryMax, KeyRetryWaitMin, KeyRetryWaitMax,
	KeyInsecureSkipVerify, KeyUserAgent, KeyDebug,
}

// ViperProvider reads a YAML config file, then .env files, then XBRLUS_
// environment variables. Later sources win.
type ViperProvider struct {
	viper          *viper.Viper
	configFile     string
	dotEnvFiles    []string
	platformSuffix bool
	logger         xbrl.Logger
}

// ViperOption configures a ViperProvider.
type ViperOption func(*ViperProvider)

// WithConfigFile reads path instead of searching ~/.xbrlus/config.yml. A
// missing explicit file is an error.
func WithConfigFile(path string) ViperOption {
	return func(p *ViperProvider) {
		p.configFile = path
	}
}

// WithDotEnv loads the given .env files into the environment. Missing files
// are skipped.
func WithDotEnv(paths ...string) ViperOption {
	return func(p *ViperProvider) {
		p.dotEnvFiles = append(p.dotEnvFiles, paths...)
	}
}

// WithViper reuses v, e.g. one with CLI flags bound.
func WithViper(v *viper.Viper) ViperOption {
	return func(p *ViperProvider) {
		p.viper = v
	}
}

// WithoutPlatformSuffix uses the configured platform verbatim.
func WithoutPlatformSuffix() ViperOption {
	return func(p *ViperProvider) {
		p.platformSuffix = false
	}
}

// WithConfigLogger sets the logger placed in resolved configs.
func WithConfigLogger(logger xbrl.Logger) ViperOption {
	return func(p *ViperProvider) {
		p.logger = logger
	}
}

// NewViperProvider creates a provider. By default it loads ./.env and
// appends a random platform suffix.
func NewViperProvider(opts ...ViperOption) *ViperProvider {
	provider := &ViperProvider{
		viper:          viper.New(),
		dotEnvFiles:    []string{".env"},
		platformSuffix: true,
	}

	for _, opt := range opts {
		opt(provider)
	}

	return provider
}

// Viper exposes the underlying instance.
func (p *ViperProvider) Viper() *viper.Viper {
	return p.viper
}

// Load reads every source into the viper instance without validating.
func (p *ViperProvider) Load() error {
	err := p.loadDotEnv()
	if err != nil {
		return &xbrl.ConfigurationError{Reason: "loading .env", Err: err}
	}

	return p.read()
}

// Resolve implements xbrl.ConfigProvider.
func (p *ViperProvider) Resolve(_ context.Context) (*xbrl.Config, error) {
	err := p.Load()
	if err != nil {
		return nil, err
	}

	v := p.viper

	config := &xbrl.Config{
		BaseURL:            v.GetString(KeyBaseURL),
		ClientID:           v.GetString(KeyClientID),
		ClientSecret:       v.GetString(KeyClientSecret),
		Platform:           v.GetString(KeyPlatform),
		Username:           v.GetString(KeyUsername),
		Password:           v.GetString(KeyPassword),
		HTTPTimeout:        v.GetDuration(KeyHTTPTimeout),
		RetryMax:           v.GetInt(KeyRetryMax),
		RetryWaitMin:       v.GetDuration(KeyRetryWaitMin),
		RetryWaitMax:       v.GetDuration(KeyRetryWaitMax),
		InsecureSkipVerify: v.GetBool(KeyInsecureSkipVerify),
		UserAgent:          v.GetString(KeyUserAgent),
		Debug:              v.GetBool(KeyDebug),
		Logger:             p.logger,
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	if p.platformSuffix {
		config.Platform = PlatformWithSuffix(config.Platform)
	}

	return config, nil
}

// ConfigFileUsed returns the file read by the last Resolve, if any.
func (p *ViperProvider) ConfigFileUsed() string {
	return p.viper.ConfigFileUsed()
}

func (p *ViperProvider) loadDotEnv() error {
	for _, path := range p.dotEnvFiles {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return nil
}

func (p *ViperProvider) read() error {
	v := p.viper

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for _, key := range allKeys {
		err := v.BindEnv(key)
		if err != nil {
			return &xbrl.ConfigurationError{Reason: "binding " + key, Err: err}
		}
	}

	if p.configFile != "" {
		v.SetConfigFile(p.configFile)

		err := v.ReadInConfig()
		if err != nil {
			return &xbrl.ConfigurationError{Reason: "reading " + p.configFile, Err: err}
		}

		return nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(filepath.Join(home, constants.DefaultConfigDirName))
	}

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err = v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return &xbrl.ConfigurationError{Reason: "reading config file", Err: err}
		}
	}

	return nil
}
