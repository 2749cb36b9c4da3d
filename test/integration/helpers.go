//go:build integration

// Package integration exercises the client against the live XBRL US API.
package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xbrlus/xbrlapi/pkg/xbrl"
	"github.com/xbrlus/xbrlapi/pkg/xbrlclient"
)

// TestConfig holds the credentials read from XBRLUS_* variables.
type TestConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Verbose      bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	baseURL := os.Getenv("XBRLUS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.xbrl.us"
	}

	return &TestConfig{
		BaseURL:      baseURL,
		ClientID:     os.Getenv("XBRLUS_CLIENT_ID"),
		ClientSecret: os.Getenv("XBRLUS_CLIENT_SECRET"),
		Username:     os.Getenv("XBRLUS_USERNAME"),
		Password:     os.Getenv("XBRLUS_PASSWORD"),
		Verbose:      os.Getenv("XBRLUS_VERBOSE") == "true",
	}
}

// SkipIfMissingConfig skips the test unless every credential is set.
func (c *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if c.ClientID == "" || c.ClientSecret == "" || c.Username == "" || c.Password == "" {
		t.Skip("XBRLUS_CLIENT_ID, XBRLUS_CLIENT_SECRET, XBRLUS_USERNAME or XBRLUS_PASSWORD not set, skipping integration test")
	}
}

// NewClient logs in with a fresh platform suffix and a private token file.
func (c *TestConfig) NewClient(t *testing.T, opts ...xbrlclient.Option) xbrl.Client {
	t.Helper()

	store, err := xbrlclient.NewFileTokenStore(t.TempDir() + "/tokens.yml")
	require.NoError(t, err)

	opts = append([]xbrlclient.Option{xbrlclient.WithTokenStore(store)}, opts...)

	cli, err := xbrlclient.NewFromConfig(context.Background(), &xbrl.Config{
		BaseURL:      c.BaseURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Platform:     "it",
		Username:     c.Username,
		Password:     c.Password,
		Debug:        c.Verbose,
	}, opts...)
	require.NoError(t, err)

	return cli
}
