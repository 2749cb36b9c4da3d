package xbrlclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbrlus/xbrlapi/pkg/xbrl"
	"github.com/xbrlus/xbrlapi/pkg/xbrlclient"
)

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var logins atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		logins.Add(1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access",
			"refresh_token": "refresh",
		})
	})
	mux.HandleFunc("/api/v1/report/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"report.id":1},{"report.id":2}],"paging":{"count":2,"limit":5,"offset":0}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, &logins
}

func testConfig(baseURL string) *xbrl.Config {
	return &xbrl.Config{
		BaseURL:      baseURL,
		ClientID:     "id",
		ClientSecret: "secret",
		Platform:     "pc",
		Username:     "me@example.com",
		Password:     "pw",
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	server, logins := newServer(t)

	cli, err := xbrlclient.NewFromConfig(context.Background(), testConfig(server.URL+"/"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), logins.Load())

	res, err := cli.Get(context.Background(), "/api/v1/report/search", xbrl.NewParams("fields", "report.id"))
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, 2, res.Paging.Count)
}

func TestNewFromConfig_PlatformPerClient(t *testing.T) {
	t.Parallel()

	var (
		mutex     sync.Mutex
		platforms []string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		mutex.Lock()
		platforms = append(platforms, r.PostForm.Get("platform"))
		mutex.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access",
			"refresh_token": "refresh",
		})
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)

	for range 3 {
		_, err := xbrlclient.NewFromConfig(context.Background(), cfg)
		require.NoError(t, err)
	}

	assert.Equal(t, "pc", cfg.Platform)

	mutex.Lock()
	defer mutex.Unlock()

	require.Len(t, platforms, 3)

	distinct := make(map[string]struct{})
	for _, platform := range platforms {
		assert.Regexp(t, `^pc[1-9][0-9][1-9][0-9]$`, platform)
		distinct[platform] = struct{}{}
	}

	assert.Greater(t, len(distinct), 1)
}

func TestNew_NilProvider(t *testing.T) {
	t.Parallel()

	var handled error

	_, err := xbrlclient.New(context.Background(), nil,
		xbrlclient.WithErrorHandler(xbrl.ErrorHandlerFunc(func(_ context.Context, err error) { handled = err })))
	require.ErrorIs(t, err, xbrlclient.ErrNoConfigProvider)
	assert.True(t, xbrl.IsConfigurationError(err))
	assert.Equal(t, err, handled)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := xbrlclient.NewFromConfig(context.Background(), &xbrl.Config{BaseURL: "api.example.com"})
	require.Error(t, err)
	assert.True(t, xbrl.IsConfigurationError(err))
	assert.True(t, strings.Contains(err.Error(), "client_id, client_secret, platform"))
}

func TestNew_ReusesStoredTokens(t *testing.T) {
	t.Parallel()

	server, logins := newServer(t)

	store, err := xbrlclient.NewFileTokenStore(filepath.Join(t.TempDir(), "tokens.yml"))
	require.NoError(t, err)

	_, err = xbrlclient.NewFromConfig(context.Background(), testConfig(server.URL), xbrlclient.WithTokenStore(store))
	require.NoError(t, err)

	cli, err := xbrlclient.NewFromConfig(context.Background(), testConfig(server.URL), xbrlclient.WithTokenStore(store))
	require.NoError(t, err)

	assert.Equal(t, int32(1), logins.Load())
	assert.Equal(t, "access", cli.Credentials().AccessToken)
}

func TestNewTokenStore(t *testing.T) {
	t.Parallel()

	store, err := xbrlclient.NewTokenStore(context.Background(), &xbrlclient.TokenStoreConfig{Type: xbrlclient.TokenStoreMemory})
	require.NoError(t, err)

	creds, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, creds.Complete())

	_, err = xbrlclient.NewTokenStore(context.Background(), &xbrlclient.TokenStoreConfig{Type: xbrlclient.TokenStoreNATS})
	require.Error(t, err)
}
