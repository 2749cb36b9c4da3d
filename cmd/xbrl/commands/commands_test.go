package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xbrlus/xbrlapi/internal/constants"
)

type testAPI struct {
	server *httptest.Server
	logins atomic.Int32
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "me@example.com", r.PostForm.Get("username"))
		api.logins.Add(1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
		})
	})
	mux.HandleFunc("/api/v1/fact/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("max_limit"))
		assert.Equal(t, "Assets", r.URL.Query().Get("concept.local-name"))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req-1")
		_, _ = w.Write([]byte(`{"data":[{"fact.value":100,"entity.name":"A"},{"fact.value":200,"entity.name":"B"}],"paging":{"count":2,"limit":5,"offset":0}}`))
	})

	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)

	return api
}

// files writes a config file for api and returns the global flags pointing
// at it and at a private token file.
func (a *testAPI) files(t *testing.T) ([]string, string) {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	tokenPath := filepath.Join(dir, "tokens.yml")

	content := "base_url: " + a.server.URL + "\n" +
		"client_id: id\nclient_secret: very-secret\nplatform: pc\n" +
		"username: me@example.com\npassword: pw\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return []string{"--config", configPath, "--token-file", tokenPath}, tokenPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := NewRootCommand("1.2.3", "abc123", "2026-01-01")
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version", "--output", "json")
	require.NoError(t, err)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, versionInfo{Version: "1.2.3", Commit: "abc123", Built: "2026-01-01"}, info)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")

	_, err = execute(t, "version", "--output", "xml")
	require.ErrorIs(t, err, constants.ErrInvalidOutputFormat)
}

func TestCallCommand(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		flags, _ := api.files(t)
		args := append([]string{"call", "/api/v1/fact/search", "-p", "concept.local-name=Assets", "--max-limit", "50", "-o", "json"}, flags...)
		out, err := execute(t, args...)
		require.NoError(t, err)

		var doc struct {
			Data   []map[string]interface{} `json:"data"`
			Paging map[string]int           `json:"paging"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Len(t, doc.Data, 2)
		assert.Equal(t, 2, doc.Paging["count"])
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		flags, _ := api.files(t)
		args := append([]string{"call", "/api/v1/fact/search", "-p", "concept.local-name=Assets", "-o", "yaml"}, flags...)
		out, err := execute(t, args...)
		require.NoError(t, err)

		var doc map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		assert.Len(t, doc["data"], 2)
	})

	t.Run("table", func(t *testing.T) {
		t.Parallel()

		flags, _ := api.files(t)
		args := append([]string{"call", "/api/v1/fact/search", "-p", "concept.local-name=Assets"}, flags...)
		out, err := execute(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "200")
		assert.Contains(t, out, "2 records (limit 5)")
	})

	t.Run("raw", func(t *testing.T) {
		t.Parallel()

		flags, _ := api.files(t)
		args := append([]string{"call", "/api/v1/fact/search", "-p", "concept.local-name=Assets", "--raw", "-o", "json"}, flags...)
		out, err := execute(t, args...)
		require.NoError(t, err)

		var view rawView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, http.StatusOK, view.StatusCode)
		assert.Equal(t, []string{"req-1"}, view.Headers["X-Request-Id"])
	})

	t.Run("bad param", func(t *testing.T) {
		t.Parallel()

		flags, _ := api.files(t)
		args := append([]string{"call", "/api/v1/fact/search", "-p", "nodelimiter"}, flags...)
		_, err := execute(t, args...)
		require.ErrorIs(t, err, constants.ErrInvalidParamFormat)
	})
}

func TestLoginLogout(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flags, tokenPath := api.files(t)

	out, err := execute(t, append([]string{"login"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as me@example.com")
	assert.Equal(t, int32(1), api.logins.Load())

	raw, err := os.ReadFile(tokenPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "access-token")

	// Stored tokens are reused without another grant.
	_, err = execute(t, append([]string{"call", "/api/v1/fact/search", "-p", "concept.local-name=Assets"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.logins.Load())

	out, err = execute(t, append([]string{"logout"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	raw, err = os.ReadFile(tokenPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "access-token")
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flags, _ := api.files(t)

	out, err := execute(t, append([]string{"config", "show", "-o", "json"}, flags...)...)
	require.NoError(t, err)

	var view configView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, api.server.URL, view.BaseURL)
	assert.Equal(t, "***", view.ClientSecret)
	assert.Equal(t, "***", view.Password)
	assert.Equal(t, "pc", view.Platform)
	assert.Equal(t, "none", view.AccessToken)
	assert.NotContains(t, out, "very-secret")

	out, err = execute(t, append([]string{"config", "show"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, api.server.URL)
	assert.NotContains(t, out, "very-secret")
}

func TestParseParams(t *testing.T) {
	t.Parallel()

	params, err := parseParams([]string{"a=1", "b=x=y", "a=2"})
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "a", params[0].Key)
	assert.Equal(t, "2", params[0].Value)
	assert.Equal(t, "x=y", params[1].Value)

	_, err = parseParams([]string{"=1"})
	require.ErrorIs(t, err, constants.ErrInvalidParamFormat)
}

func TestCellValue(t *testing.T) {
	t.Parallel()

	assert.Empty(t, cellValue(nil))
	assert.Equal(t, "100", cellValue(float64(100)))
	assert.Equal(t, "1.5", cellValue(1.5))
	assert.Equal(t, "true", cellValue(true))
	assert.Equal(t, `{"a":1}`, cellValue(map[string]interface{}{"a": 1}))
	assert.Equal(t, `[1,2]`, cellValue([]interface{}{1, 2}))
}

func TestTruncateToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcd...", truncateToken("abcdefgh"))
	assert.Equal(t, "***", truncateToken("abc"))
}
