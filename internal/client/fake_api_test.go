package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbrlus/xbrlapi/internal/auth"
	"github.com/xbrlus/xbrlapi/internal/client"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

var offsetDirective = regexp.MustCompile(`fact\.offset\(([0-9]+)\)$`)

// recordedRequest is a business request seen by fakeAPI.
type recordedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Header  http.Header
	Body    string
	Fields  string
	Bearer  string
	Request int
}

// fakeAPI serves /oauth2/token and hands every other request to business.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mutex    sync.Mutex
	grants   []url.Values
	requests []recordedRequest
	issued   int

	// refreshError and loginError, when set, reject the grant with this
	// description.
	refreshError string
	loginError   string
	business     func(w http.ResponseWriter, req recordedRequest)
}

func newFakeAPI(t *testing.T, business func(w http.ResponseWriter, req recordedRequest)) *fakeAPI {
	t.Helper()

	api := &fakeAPI{t: t, business: business}
	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)

	return api
}

func (a *fakeAPI) serve(writer http.ResponseWriter, request *http.Request) {
	if request.URL.Path == "/oauth2/token" {
		a.serveToken(writer, request)

		return
	}

	body, _ := io.ReadAll(request.Body)

	a.mutex.Lock()
	recorded := recordedRequest{
		Method:  request.Method,
		Path:    request.URL.Path,
		Query:   request.URL.Query(),
		Header:  request.Header.Clone(),
		Body:    string(body),
		Fields:  request.URL.Query().Get("fields"),
		Bearer:  request.Header.Get("Authorization"),
		Request: len(a.requests) + 1,
	}
	a.requests = append(a.requests, recorded)
	a.mutex.Unlock()

	a.business(writer, recorded)
}

func (a *fakeAPI) serveToken(writer http.ResponseWriter, request *http.Request) {
	err := request.ParseForm()
	assert.NoError(a.t, err)

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.grants = append(a.grants, request.PostForm)

	rejection := a.loginError
	if request.PostForm.Get("grant_type") == "refresh_token" {
		rejection = a.refreshError
	}

	if rejection != "" {
		writeJSON(writer, map[string]string{"error": "invalid_grant", "error_description": rejection})

		return
	}

	a.issued++
	writeJSON(writer, map[string]string{
		"access_token":  "access-" + strconv.Itoa(a.issued),
		"refresh_token": "refresh-" + strconv.Itoa(a.issued),
	})
}

func (a *fakeAPI) rejectRefresh(description string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.refreshError = description
}

func (a *fakeAPI) rejectLogin(description string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.loginError = description
}

func (a *fakeAPI) grantTypes() []string {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	out := make([]string, 0, len(a.grants))
	for _, grant := range a.grants {
		out = append(out, grant.Get("grant_type"))
	}

	return out
}

func (a *fakeAPI) recorded() []recordedRequest {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return append([]recordedRequest(nil), a.requests...)
}

func (a *fakeAPI) config() *xbrl.Config {
	return &xbrl.Config{
		BaseURL:      a.server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Platform:     "pc1234",
		Username:     "user@example.com",
		Password:     "secret",
	}
}

// newClient logs in with the password grant and returns the client.
func (a *fakeAPI) newClient(opts *client.Options) *client.Client {
	a.t.Helper()

	cli, err := client.New(context.Background(), a.config(), opts)
	require.NoError(a.t, err)

	return cli
}

// storedClient starts from a stored pair, so no grant is made.
func (a *fakeAPI) storedClient() (*client.Client, *auth.MemoryTokenStore) {
	a.t.Helper()

	store := auth.NewMemoryTokenStore(xbrl.Credentials{AccessToken: "stored-access", RefreshToken: "stored-refresh"})

	return a.newClient(&client.Options{
		TokenStore:   store,
		RetryBackOff: backoff.NewConstantBackOff(time.Millisecond),
	}), store
}

func writeJSON(writer http.ResponseWriter, value interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(value)
}

func writeError(writer http.ResponseWriter, description string) {
	writeJSON(writer, map[string]string{"error": "invalid_request", "error_description": description})
}

// pagedFacts serves total records in pages of limit. The first page reports
// firstOffset; later pages start at the last fact.offset(N) directive.
func pagedFacts(total, limit, firstOffset int) func(w http.ResponseWriter, req recordedRequest) {
	return func(writer http.ResponseWriter, req recordedRequest) {
		offset := firstOffset

		if match := offsetDirective.FindStringSubmatch(req.Fields); match != nil {
			offset, _ = strconv.Atoi(match[1])
		}

		data := make([]map[string]interface{}, 0, limit)

		for i := offset - firstOffset; i < total && len(data) < limit; i++ {
			data = append(data, map[string]interface{}{"fact.id": i + 1, "fact.value": fmt.Sprintf("v%d", i+1)})
		}

		writeJSON(writer, map[string]interface{}{
			"data":   data,
			"paging": map[string]int{"count": len(data), "limit": limit, "offset": offset},
		})
	}
}

type fact struct {
	ID    int    `json:"fact.id"`
	Value string `json:"fact.value"`
}

func factIDs(t *testing.T, result *xbrl.Result) []int {
	t.Helper()

	var facts []fact
	require.NoError(t, result.DecodeRecords(&facts))

	ids := make([]int, 0, len(facts))
	for _, f := range facts {
		ids = append(ids, f.ID)
	}

	return ids
}

func sequence(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}

	return out
}
