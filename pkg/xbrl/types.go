package xbrl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xbrlus/xbrlapi/internal/constants"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building an xbrl client.
//
// BaseURL, ClientID, ClientSecret and Platform are required. Username and
// Password are only needed when the token store holds no usable tokens.
//
// # Platform
//
// The API keys refresh token lineages by platform, so two clients sharing an
// account must not share a platform. Providers in internal/config append a
// random per-instance suffix unless told otherwise.
//
// # Timeouts, retries, and TLS
//
// Per-call timeouts should be controlled via the context passed to Call.
// Transport retries (connection errors, 429 and 5xx) can be tuned with
// RetryMax, RetryWaitMin and RetryWaitMax. TLS peer verification is on unless
// InsecureSkipVerify is set.
type Config struct {
	// Required fields
	BaseURL      string `mapstructure:"base_url"      yaml:"base_url"`
	ClientID     string `mapstructure:"client_id"     yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	Platform     string `mapstructure:"platform"      yaml:"platform"`

	// Password grant credentials
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// Optional configurations
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"         yaml:"http_timeout,omitempty"`
	RetryMax           int           `mapstructure:"retry_max"            yaml:"retry_max,omitempty"`
	RetryWaitMin       time.Duration `mapstructure:"retry_wait_min"       yaml:"retry_wait_min,omitempty"`
	RetryWaitMax       time.Duration `mapstructure:"retry_wait_max"       yaml:"retry_wait_max,omitempty"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty"`
	UserAgent          string        `mapstructure:"user_agent"           yaml:"user_agent,omitempty"`
	Debug              bool          `mapstructure:"debug"                yaml:"debug,omitempty"`

	// Logger: optional structured logger used by the HTTP layer and the engine.
	Logger Logger `mapstructure:"-" yaml:"-"`
}

// RequiredKeys lists the configuration keys that must always be present.
var RequiredKeys = []string{"base_url", "client_id", "client_secret", "platform"}

// Validate reports every missing required key in one ConfigurationError.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigurationError{MissingKeys: RequiredKeys}
	}

	values := map[string]string{
		"base_url":      c.BaseURL,
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"platform":      c.Platform,
	}

	var missing []string

	for _, key := range RequiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return &ConfigurationError{MissingKeys: missing}
	}

	return nil
}

// HasPasswordCredentials reports whether both username and password are set.
func (c *Config) HasPasswordCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// Credentials is the bearer/refresh token pair. An empty string means absent.
type Credentials struct {
	AccessToken  string `json:"access_token"  yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
}

// Complete reports whether both tokens are present.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// TokenStore persists the credential pair outside the client.
type TokenStore interface {
	Get(ctx context.Context) (Credentials, error)
	Set(ctx context.Context, creds Credentials) error
}

// ConfigProvider resolves the client configuration.
type ConfigProvider interface {
	Resolve(ctx context.Context) (*Config, error)
}

// ErrorHandler is notified of every error the client surfaces to a caller.
// It cannot swallow the error.
type ErrorHandler interface {
	HandleError(ctx context.Context, err error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(ctx context.Context, err error)

// HandleError implements ErrorHandler.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, err error) {
	f(ctx, err)
}

// Paging is the server-supplied page descriptor.
type Paging struct {
	Count  int `json:"count"  yaml:"count"`
	Limit  int `json:"limit"  yaml:"limit"`
	Offset int `json:"offset" yaml:"offset"`
}

// Result is the answer to a Call. For paginated endpoints Data holds the
// records of every page fetched, in server order, and Paging the merged page
// descriptor. For anything else Paging is nil and Body holds the JSON value
// exactly as received.
type Result struct {
	Data   []json.RawMessage
	Paging *Paging
	Body   json.RawMessage

	// Extra keeps top-level members of the first page other than data and paging.
	Extra map[string]json.RawMessage
}

// IsPaginated reports whether the result was assembled from paged responses.
func (r *Result) IsPaginated() bool {
	return r != nil && r.Paging != nil
}

// JSON renders the result as a single JSON document.
func (r *Result) JSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	if !r.IsPaginated() {
		if len(r.Body) == 0 {
			return []byte("null"), nil
		}

		return r.Body, nil
	}

	doc := make(map[string]interface{}, len(r.Extra)+2)
	for key, value := range r.Extra {
		doc[key] = value
	}

	data := r.Data
	if data == nil {
		data = []json.RawMessage{}
	}

	doc["data"] = data
	doc["paging"] = r.Paging

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	return out, nil
}

// Decode unmarshals the rendered result into v.
func (r *Result) Decode(v interface{}) error {
	raw, err := r.JSON()
	if err != nil {
		return err
	}

	err = json.Unmarshal(raw, v)
	if err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	return nil
}

// DecodeRecords unmarshals the assembled records into v, which should point
// to a slice.
func (r *Result) DecodeRecords(v interface{}) error {
	data := r.Data
	if data == nil {
		data = []json.RawMessage{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	err = json.Unmarshal(raw, v)
	if err != nil {
		return fmt.Errorf("decoding records: %w", err)
	}

	return nil
}

// RawResponse is returned by raw-header calls.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CallRequest describes one logical API call.
type CallRequest struct {
	// Route is the path below the base URL, e.g. "/api/v1/fact/search".
	Route string
	// Params are sent as the query string for GET and as the body otherwise.
	Params Params
	// Method is GET, POST, PUT or DELETE. Empty means GET.
	Method string
	// EncodeJSON sends a non-GET body as JSON instead of a form.
	EncodeJSON bool
	// MaxRecords caps assembly. Zero means the library default; a max_limit
	// parameter overrides both.
	MaxRecords int
	// ForwardHeaders receives every response header in raw-header mode.
	ForwardHeaders http.Header
}

// Client is the public surface of an XBRL US API client.
type Client interface {
	// Call performs an authenticated, possibly multi-page request.
	Call(ctx context.Context, req *CallRequest) (*Result, error)
	// CallRaw performs exactly one authenticated request and returns the
	// response headers and body untouched.
	CallRaw(ctx context.Context, req *CallRequest) (*RawResponse, error)

	Get(ctx context.Context, route string, params Params) (*Result, error)
	Post(ctx context.Context, route string, params Params) (*Result, error)
	Put(ctx context.Context, route string, params Params) (*Result, error)
	Delete(ctx context.Context, route string, params Params) (*Result, error)

	// Login forces a password grant, replacing any held tokens.
	Login(ctx context.Context) error
	// Logout clears the held and stored tokens.
	Logout(ctx context.Context) error
	// Credentials returns the token pair currently held by the client.
	Credentials() Credentials
}

// DefaultMaxRecords is the record cap applied when a call sets none.
const DefaultMaxRecords = constants.DefaultMaxRecords
