package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and token files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as NATS connects.
	ShortHTTPTimeout = 10 * time.Second
)

// Transport-level retry limits. These cover connection errors, 429 and 5xx
// responses and are independent of the per-call attempt budget below.
const (
	// DefaultRetryMax is the default maximum number of transport retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait between transport retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait between transport retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Call engine limits.
const (
	// DefaultMaxRecords caps the number of records assembled by one call.
	DefaultMaxRecords = 10000

	// MaxCallAttempts is the total number of attempts for one page, the
	// first request included.
	MaxCallAttempts = 3

	// DefaultCallRetryWait is the first pause before repeating a call that
	// failed with an unclassified server error.
	DefaultCallRetryWait = 250 * time.Millisecond

	// DefaultCallRetryWaitMax caps that pause.
	DefaultCallRetryWaitMax = 2 * time.Second

	// MergedOffset is written to paging.offset once more than one page has
	// been merged into a result.
	MergedOffset = -1
)

// API routes and parameter names.
const (
	// TokenRoute is the OAuth2 token endpoint, relative to the base URL.
	TokenRoute = "/oauth2/token"

	// ParamMaxLimit is the reserved call parameter that overrides the record
	// cap. It is never sent to the server.
	ParamMaxLimit = "max_limit"

	// ParamFields is the field selection parameter continuation offsets are
	// injected into.
	ParamFields = "fields"

	// ParamGrantType marks a token grant request.
	ParamGrantType = "grant_type"

	// GrantTypePassword is the resource owner password grant.
	GrantTypePassword = "password"

	// GrantTypeRefreshToken is the refresh token grant.
	GrantTypeRefreshToken = "refresh_token"
)

// Server error descriptions the engine knows how to recover from.
const (
	// DescriptionBadOrExpiredToken is returned when the bearer token expired.
	DescriptionBadOrExpiredToken = "Bad or expired token"

	// DescriptionInvalidRefreshToken is returned when the refresh token was rejected.
	DescriptionInvalidRefreshToken = "Invalid refresh token"
)

// Platform suffix range. Two numbers in [PlatformSuffixMin, PlatformSuffixMax]
// are appended to the configured platform for every client instance.
const (
	PlatformSuffixMin = 10
	PlatformSuffixMax = 99
)

// HTTP headers.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"
	HeaderCorrelationID = "X-Correlation-ID"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	// DefaultUserAgent is sent unless overridden.
	DefaultUserAgent = "xbrlapi-go/1.0"
)

// Storage defaults.
const (
	// DefaultConfigDirName is the directory under $HOME holding config and tokens.
	DefaultConfigDirName = ".xbrlus"

	// DefaultTokenFileName is the file token store name inside the config dir.
	DefaultTokenFileName = "tokens.yml"

	// DefaultNATSBucket is the JetStream key/value bucket for shared tokens.
	DefaultNATSBucket = "xbrlus_tokens"

	// EnvPrefix is the prefix for environment configuration.
	EnvPrefix = "XBRLUS"
)

// Display constants.
const (
	// MaskedSecret replaces secrets in printed configuration.
	MaskedSecret = "***"

	// FormatJSON selects JSON output.
	FormatJSON = "json"

	// FormatYAML selects YAML output.
	FormatYAML = "yaml"

	// StringTruncationLimit is the number of leading characters shown of a token.
	StringTruncationLimit = 4
)
