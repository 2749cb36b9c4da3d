package constants

import "errors"

// Configuration errors.
var (
	ErrNoBaseURL           = errors.New("no base URL configured")
	ErrNoConfigProvider    = errors.New("no config provider supplied")
	ErrMissingCredentials  = errors.New("username or password missing and no stored token available")
	ErrTokensNotObtained   = errors.New("unable to obtain the access or refresh token")
	ErrInvalidMaxLimit     = errors.New("invalid max_limit parameter")
	ErrUnsupportedMethod   = errors.New("unsupported HTTP method")
	ErrRouteRequired       = errors.New("no route defined")
	ErrInvalidParamFormat  = errors.New("parameter must be in key=value form")
	ErrInvalidOutputFormat = errors.New("invalid output format")
)

// Call engine errors.
var (
	ErrContinuationUnsupported = errors.New("cannot request the next page")
	ErrMissingFieldsParam      = errors.New("route has no fields parameter to carry the offset")
	ErrNoEntityPath            = errors.New("no entity path after the API version segment")
	ErrMalformedResponse       = errors.New("malformed response body")
	ErrIncompleteTokenResponse = errors.New("token response missing access_token or refresh_token")
)

// Token store errors.
var (
	ErrNATSConnRequired = errors.New("NATS connection required for NATS token store")
	ErrTokenFileInvalid = errors.New("token file is not valid YAML")
)
