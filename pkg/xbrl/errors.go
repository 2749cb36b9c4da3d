package xbrl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xbrlus/xbrlapi/internal/constants"
)

// ErrorCode classifies the error descriptions the API returns.
type ErrorCode int

// Known server error codes. Anything unrecognised is ErrorCodeUnclassified.
const (
	ErrorCodeUnclassified ErrorCode = iota
	ErrorCodeBadOrExpiredToken
	ErrorCodeInvalidRefreshToken
)

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeBadOrExpiredToken:
		return "bad_or_expired_token"
	case ErrorCodeInvalidRefreshToken:
		return "invalid_refresh_token"
	default:
		return "unclassified"
	}
}

// ClassifyError maps a server error_description to an ErrorCode.
func ClassifyError(description string) ErrorCode {
	switch strings.TrimSpace(description) {
	case constants.DescriptionBadOrExpiredToken:
		return ErrorCodeBadOrExpiredToken
	case constants.DescriptionInvalidRefreshToken:
		return ErrorCodeInvalidRefreshToken
	default:
		return ErrorCodeUnclassified
	}
}

// ServerError is the {error, error_description} payload of a failed request.
type ServerError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Code classifies the payload.
func (e ServerError) Code() ErrorCode {
	return ClassifyError(e.Description)
}

// ConfigurationError reports missing or unusable configuration.
type ConfigurationError struct {
	MissingKeys []string
	Reason      string
	Err         error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	switch {
	case len(e.MissingKeys) > 0:
		return "configuration error: missing required keys: " + strings.Join(e.MissingKeys, ", ")
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("configuration error: %v", e.Err)
	case e.Reason != "":
		return "configuration error: " + e.Reason
	default:
		return "configuration error"
	}
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// AuthenticationError reports a rejected password or refresh grant.
type AuthenticationError struct {
	Grant       string
	Code        string
	Description string
	Err         error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	msg := "authentication error"
	if e.Grant != "" {
		msg += " (" + e.Grant + " grant)"
	}

	switch {
	case e.Description != "":
		msg += ": " + e.Description
	case e.Code != "":
		msg += ": " + e.Code
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// APIError reports a business call that still carried an error payload after
// the attempt budget was spent.
type APIError struct {
	Route       string
	Code        string
	Description string
	Attempts    int
	Body        json.RawMessage
}

// Error implements the error interface.
func (e *APIError) Error() string {
	desc := e.Description
	if desc == "" {
		desc = e.Code
	}

	return fmt.Sprintf("API error on %s after %d attempt(s): %s", e.Route, e.Attempts, desc)
}

// ErrorCode classifies the error description.
func (e *APIError) ErrorCode() ErrorCode {
	return ClassifyError(e.Description)
}

// TransportError reports a failed HTTP exchange or an unreadable response.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error: %s %s (status %d): %v", e.Method, e.URL, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConfigurationError checks if the error is a configuration error.
func IsConfigurationError(err error) bool {
	configErr := &ConfigurationError{}

	return errors.As(err, &configErr)
}

// IsAuthenticationError checks if the error is an authentication error.
func IsAuthenticationError(err error) bool {
	authErr := &AuthenticationError{}

	return errors.As(err, &authErr)
}

// IsAPIError checks if the error is an API error.
func IsAPIError(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr)
}

// IsTransportError checks if the error is a transport error.
func IsTransportError(err error) bool {
	transportErr := &TransportError{}

	return errors.As(err, &transportErr)
}

// ParseServerError extracts an error payload from a response body. It returns
// false when the body is not a JSON object or has no error member.
func ParseServerError(data []byte) (*ServerError, bool) {
	var members map[string]json.RawMessage

	err := json.Unmarshal(data, &members)
	if err != nil {
		return nil, false
	}

	raw, ok := members["error"]
	if !ok {
		return nil, false
	}

	serverErr := &ServerError{}

	// error is normally a string; keep the raw text for anything else
	err = json.Unmarshal(raw, &serverErr.Error)
	if err != nil {
		serverErr.Error = string(raw)
	}

	if desc, ok := members["error_description"]; ok {
		err = json.Unmarshal(desc, &serverErr.Description)
		if err != nil {
			serverErr.Description = string(desc)
		}
	}

	return serverErr, true
}
