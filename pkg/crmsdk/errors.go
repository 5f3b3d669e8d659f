package crmsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeAuthRequired       = "auth_required"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeSessionExpired     = "session_expired"
	ErrorCodeTokenRefresh       = "token_refresh_failed"
	ErrorCodeRoleSwitch         = "role_switch_failed"
	ErrorCodeLoginFailed        = "login_failed"
	ErrorCodeRequestFailed      = "request_failed"
)

// tokenInvalidityMarkers are the backend message keys that mean the session
// JWT is no longer usable. Any of these (or a plain 401) forces teardown.
var tokenInvalidityMarkers = map[string]struct{}{
	"Invalid or Expired Token": {},
	"Token Expired":            {},
	"Invalid Token":            {},
	"common.invalid_request":   {},
}

// ============================================================================
// AuthError - authentication-class failures
// ============================================================================

// AuthError represents an authentication-class failure. Errors of this kind
// always have teardown performed before they propagate, so callers never
// need to clean up session state themselves.
type AuthError struct {
	// Code is the stable error code (e.g. "invalid_token")
	Code string

	// Description is a human-readable description of the error
	Description string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

var (
	// ErrAuthRequired is returned when a request requiring authentication
	// is attempted with no stored access token. Nothing is transmitted.
	ErrAuthRequired = &AuthError{
		Code:        ErrorCodeAuthRequired,
		Description: "authentication required",
	}

	// ErrInvalidToken is returned when the backend rejects the session JWT
	// (HTTP 401 or a token-invalidity message key).
	ErrInvalidToken = &AuthError{
		Code:        ErrorCodeInvalidToken,
		Description: "invalid or expired token",
	}

	// ErrInvalidCredentials is returned when the token endpoint response
	// lacks an access token or identity token.
	ErrInvalidCredentials = &AuthError{
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}

	// ErrSessionExpired is returned when a session liveness check fails.
	ErrSessionExpired = &AuthError{
		Code:        ErrorCodeSessionExpired,
		Description: "session expired",
	}

	// ErrTokenRefresh is returned when a refresh grant fails for any reason.
	ErrTokenRefresh = &AuthError{
		Code:        ErrorCodeTokenRefresh,
		Description: "token refresh failed",
	}

	// ErrRoleSwitch is returned when the switch-role endpoint does not
	// return a new session credential.
	ErrRoleSwitch = &AuthError{
		Code:        ErrorCodeRoleSwitch,
		Description: "role switch did not return a new credential",
	}

	// ErrLoginFailed wraps unexpected failures during the login workflow.
	// Failures with a known cause propagate unwrapped instead.
	ErrLoginFailed = &AuthError{
		Code:        ErrorCodeLoginFailed,
		Description: "login failed",
	}

	// ErrRequestFailed is the generic failure used when the backend gives
	// no structured error payload.
	ErrRequestFailed = &AuthError{
		Code:        ErrorCodeRequestFailed,
		Description: "request failed",
	}
)

// ============================================================================
// ValidationError - local input failures
// ============================================================================

// ValidationError reports missing or invalid local input. It is returned
// before any network call is made and has no side effects.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ============================================================================
// NetworkError - transport failures
// ============================================================================

// NetworkError wraps a transport-level failure (connection refused, DNS,
// timeout). The SDK does not retry; retry policy belongs to the caller.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// ============================================================================
// APIError - structured backend error payloads
// ============================================================================

// APIError carries a structured error payload from the backend verbatim so
// callers can render backend-provided detail.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// MessageKey is the backend's machine-readable message key, if any
	MessageKey string `json:"messageKey"`

	// Message is the backend's human-readable message, if any
	Message string `json:"message"`

	// Raw is the unmodified response body
	Raw json.RawMessage `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.MessageKey != "" {
		return e.MessageKey
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ============================================================================
// Classification Helpers
// ============================================================================

// parseAPIError decodes a non-2xx response body into an APIError. It returns
// nil when the body carries no structured error fields.
func parseAPIError(statusCode int, body []byte) *APIError {
	if len(body) == 0 {
		return nil
	}

	apiErr := APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return nil
	}
	if apiErr.Message == "" && apiErr.MessageKey == "" {
		return nil
	}

	apiErr.Raw = append(json.RawMessage(nil), body...)
	return &apiErr
}

// isTokenInvalidity reports whether the response means the session JWT is
// dead. The v2 and user-store backends put the marker in "message" rather
// than "messageKey", so both fields are checked.
func isTokenInvalidity(statusCode int, apiErr *APIError) bool {
	if statusCode == http.StatusUnauthorized {
		return true
	}
	if apiErr == nil {
		return false
	}
	if _, ok := tokenInvalidityMarkers[apiErr.MessageKey]; ok {
		return true
	}
	_, ok := tokenInvalidityMarkers[apiErr.Message]
	return ok
}
