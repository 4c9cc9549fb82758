package oauthcord

import (
	"fmt"
	"time"
)

// Kind categorizes the type of error that occurred during an OAuth2 operation.
type Kind string

const (
	// KindTransport indicates a network-level failure or a malformed
	// response (timeout, connection refused, non-JSON body).
	KindTransport Kind = "transport"
	// KindRateLimited indicates Discord returned HTTP 429 and the single
	// automatic retry was also rate limited.
	KindRateLimited Kind = "rate_limited"
	// KindAuth indicates an invalid, expired, or revoked token or
	// authorization code (HTTP 401/403, or invalid_grant from the token
	// endpoint).
	KindAuth Kind = "auth"
	// KindAPI indicates any other non-2xx response from the Discord API.
	KindAPI Kind = "api"
	// KindInvalidConfig indicates the client configuration or a call
	// argument is invalid or incomplete.
	KindInvalidConfig Kind = "invalid_config"
)

// Error represents a structured error from an OAuth2 operation.
// It carries the error kind, the HTTP status code when one was received,
// an optional Discord error code, a human-readable message, and an
// optional wrapped error.
type Error struct {
	// Kind categorizes the error.
	Kind Kind
	// StatusCode is the HTTP status code of the response, 0 when no
	// response was received.
	StatusCode int
	// Code is the error code from Discord's error payload when present,
	// e.g. "invalid_grant" from the token endpoint or the numeric JSON
	// error code ("50035") from the REST API.
	Code string
	// Message is a human-readable description of the error. When an HTTP
	// status code or request URL is available, it is included in
	// sanitized form (e.g. "HTTP 400, POST https://discord.com/api/...:
	// invalid_grant").
	Message string
	// RetryAfter is how long Discord asked to wait before retrying.
	// Only set when Kind is KindRateLimited.
	RetryAfter time.Duration
	// Err is the underlying error, if any.
	Err error
}

// Error returns the string representation of the error in the format:
//
//	"oauthcord kind: message"
func (e *Error) Error() string {
	return fmt.Sprintf("oauthcord %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, allowing errors.Unwrap to traverse
// the error chain.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this Error by Kind.
// This enables errors.Is to match Error values against sentinel errors.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinel errors for use with errors.Is. Each sentinel corresponds to a Kind.
var (
	// ErrTransport is a sentinel error for network-level failures and
	// malformed responses.
	ErrTransport = &Error{Kind: KindTransport}
	// ErrRateLimited is a sentinel error for rate-limited requests.
	ErrRateLimited = &Error{Kind: KindRateLimited}
	// ErrAuth is a sentinel error for invalid, expired, or revoked
	// credentials.
	ErrAuth = &Error{Kind: KindAuth}
	// ErrAPI is a sentinel error for other Discord API errors.
	ErrAPI = &Error{Kind: KindAPI}
	// ErrInvalidConfig is a sentinel error for invalid configurations.
	ErrInvalidConfig = &Error{Kind: KindInvalidConfig}
)

// newError creates a new Error with the given parameters.
// It is an internal helper to simplify error construction.
func newError(kind Kind, status int, code, message string, err error) *Error {
	return &Error{
		Kind:       kind,
		StatusCode: status,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}
