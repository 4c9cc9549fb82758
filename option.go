package oauthcord

import (
	"net/http"
	"strings"
)

// Logger defines the interface for structured logging used by the client.
// Implementations should treat args as key-value pairs (e.g. "key1", val1, "key2", val2).
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg string, args ...any)
	// Info logs a message at info level.
	Info(msg string, args ...any)
	// Warn logs a message at warn level.
	Warn(msg string, args ...any)
	// Error logs a message at error level.
	Error(msg string, args ...any)
}

// noopLogger is a Logger that discards all log messages.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, args ...any) {}
func (n *noopLogger) Info(msg string, args ...any)  {}
func (n *noopLogger) Warn(msg string, args ...any)  {}
func (n *noopLogger) Error(msg string, args ...any) {}

// Option is a functional option for configuring a Client.
type Option func(*clientConfig)

// clientConfig holds construction-time knobs for the Client.
type clientConfig struct {
	httpClient *http.Client
	logger     Logger
}

// newClientConfig creates a new clientConfig with sensible defaults
// and applies the given options.
func newClientConfig(opts ...Option) *clientConfig {
	cfg := &clientConfig{
		httpClient: newDefaultHTTPClient(),
		logger:     &noopLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg
}

// WithHTTPClient returns an Option that sets the HTTP client used for all
// API calls. This is the place to configure a per-call timeout or a custom
// transport. If client is nil, the library default HTTP client is kept
// (10s timeout).
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		if client != nil {
			cfg.httpClient = client
		}
	}
}

// WithLogger returns an Option that sets the logger used by the client.
// If l is nil, a no-op logger is used.
func WithLogger(l Logger) Option {
	return func(cfg *clientConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// AuthOption is a functional option for configuring the authorization URL.
type AuthOption func(*authConfig)

// authConfig holds optional parameters for AuthURL.
type authConfig struct {
	prompt string
}

// newAuthConfig creates a new authConfig and applies the given options.
func newAuthConfig(opts ...AuthOption) *authConfig {
	cfg := &authConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg
}

// WithPrompt returns an AuthOption that sets the prompt parameter of the
// authorization URL. Discord accepts "consent" (always show the
// authorization screen) and "none" (skip it when already authorized).
func WithPrompt(prompt string) AuthOption {
	return func(cfg *authConfig) {
		cfg.prompt = prompt
	}
}

// sensitiveKeys lists substrings that indicate a field value should be masked.
var sensitiveKeys = []string{"token", "secret", "key", "password", "code"}

// maskSensitive masks the value if the key contains a sensitive substring
// (case-insensitive). Sensitive values are returned as the first 4 characters
// followed by "****". If the value has fewer than 4 characters, "****" is returned.
// Non-sensitive values are returned unchanged.
//
// Unlike maskToken (which returns "" for empty input), maskSensitive returns
// "****" for empty sensitive values to indicate the key was present in the URL.
func maskSensitive(key, value string) string {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			if len(value) >= 4 {
				return value[:4] + "****"
			}
			return "****"
		}
	}
	return value
}

// maskToken masks a token string for safe display.
// If s is empty, it returns an empty string.
// If s has 4 or more characters, it returns the first 4 followed by "****".
// If s has fewer than 4 characters, it returns "****" to avoid leaking short values.
func maskToken(s string) string {
	if s == "" {
		return ""
	}
	if len(s) >= 4 {
		return s[:4] + "****"
	}
	return "****"
}
