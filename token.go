package oauthcord

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TokenResponse represents a successful response from the Discord token
// endpoint. It is an immutable value object: refreshing produces a new
// TokenResponse and the holder replaces its reference.
type TokenResponse struct {
	// AccessToken is the token used to access the Discord API on the
	// user's behalf.
	AccessToken string
	// TokenType is the token type, "Bearer" in practice.
	TokenType string
	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int
	// RefreshToken is the single-use token used to obtain a new access
	// token.
	RefreshToken string
	// Scope is the space-delimited set of scopes the token was granted.
	Scope string
	// ExpiresAt is the absolute time when the access token expires,
	// computed at construction.
	ExpiresAt time.Time

	raw map[string]any
}

// tokenFields lists the fields the token endpoint must include in every
// successful response. A missing field is a protocol error, never a
// zero-value fallback.
var tokenFields = []string{"access_token", "token_type", "expires_in", "refresh_token", "scope"}

// newTokenResponse parses a token endpoint response body. It fails with a
// KindTransport error when the body is not JSON or any required field is
// absent.
func newTokenResponse(body []byte) (*TokenResponse, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, newError(KindTransport, 0, "", fmt.Sprintf("parse token response: %v", err), err)
	}
	for _, field := range tokenFields {
		if _, ok := raw[field]; !ok {
			return nil, newError(KindTransport, 0, "", fmt.Sprintf("token response missing field %q", field), nil)
		}
	}

	accessToken, _ := raw["access_token"].(string)
	tokenType, _ := raw["token_type"].(string)
	refreshToken, _ := raw["refresh_token"].(string)
	scope, _ := raw["scope"].(string)
	expiresIn := toInt(raw["expires_in"])

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    tokenType,
		ExpiresIn:    expiresIn,
		RefreshToken: refreshToken,
		Scope:        scope,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
		raw:          raw,
	}, nil
}

// JSON returns the original decoded payload for this response, including
// any fields not modeled by this library.
func (t *TokenResponse) JSON() map[string]any {
	return t.raw
}

// IsExpired reports whether the access token has expired.
// It returns true when ExpiresAt is the zero value or is not after the
// current time.
func (t *TokenResponse) IsExpired() bool {
	return t.isExpiredAt(time.Now())
}

func (t *TokenResponse) isExpiredAt(now time.Time) bool {
	return t.ExpiresAt.IsZero() || !t.ExpiresAt.After(now)
}

// String returns a sanitized string representation of the TokenResponse.
// Access and refresh tokens are masked to avoid exposing sensitive values.
func (t *TokenResponse) String() string {
	return fmt.Sprintf("TokenResponse{AccessToken:%q, TokenType:%q, ExpiresIn:%d, RefreshToken:%q, Scope:%q}",
		maskToken(t.AccessToken),
		t.TokenType,
		t.ExpiresIn,
		maskToken(t.RefreshToken),
		t.Scope,
	)
}

// toInt converts a decoded JSON value to an int, tolerating the numeric
// and string encodings seen in the wild.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case int:
		return n
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
