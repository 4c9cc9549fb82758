package oauthcord

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// GenerateState generates a cryptographically random state string for use
// as a CSRF token in the authorization URL. It returns a 43-character
// base64url-encoded (no padding) string derived from 32 random bytes.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateState performs a timing-safe comparison of the state sent to
// the authorization URL and the state received on the redirect. It
// returns nil if they match, or an Error with Kind KindInvalidConfig if
// either value is empty or the values do not match.
func ValidateState(expected, actual string) error {
	if expected == "" || actual == "" {
		return &Error{
			Kind:    KindInvalidConfig,
			Message: "state: expected and actual must not be empty",
		}
	}
	expectedHash := sha256.Sum256([]byte(expected))
	actualHash := sha256.Sum256([]byte(actual))
	if subtle.ConstantTimeCompare(expectedHash[:], actualHash[:]) != 1 {
		return &Error{
			Kind:    KindInvalidConfig,
			Message: "state mismatch",
		}
	}
	return nil
}
