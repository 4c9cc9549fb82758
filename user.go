package oauthcord

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// User represents the authenticated Discord user as returned by
// GET /users/@me. It holds the credential it was fetched with, so the
// token can be refreshed and the user's guilds fetched without going back
// through the Client.
//
// A User is not safe for concurrent use: Refresh and FetchGuilds replace
// the held credential and the guild cache non-atomically, and concurrent
// calls race with last-writer-wins semantics.
type User struct {
	// ID is the user's snowflake.
	ID snowflake.ID
	// Username is the user's name, not unique across the platform.
	Username string
	// Discriminator is the 4-digit tag ("0001"), "0" for users migrated
	// to unique usernames. Kept as the string Discord sends to preserve
	// leading zeros.
	Discriminator string
	// AvatarHash is the user's avatar hash, "" when the user has none.
	AvatarHash string
	// MFAEnabled reports whether the user has two-factor auth enabled.
	// Only sent with the identify scope.
	MFAEnabled bool
	// Email is the user's email, "" unless the email scope was granted.
	Email string
	// Verified reports whether the email has been verified. Only sent
	// with the email scope.
	Verified bool

	token     *TokenResponse
	transport *transport
	guilds    []*Guild // nil means never fetched; empty means member of zero guilds
	raw       map[string]any
}

// userPayload mirrors the wire shape of GET /users/@me.
type userPayload struct {
	ID            snowflake.ID `json:"id"`
	Username      string       `json:"username"`
	Discriminator string       `json:"discriminator"`
	Avatar        string       `json:"avatar"`
	MFAEnabled    bool         `json:"mfa_enabled"`
	Email         string       `json:"email"`
	Verified      bool         `json:"verified"`
}

// newUser parses a /users/@me response body and binds the resulting User
// to the supplied credential and transport.
func newUser(body []byte, token *TokenResponse, t *transport) (*User, error) {
	var p userPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, newError(KindTransport, 0, "", fmt.Sprintf("parse user response: %v", err), err)
	}
	if p.ID == 0 {
		return nil, newError(KindTransport, 0, "", "user response missing field \"id\"", nil)
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &User{
		ID:            p.ID,
		Username:      p.Username,
		Discriminator: p.Discriminator,
		AvatarHash:    p.Avatar,
		MFAEnabled:    p.MFAEnabled,
		Email:         p.Email,
		Verified:      p.Verified,
		token:         token,
		transport:     t,
		raw:           raw,
	}, nil
}

// JSON returns the original decoded payload for this user, including any
// fields not modeled by this library.
func (u *User) JSON() map[string]any {
	return u.raw
}

// AccessToken returns the access token of the currently held credential.
func (u *User) AccessToken() string {
	if u.token == nil {
		return ""
	}
	return u.token.AccessToken
}

// RefreshToken returns the refresh token of the currently held credential,
// "" when the User was identified from a bare access token.
func (u *User) RefreshToken() string {
	if u.token == nil {
		return ""
	}
	return u.token.RefreshToken
}

// Token returns the currently held credential. Refresh replaces it.
func (u *User) Token() *TokenResponse {
	return u.token
}

// AvatarURL returns the CDN URL for the user's avatar, "" when the user
// has no avatar. Animated avatars (hash prefixed with "a_") resolve to
// gif, all others to png.
func (u *User) AvatarURL() string {
	return assetURL("avatars", uint64(u.ID), u.AvatarHash)
}

// Equal reports whether other refers to the same Discord user. Identity
// is defined by ID alone.
func (u *User) Equal(other *User) bool {
	return other != nil && u.ID == other.ID
}

// String returns the user's tag in "name#discriminator" form.
func (u *User) String() string {
	return fmt.Sprintf("%s#%s", u.Username, u.Discriminator)
}

// Refresh exchanges the held refresh token for a new credential using the
// client credentials stored on the transport, replacing the held
// TokenResponse on success. Discord refresh tokens are single use; a
// token that was already consumed fails with KindAuth.
func (u *User) Refresh(ctx context.Context) (*TokenResponse, error) {
	if u.RefreshToken() == "" {
		return nil, newError(KindInvalidConfig, 0, "", "user holds no refresh token", nil)
	}
	token, err := u.transport.refreshToken(ctx, u.RefreshToken())
	if err != nil {
		return nil, err
	}
	u.token = token
	return token, nil
}

// FetchGuilds returns the guilds the user is a member of. When refresh is
// false and a guild list was fetched before, the cached list is returned
// without I/O; otherwise GET /users/@me/guilds is issued with the user's
// current access token and the cache is replaced wholesale.
//
// A 401 fails with KindAuth; the caller is expected to call Refresh and
// retry, no automatic refresh happens here.
func (u *User) FetchGuilds(ctx context.Context, refresh bool) ([]*Guild, error) {
	if !refresh && u.guilds != nil {
		return u.guilds, nil
	}

	body, err := u.transport.getBearer(ctx, "/users/@me/guilds", u.AccessToken())
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, newError(KindTransport, 0, "", fmt.Sprintf("parse guilds response: %v", err), err)
	}

	guilds := make([]*Guild, 0, len(items))
	for _, item := range items {
		guild, err := newGuild(item, u)
		if err != nil {
			return nil, err
		}
		guilds = append(guilds, guild)
	}
	u.guilds = guilds
	return guilds, nil
}

// Guilds returns the cached guild list, nil when FetchGuilds has not run.
func (u *User) Guilds() []*Guild {
	return u.guilds
}

// assetURL derives a CDN asset URL for the given kind ("avatars" or
// "icons"), owner ID, and asset hash. It returns "" when the hash is
// empty.
func assetURL(kind string, id uint64, hash string) string {
	if hash == "" {
		return ""
	}
	ext := "png"
	if strings.HasPrefix(hash, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("%s/%s/%d/%s.%s", cdnBase, kind, id, hash, ext)
}
