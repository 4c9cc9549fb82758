package oauthcord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Config holds the OAuth2 application credentials. It is copied at
// construction and never mutated afterwards.
type Config struct {
	// ClientID is the application's client id from the developer portal.
	ClientID int64
	// ClientSecret is the application's client secret.
	ClientSecret string
	// RedirectURI is the redirect URI the consuming application serves.
	// It must match one of the URIs configured on the developer portal.
	RedirectURI string
	// Scopes are the OAuth2 scopes to request, joined with a single
	// space on the wire (e.g. "identify guilds"). May be empty.
	Scopes []string
}

// Client performs the Discord OAuth2 authorization-code flow: it builds
// authorization URLs, exchanges codes for tokens, refreshes tokens, and
// fetches the authenticated user's profile and guilds.
//
// The consuming application owns the browser redirect endpoint; Client
// only issues the REST calls around it.
type Client struct {
	clientID    int64
	redirectURI string
	scope       string
	transport   *transport
	logger      Logger
}

// New creates a new Client from the given application credentials.
// ClientID, ClientSecret, and RedirectURI must be set.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == 0 {
		return nil, newError(KindInvalidConfig, 0, "", "ClientID must not be zero", nil)
	}
	if cfg.ClientSecret == "" {
		return nil, newError(KindInvalidConfig, 0, "", "ClientSecret must not be empty", nil)
	}
	if cfg.RedirectURI == "" {
		return nil, newError(KindInvalidConfig, 0, "", "RedirectURI must not be empty", nil)
	}

	cc := newClientConfig(opts...)
	t := newTransport(cfg, cc.httpClient, cc.logger)

	return &Client{
		clientID:    cfg.ClientID,
		redirectURI: cfg.RedirectURI,
		scope:       t.scope,
		transport:   t,
		logger:      cc.logger,
	}, nil
}

// AuthURL builds the authorization URL the user should be redirected to.
// It is pure: no I/O happens and the same inputs produce the same URL,
// with parameters in the order client_id, redirect_uri, scope,
// response_type, then state and prompt when supplied.
//
// The scope parameter is always present and renders empty when no scopes
// were configured. State content is not validated here; use
// GenerateState for a CSRF-safe value.
func (c *Client) AuthURL(state string, opts ...AuthOption) string {
	cfg := newAuthConfig(opts...)

	u := fmt.Sprintf("%s/api/oauth2/authorize?client_id=%s&redirect_uri=%s&scope=%s&response_type=code",
		discordBase,
		strconv.FormatInt(c.clientID, 10),
		url.QueryEscape(c.redirectURI),
		url.QueryEscape(c.scope),
	)
	if state != "" {
		u += "&state=" + url.QueryEscape(state)
	}
	if cfg.prompt != "" {
		u += "&prompt=" + url.QueryEscape(cfg.prompt)
	}
	return u
}

// ExchangeCode exchanges the authorization code received on the redirect
// endpoint for a token. An invalid or expired code fails with KindAuth;
// network and 5xx failures fail with KindTransport and KindAPI
// respectively. A TokenResponse is only returned when every required
// field was present.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if code == "" {
		return nil, newError(KindInvalidConfig, 0, "", "code must not be empty", nil)
	}

	grant := url.Values{}
	grant.Set("grant_type", "authorization_code")
	grant.Set("code", code)
	grant.Set("redirect_uri", c.redirectURI)
	if c.scope != "" {
		grant.Set("scope", c.scope)
	}

	token, err := c.transport.tokenRequest(ctx, grant)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("code exchanged", "expires_in", token.ExpiresIn, "scope", token.Scope)
	return token, nil
}

// RefreshToken exchanges a refresh token for a new token. Discord refresh
// tokens are single use; a consumed or invalid token fails with KindAuth.
//
// The returned TokenResponse supersedes the one the refresh token came
// from; holders must replace their reference.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	token, err := c.transport.refreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("token refreshed", "expires_in", token.ExpiresIn)
	return token, nil
}

// Identify fetches the authenticated user's profile with the given
// credential. The returned User holds the credential, so it can refresh
// the token and fetch guilds on its own. An expired, invalid, or revoked
// token fails with KindAuth and no User is constructed.
func (c *Client) Identify(ctx context.Context, token *TokenResponse) (*User, error) {
	if token == nil {
		return nil, newError(KindInvalidConfig, 0, "", "token must not be nil", nil)
	}
	return c.identify(ctx, token)
}

// IdentifyToken is like Identify but takes a bare access token, for
// callers that persisted only the token string. The resulting User holds
// a credential without a refresh token, so Refresh on it fails with
// KindInvalidConfig.
func (c *Client) IdentifyToken(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, newError(KindInvalidConfig, 0, "", "accessToken must not be empty", nil)
	}
	return c.identify(ctx, &TokenResponse{AccessToken: accessToken})
}

func (c *Client) identify(ctx context.Context, token *TokenResponse) (*User, error) {
	body, err := c.transport.getBearer(ctx, "/users/@me", token.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := newUser(body, token, c.transport)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("user identified", "id", user.ID, "username", user.Username)
	return user, nil
}

// Guilds fetches the raw guild list for the given access token. It is the
// low-level escape hatch parallel to User.FetchGuilds for callers that
// want the undecoded payloads.
func (c *Client) Guilds(ctx context.Context, accessToken string) ([]map[string]any, error) {
	if accessToken == "" {
		return nil, newError(KindInvalidConfig, 0, "", "accessToken must not be empty", nil)
	}

	body, err := c.transport.getBearer(ctx, "/users/@me/guilds", accessToken)
	if err != nil {
		return nil, err
	}

	var guilds []map[string]any
	if err := json.Unmarshal(body, &guilds); err != nil {
		return nil, newError(KindTransport, 0, "", fmt.Sprintf("parse guilds response: %v", err), err)
	}
	return guilds, nil
}

// Close releases the transport's pooled connections. It is idempotent and
// should run on all exit paths, typically via defer.
func (c *Client) Close() {
	c.transport.close()
}
