package oauthcord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Discord endpoint constants.
const (
	discordBase = "https://discord.com"
	// defaultAPIBase is the versioned REST base URL. The authorization
	// URL is built against discordBase directly; browsers are redirected
	// to the unversioned /api/oauth2/authorize path.
	defaultAPIBase = discordBase + "/api/v10"
	cdnBase        = "https://cdn.discordapp.com"
)

// newDefaultHTTPClient returns a new http.Client with a default timeout of 10 seconds.
func newDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// maskURL masks sensitive query parameter values in a URL for safe logging.
// Parameter values whose keys match sensitive substrings (token, secret, key, etc.)
// are masked using the same rules as maskSensitive.
// If the URL cannot be parsed, it is returned unchanged.
func maskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if len(q) == 0 {
		return rawURL
	}
	// Build the query string manually to avoid percent-encoding the masked
	// asterisks, producing a human-readable URL suitable for logging.
	// Keys are sorted for deterministic output across calls.
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, key := range keys {
		for _, v := range q[key] {
			maskedValue := maskSensitive(key, v)
			escapedValue := url.QueryEscape(maskedValue)
			escapedValue = strings.ReplaceAll(escapedValue, "%2A", "*")
			parts = append(parts, url.QueryEscape(key)+"="+escapedValue)
		}
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String()
}

// maxResponseSize is the upper limit on HTTP response bodies read by readBody.
// OAuth token, profile, and guild-list responses are typically <100KB; 1MB is generous.
const maxResponseSize = 1 << 20 // 1 MB

// readBody reads the response body (up to maxResponseSize bytes) and closes it.
func readBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

// transport issues authenticated REST calls against the Discord API.
// It holds the client credentials immutably from construction so that any
// call needing to re-authenticate (token refresh) can reuse them, and it
// honors Discord's rate-limit signaling by waiting and retrying once on 429.
type transport struct {
	apiBase      string // overridable for testing; defaults to defaultAPIBase
	clientID     string
	clientSecret string
	redirectURI  string
	scope        string // space-joined configured scopes, "" when none
	httpClient   *http.Client
	logger       Logger
}

func newTransport(cfg Config, hc *http.Client, logger Logger) *transport {
	return &transport{
		apiBase:      defaultAPIBase,
		clientID:     strconv.FormatInt(cfg.ClientID, 10),
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scope:        strings.Join(cfg.Scopes, " "),
		httpClient:   hc,
		logger:       logger,
	}
}

// close releases pooled connections. It is idempotent.
func (t *transport) close() {
	t.httpClient.CloseIdleConnections()
}

// postForm sends a form-encoded POST to path and returns the response body.
func (t *transport) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodPost, path, form, "")
}

// getBearer sends a GET to path with Bearer authorization and returns the
// response body.
func (t *transport) getBearer(ctx context.Context, path, accessToken string) ([]byte, error) {
	return t.do(ctx, http.MethodGet, path, nil, accessToken)
}

// do performs one HTTP request against the Discord API and returns the
// response body on 2xx. A 429 response is retried exactly once after
// waiting the signaled retry-after duration; all other non-2xx statuses
// are mapped to a typed *Error and surfaced without retrying.
func (t *transport) do(ctx context.Context, method, path string, form url.Values, bearer string) ([]byte, error) {
	body, wait, err := t.roundTrip(ctx, method, path, form, bearer)
	if wait <= 0 {
		return body, err
	}

	t.logger.Debug("rate limited, retrying once",
		"method", method,
		"path", path,
		"retry_after", wait,
	)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, newError(KindTransport, 0, "", fmt.Sprintf("%s %s: %v", method, path, ctx.Err()), ctx.Err())
	case <-timer.C:
	}

	body, wait, err = t.roundTrip(ctx, method, path, form, bearer)
	if wait > 0 {
		e := newError(KindRateLimited, http.StatusTooManyRequests, "", fmt.Sprintf("HTTP 429, %s %s: still rate limited after retry", method, path), nil)
		e.RetryAfter = wait
		return nil, e
	}
	return body, err
}

// roundTrip performs a single request. On 429 it returns a positive
// retry-after duration instead of an error so that do can decide whether
// to wait or surface the rate limit.
func (t *transport) roundTrip(ctx context.Context, method, path string, form url.Values, bearer string) ([]byte, time.Duration, error) {
	rawURL := t.apiBase + path
	masked := maskURL(rawURL)
	t.logger.Debug("HTTP request", "method", method, "url", masked)

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, 0, newError(KindTransport, 0, "", fmt.Sprintf("%s %s: %v", method, masked, err), err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, 0, newError(KindTransport, 0, "", fmt.Sprintf("%s %s: %v", method, masked, err), err)
	}

	t.logger.Debug("HTTP response", "method", method, "url", masked, "status", resp.StatusCode)

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, newError(KindTransport, resp.StatusCode, "", fmt.Sprintf("HTTP %d, %s %s: read body: %v", resp.StatusCode, method, masked, err), err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfter(resp, body), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, errorFromResponse(resp.StatusCode, body, method, masked)
	}

	return body, 0, nil
}

// retryAfter extracts the wait duration from a 429 response. It prefers
// the Retry-After header (seconds, possibly fractional), falls back to
// the retry_after field of the JSON body, and defaults to one second.
func retryAfter(resp *http.Response, body []byte) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.ParseFloat(h, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}
	return time.Second
}

// errorFromResponse maps a non-2xx, non-429 response to a typed *Error.
// 401 and 403 are authorization failures, as is a token-endpoint 400 with
// error=invalid_grant (invalid, expired, or already-used code or refresh
// token). Everything else surfaces as an API error with Discord's error
// payload attached for diagnostics.
func errorFromResponse(status int, body []byte, method, maskedURL string) *Error {
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)

	var code, detail string
	if e, ok := payload["error"].(string); ok {
		// OAuth2 token endpoint shape: {"error": "...", "error_description": "..."}.
		code = e
		detail, _ = payload["error_description"].(string)
	} else if m, ok := payload["message"].(string); ok {
		// REST API shape: {"code": 50035, "message": "..."}.
		detail = m
		if c, ok := payload["code"]; ok {
			code = fmt.Sprintf("%v", c)
		}
	}

	kind := KindAPI
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindAuth
	} else if code == "invalid_grant" {
		kind = KindAuth
	}

	msg := fmt.Sprintf("HTTP %d, %s %s", status, method, maskedURL)
	switch {
	case code != "" && detail != "":
		msg += ": " + code + ": " + detail
	case code != "":
		msg += ": " + code
	case detail != "":
		msg += ": " + detail
	default:
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		if preview != "" {
			msg += ": " + preview
		}
	}

	return newError(kind, status, code, msg, nil)
}

// tokenRequest posts the given grant to the token endpoint and parses the
// response into a TokenResponse. The client credentials stored on the
// transport are always included.
func (t *transport) tokenRequest(ctx context.Context, grant url.Values) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)
	for k, vs := range grant {
		for _, v := range vs {
			form.Set(k, v)
		}
	}

	body, err := t.postForm(ctx, "/oauth2/token", form)
	if err != nil {
		return nil, err
	}
	return newTokenResponse(body)
}

// refreshToken exchanges a refresh token for a new token using the client
// credentials held by the transport. Discord refresh tokens are single
// use; consuming one that was already used fails with KindAuth.
func (t *transport) refreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, newError(KindInvalidConfig, 0, "", "refreshToken must not be empty", nil)
	}
	grant := url.Values{}
	grant.Set("grant_type", "refresh_token")
	grant.Set("refresh_token", refreshToken)
	return t.tokenRequest(ctx, grant)
}
