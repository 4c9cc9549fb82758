package oauthcord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

// newTestUser binds a parsed test user to the given transport.
func newTestUser(t *testing.T, tr *transport) *User {
	t.Helper()
	token, err := newTokenResponse([]byte(validTokenJSON))
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	user, err := newUser([]byte(testUserJSON), token, tr)
	if err != nil {
		t.Fatalf("build user: %v", err)
	}
	return user
}

// ---------------------------------------------------------------------------
// newUser — construction
// ---------------------------------------------------------------------------

func TestNewUser_ParsesPayload(t *testing.T) {
	user := newTestUser(t, nil)
	if user.ID != 80351110224678912 {
		t.Errorf("ID = %d", user.ID)
	}
	if user.Username != "Nelly" {
		t.Errorf("Username = %q", user.Username)
	}
	if user.Discriminator != "1337" {
		t.Errorf("Discriminator = %q", user.Discriminator)
	}
	if user.AvatarHash != "8342729096ea3675442027381ff50dfe" {
		t.Errorf("AvatarHash = %q", user.AvatarHash)
	}
	if user.JSON()["username"] != "Nelly" {
		t.Error("JSON() should expose the original payload")
	}
	if user.Guilds() != nil {
		t.Error("guild cache must start unset")
	}
}

func TestNewUser_MissingID(t *testing.T) {
	_, err := newUser([]byte(`{"username": "Nelly"}`), nil, nil)
	if err == nil {
		t.Fatal("expected error for payload without id")
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestNewUser_NullAvatar(t *testing.T) {
	user, err := newUser([]byte(`{"id": "1", "username": "n", "discriminator": "0", "avatar": null}`), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.AvatarHash != "" {
		t.Errorf("AvatarHash = %q; want empty", user.AvatarHash)
	}
	if user.AvatarURL() != "" {
		t.Errorf("AvatarURL() = %q; want empty", user.AvatarURL())
	}
}

// ---------------------------------------------------------------------------
// Equality and formatting
// ---------------------------------------------------------------------------

func TestUserEqual_ByIDOnly(t *testing.T) {
	a := &User{ID: snowflake.ID(123), Username: "alice"}
	b := &User{ID: snowflake.ID(123), Username: "someone-else"}
	c := &User{ID: snowflake.ID(456), Username: "alice"}

	if !a.Equal(a) {
		t.Error("equality must be reflexive")
	}
	if !a.Equal(b) || !b.Equal(a) {
		t.Error("users with the same ID must compare equal regardless of other fields")
	}
	if a.Equal(c) {
		t.Error("users with different IDs must not compare equal")
	}
	if a.Equal(nil) {
		t.Error("nil never compares equal")
	}
	// transitivity
	d := &User{ID: snowflake.ID(123), Email: "x@y.z"}
	if !(a.Equal(b) && b.Equal(d) && a.Equal(d)) {
		t.Error("equality must be transitive")
	}
}

func TestUserString(t *testing.T) {
	user := &User{Username: "Nelly", Discriminator: "1337"}
	if got := user.String(); got != "Nelly#1337" {
		t.Errorf("String() = %q; want %q", got, "Nelly#1337")
	}
}

// ---------------------------------------------------------------------------
// AvatarURL
// ---------------------------------------------------------------------------

func TestUserAvatarURL(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want string
	}{
		{
			name: "animated hash resolves to gif",
			hash: "a_abc123",
			want: "https://cdn.discordapp.com/avatars/80351110224678912/a_abc123.gif",
		},
		{
			name: "static hash resolves to png",
			hash: "abc123",
			want: "https://cdn.discordapp.com/avatars/80351110224678912/abc123.png",
		},
		{
			name: "absent hash yields no URL",
			hash: "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{ID: snowflake.ID(80351110224678912), AvatarHash: tt.hash}
			if got := user.AvatarURL(); got != tt.want {
				t.Errorf("AvatarURL() = %q; want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestUserRefresh_ReplacesHeldToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "D43f5y0ahjqew82jZ4NViEr2YafMKhue" {
			t.Errorf("refresh_token = %q", got)
		}
		// transport credentials, not anything client-side
		if got := r.PostForm.Get("client_id"); got != "123" {
			t.Errorf("client_id = %q", got)
		}
		fmt.Fprint(w, `{
			"access_token": "fresh-access",
			"token_type": "Bearer",
			"expires_in": 604800,
			"refresh_token": "fresh-refresh",
			"scope": "identify guilds"
		}`)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))
	old := user.Token()

	fresh, err := user.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh == old {
		t.Error("Refresh must return a new TokenResponse, not mutate the old one")
	}
	if old.AccessToken != "6qrZcUqja7812RVdnEKjpzOL4CvHBFG" {
		t.Error("previous TokenResponse must stay unchanged")
	}
	if user.AccessToken() != "fresh-access" {
		t.Errorf("AccessToken() = %q; want %q", user.AccessToken(), "fresh-access")
	}
	if user.Token() != fresh {
		t.Error("held credential not replaced")
	}
}

func TestUserRefresh_ConsumedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "invalid_grant"}`)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))
	old := user.Token()

	_, err := user.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error for consumed refresh token")
	}
	if !errors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
	if user.Token() != old {
		t.Error("held credential must not change on failed refresh")
	}
}

func TestUserRefresh_NoRefreshToken(t *testing.T) {
	user, err := newUser([]byte(testUserJSON), &TokenResponse{AccessToken: "bare"}, nil)
	if err != nil {
		t.Fatalf("build user: %v", err)
	}
	_, err = user.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error for user without refresh token")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// FetchGuilds
// ---------------------------------------------------------------------------

const testGuildsJSON = `[
	{"id": "197038439483310086", "name": "Discord Testers", "icon": "f64c482b807da4f539cff778d174971c", "owner": false, "features": ["COMMUNITY", "VERIFIED"]},
	{"id": "80351110224678912", "name": "1337 Krew", "icon": "a_8342729096ea3675442027381ff50dfe", "owner": true, "features": []}
]`

func TestUserFetchGuilds_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/users/@me/guilds" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer 6qrZcUqja7812RVdnEKjpzOL4CvHBFG" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, testGuildsJSON)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))

	guilds, err := user.FetchGuilds(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(guilds) != 2 {
		t.Fatalf("len = %d; want 2", len(guilds))
	}
	if guilds[0].Name != "Discord Testers" {
		t.Errorf("Name = %q", guilds[0].Name)
	}
	if !guilds[1].Owner {
		t.Error("Owner not parsed")
	}
	if guilds[0].User() != user {
		t.Error("guild must link back to the user it was fetched for")
	}
	if calls.Load() != 1 {
		t.Errorf("request count = %d; want 1", calls.Load())
	}
}

func TestUserFetchGuilds_UnfetchedCacheHitsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, testGuildsJSON)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))

	// refresh=false with a never-fetched cache must still call the API.
	if _, err := user.FetchGuilds(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("request count = %d; want 1", calls.Load())
	}
}

func TestUserFetchGuilds_NonEmptyCacheServedWithoutIO(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, testGuildsJSON)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))

	first, err := user.FetchGuilds(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := user.FetchGuilds(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("request count = %d; want 1 (cache hit must not touch the network)", calls.Load())
	}
	if len(second) != len(first) || second[0] != first[0] {
		t.Error("cached sequence must be returned unchanged")
	}
}

func TestUserFetchGuilds_FetchedEmptyCacheServedWithoutIO(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))

	if _, err := user.FetchGuilds(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Member of zero guilds is distinct from never fetched.
	guilds, err := user.FetchGuilds(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(guilds) != 0 {
		t.Errorf("len = %d; want 0", len(guilds))
	}
	if guilds == nil {
		t.Error("fetched-empty cache must be non-nil")
	}
	if calls.Load() != 1 {
		t.Errorf("request count = %d; want 1", calls.Load())
	}
}

func TestUserFetchGuilds_RefreshReplacesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, testGuildsJSON)
			return
		}
		fmt.Fprint(w, `[{"id": "42", "name": "New Guild"}]`)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))

	if _, err := user.FetchGuilds(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	guilds, err := user.FetchGuilds(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("request count = %d; want 2", calls.Load())
	}
	if len(guilds) != 1 || guilds[0].Name != "New Guild" {
		t.Error("refresh must replace the cache wholesale, not merge")
	}
	if got := user.Guilds(); len(got) != 1 {
		t.Errorf("cached len = %d; want 1", len(got))
	}
}

func TestUserFetchGuilds_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "401: Unauthorized", "code": 0}`)
	}))
	defer server.Close()

	user := newTestUser(t, newTestTransport(server.URL))

	_, err := user.FetchGuilds(context.Background(), true)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	if !errors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
	if user.Guilds() != nil {
		t.Error("cache must stay unset on failure")
	}
}
