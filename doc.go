// Package oauthcord is a client library for the Discord OAuth2
// authorization-code flow.
//
// It builds authorization URLs, exchanges authorization codes for access
// tokens, refreshes tokens, and fetches the authenticated user's profile
// and guild memberships. It is framework-agnostic — the consuming
// application owns the redirect endpoint and can serve it with net/http,
// Gin, Echo, or any other router. It is not a general Discord API client;
// only the OAuth2 identity and guild endpoints are modeled.
//
// # Quick Start
//
// The typical flow consists of four steps: create a client, redirect the
// user to the authorization URL, exchange the callback code for a token,
// and fetch the user's profile.
//
//	// 1. Create a client.
//	client, err := oauthcord.New(oauthcord.Config{
//	    ClientID:     123456789012345678,
//	    ClientSecret: secret,
//	    RedirectURI:  "https://example.com/callback",
//	    Scopes:       []string{"identify", "guilds"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// 2. Generate a CSRF state and redirect the user.
//	state, err := oauthcord.GenerateState()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.Redirect(w, r, client.AuthURL(state), http.StatusFound)
//
//	// 3. In the callback handler, exchange the code for a token.
//	token, err := client.ExchangeCode(ctx, code)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// 4. Fetch the user and their guilds.
//	user, err := client.Identify(ctx, token)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guilds, err := user.FetchGuilds(ctx, true)
//
// # Tokens
//
// Discord access tokens expire and refresh tokens are single use. The
// library never refreshes automatically: when a call fails with
// [ErrAuth], refresh explicitly and retry.
//
//	if _, err := user.FetchGuilds(ctx, true); errors.Is(err, oauthcord.ErrAuth) {
//	    if _, err := user.Refresh(ctx); err != nil {
//	        // refresh token consumed or revoked; restart the flow
//	    }
//	    guilds, err = user.FetchGuilds(ctx, true)
//	}
//
// # Error Handling
//
// All errors returned by oauthcord are of type [*Error] which carries
// structured fields (Kind, StatusCode, Code, Message) so failures can be
// inspected programmatically. Sentinel errors such as [ErrAuth] and
// [ErrRateLimited] work with [errors.Is] for convenient matching. A 429
// from Discord is retried once after the signaled retry-after duration
// before being surfaced.
//
// # Options
//
// [New] accepts functional [Option] values to customize behavior:
//
//	client, err := oauthcord.New(cfg,
//	    oauthcord.WithHTTPClient(customClient),
//	    oauthcord.WithLogger(myLogger),
//	)
//
// [Client.AuthURL] accepts [AuthOption] values for per-request settings:
//
//	url := client.AuthURL(state, oauthcord.WithPrompt("consent"))
package oauthcord
