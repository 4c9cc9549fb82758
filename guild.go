package oauthcord

import (
	"encoding/json"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

// Guild represents a partial guild object from GET /users/@me/guilds.
// Guilds are immutable once constructed; a fresh fetch replaces the
// owning User's cache entirely.
type Guild struct {
	// ID is the guild's snowflake.
	ID snowflake.ID
	// Name is the guild's name.
	Name string
	// IconHash is the guild's icon hash, "" when the guild has none.
	IconHash string
	// Owner reports whether the user attached to this guild owns it.
	Owner bool
	// Features lists the enabled guild features, nil when the field was
	// absent from the payload.
	Features []string

	user *User
	raw  map[string]any
}

// guildPayload mirrors the wire shape of a partial guild.
type guildPayload struct {
	ID       snowflake.ID `json:"id"`
	Name     string       `json:"name"`
	Icon     string       `json:"icon"`
	Owner    bool         `json:"owner"`
	Features []string     `json:"features"`
}

// newGuild parses a partial guild payload and links it back to the user
// it was fetched for.
func newGuild(body []byte, user *User) (*Guild, error) {
	var p guildPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, newError(KindTransport, 0, "", fmt.Sprintf("parse guild payload: %v", err), err)
	}
	if p.ID == 0 {
		return nil, newError(KindTransport, 0, "", "guild payload missing field \"id\"", nil)
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &Guild{
		ID:       p.ID,
		Name:     p.Name,
		IconHash: p.Icon,
		Owner:    p.Owner,
		Features: p.Features,
		user:     user,
		raw:      raw,
	}, nil
}

// JSON returns the original decoded payload for this guild, including any
// fields not modeled by this library.
func (g *Guild) JSON() map[string]any {
	return g.raw
}

// User returns the user this guild was fetched for. The reference is
// non-owning; the guild does not keep the user alive in any sense beyond
// ordinary garbage collection.
func (g *Guild) User() *User {
	return g.user
}

// IconURL returns the CDN URL for the guild's icon, "" when the guild has
// no icon. Animated icons (hash prefixed with "a_") resolve to gif, all
// others to png.
func (g *Guild) IconURL() string {
	return assetURL("icons", uint64(g.ID), g.IconHash)
}

// Equal reports whether other refers to the same guild. Identity is
// defined by ID alone.
func (g *Guild) Equal(other *Guild) bool {
	return other != nil && g.ID == other.ID
}

// String returns the guild's name and ID.
func (g *Guild) String() string {
	return fmt.Sprintf("%s (%d)", g.Name, g.ID)
}
