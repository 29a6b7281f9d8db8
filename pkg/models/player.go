package models

import "time"

// Player is the viewer a development host session belongs to
type Player struct {
	// From JWT claims
	ID        string         `json:"id"`        // Converted from int64 user_id
	Username  string         `json:"username"`  // JWT claim
	Groups    map[string]int `json:"groups"`    // JWT claim: group name -> grade, used for shop gating
	Activated int64          `json:"activated"` // JWT claim: activation timestamp or ban status

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Session state
	SessionID string `json:"session_id"`
}

// IsActive checks if the player account is activated and not banned
func (p *Player) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// IsConnected checks if the player is currently connected
func (p *Player) IsConnected() bool {
	return p.Connected
}

// Grade returns the player's grade in a group and whether they belong to it
func (p *Player) Grade(group string) (int, bool) {
	g, ok := p.Groups[group]
	return g, ok
}
