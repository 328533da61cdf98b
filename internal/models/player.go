// internal/models/player.go
package models

// Role is a player's assigned faction token.
type Role string

const (
	RoleUnassigned Role = "unassigned"
	RoleWerewolf   Role = "werewolf"
	RoleVillager   Role = "villager"
	RoleWitch      Role = "witch"
	RoleForeteller Role = "foreteller"
)

// VoteSkip is the sentinel target meaning "vote to eliminate nobody".
const VoteSkip = "skip"

// Player is one seat in a session. IDs are client-supplied opaque strings;
// Role, Color, Alive, Vote and NumVotes are owned exclusively by the engine.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Alive    bool   `json:"alive"`
	Vote     string `json:"vote,omitempty"` // target player id, VoteSkip, or "" when no vote cast
	NumVotes int    `json:"numVotes"`
	Color    string `json:"color,omitempty"`
}

// IsWerewolf reports whether the player sits on the werewolf faction.
func (p *Player) IsWerewolf() bool {
	return p.Role == RoleWerewolf
}

// Palette is the fixed set of display colors handed out at game start,
// indexed by assignment order (cycled when the roster outgrows it).
var Palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#fffac8", "#800000",
}

// RoleCounts is the lobby's required role distribution, fixed at creation.
type RoleCounts struct {
	Werewolves  int `json:"werewolves"`
	Villagers   int `json:"villagers"`
	Witches     int `json:"witches"`
	Foretellers int `json:"foretellers"`
}

// Total is the number of role tokens the counts describe.
func (rc RoleCounts) Total() int {
	return rc.Werewolves + rc.Villagers + rc.Witches + rc.Foretellers
}

// Valid enforces the creation constraint: at least one werewolf and one
// villager, at most one witch and one foreteller.
func (rc RoleCounts) Valid() bool {
	return rc.Werewolves >= 1 && rc.Villagers >= 1 &&
		rc.Witches >= 0 && rc.Witches <= 1 &&
		rc.Foretellers >= 0 && rc.Foretellers <= 1
}
