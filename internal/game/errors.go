// internal/game/errors.go
package game

import "errors"

var (
	// ErrSessionExists is returned when creating a lobby whose id is already taken.
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionNotFound is returned by operations addressed to an unknown lobby id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRoleCounts is returned when the role distribution violates the
	// creation constraint (>=1 werewolf, >=1 villager, <=1 witch, <=1 foreteller).
	ErrInvalidRoleCounts = errors.New("invalid role counts")
	// ErrInvalidCapacity is returned when totalPlayers is outside 3..15 or cannot
	// seat the requested role distribution.
	ErrInvalidCapacity = errors.New("invalid player capacity")
	// ErrNotHost is returned when a host-only operation is attempted by another player.
	ErrNotHost = errors.New("only the host may do that")
	// ErrGameStarted is returned when joining a lobby whose game already left the lobby phase.
	ErrGameStarted = errors.New("game already started")
	// ErrLobbyFull is returned when joining a lobby at capacity.
	ErrLobbyFull = errors.New("lobby is full")
	// ErrPlayerNotFound is returned for operations addressed to an unseated player.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrRosterMismatch is returned by StartGame when the seated player count does
	// not match the role distribution.
	ErrRosterMismatch = errors.New("player count does not match role counts")
)
