// internal/game/roster.go
package game

import (
	"log"

	"github.com/moonhollow/werewolf-service/internal/models"
)

// JoinLobby seats a player in a lobby-phase session. Re-joining by the same id
// is idempotent and allowed in any phase (rejoin by id lookup); new players
// are rejected once the game has started or the lobby is at capacity.
func (s *Session) JoinLobby(playerID, name string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if existing, ok := s.Players[playerID]; ok {
		if name != "" {
			existing.Name = name
		}
		s.broadcastGameUpdatedUnsafe()
		return nil
	}
	if s.Phase != PhaseLobby {
		return ErrGameStarted
	}
	if len(s.Players) >= s.TotalPlayers {
		return ErrLobbyFull
	}

	p := &models.Player{
		ID:    playerID,
		Name:  name,
		Role:  models.RoleUnassigned,
		Alive: true,
	}
	s.Players[playerID] = p
	s.logAction(playerID, "player_joined", map[string]interface{}{"name": name})
	s.broadcastUnsafe(map[string]interface{}{
		"type":   "player_joined",
		"player": *p,
	})
	s.broadcastGameUpdatedUnsafe()
	return nil
}

// Joinable reports whether the player could enter the lobby right now: either
// the game is still gathering and has capacity, or the player is already seated.
func (s *Session) Joinable(playerID string) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if _, seated := s.Players[playerID]; seated {
		return true
	}
	return s.Phase == PhaseLobby && len(s.Players) < s.TotalPlayers
}

// RemovePlayer unseats a player. The path is identical for voluntary leave and
// kick: delete the entry, re-elect the host if needed, and tear the session
// down when the roster empties (the only deletion path).
func (s *Session) RemovePlayer(playerID string) {
	s.Mu.Lock()

	p, ok := s.Players[playerID]
	if !ok {
		s.Mu.Unlock()
		return
	}
	delete(s.Players, playerID)

	if conn, connected := s.Connections[playerID]; connected {
		delete(s.Connections, playerID)
		conn.Close()
	}

	if s.HostID == playerID {
		s.HostID = ""
		if ids := s.sortedPlayerIDsUnsafe(); len(ids) > 0 {
			s.HostID = ids[0]
		}
	}

	s.logAction(playerID, "player_left", nil)
	s.broadcastUnsafe(map[string]interface{}{
		"type":   "player_left",
		"player": *p,
	})

	empty := len(s.Players) == 0
	onEmpty := s.OnEmpty
	if empty {
		// Stop the clock before the store forgets us; OnEmpty stops it again
		// harmlessly via Delete.
		s.stopCountdownUnsafe()
	} else {
		s.broadcastGameUpdatedUnsafe()
	}
	s.Mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(s.LobbyID)
	}
}

// IsHost reports whether the player currently owns the lobby.
func (s *Session) IsHost(playerID string) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.HostID == playerID
}

// RegisterConn attaches a live connection for a seated player, replacing any
// previous one (reconnect).
func (s *Session) RegisterConn(conn *SessionConn) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if old, ok := s.Connections[conn.PlayerID]; ok && old != conn {
		old.Close()
	}
	s.Connections[conn.PlayerID] = conn
}

// DropConn detaches a connection without unseating the player, so a mid-game
// disconnect can still rejoin by id. Stale instances (already replaced by a
// reconnect) are ignored.
func (s *Session) DropConn(conn *SessionConn) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if current, ok := s.Connections[conn.PlayerID]; ok && current == conn {
		delete(s.Connections, conn.PlayerID)
	}
}

// assignRolesAndColorsUnsafe deals one role token and one palette color to
// each seated player: a multiset of tokens sized by RoleCounts, shuffled
// uniformly (Fisher-Yates), assigned in deterministic roster order. Called
// exactly once per game start. Assumes lock is held.
func (s *Session) assignRolesAndColorsUnsafe() {
	tokens := make([]models.Role, 0, s.RoleCounts.Total())
	for i := 0; i < s.RoleCounts.Werewolves; i++ {
		tokens = append(tokens, models.RoleWerewolf)
	}
	for i := 0; i < s.RoleCounts.Villagers; i++ {
		tokens = append(tokens, models.RoleVillager)
	}
	for i := 0; i < s.RoleCounts.Witches; i++ {
		tokens = append(tokens, models.RoleWitch)
	}
	for i := 0; i < s.RoleCounts.Foretellers; i++ {
		tokens = append(tokens, models.RoleForeteller)
	}

	s.rng.Shuffle(len(tokens), func(i, j int) {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	})

	ids := s.sortedPlayerIDsUnsafe()
	if len(ids) != len(tokens) {
		// StartGame validates this; reaching here means a programming error.
		log.Printf("Session %s: role token count %d does not match roster size %d", s.LobbyID, len(tokens), len(ids))
	}
	for i, id := range ids {
		p := s.Players[id]
		if i < len(tokens) {
			p.Role = tokens[i]
		}
		p.Alive = true
		p.Color = models.Palette[i%len(models.Palette)]
	}
}
