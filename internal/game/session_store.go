// internal/game/session_store.go
package game

import (
	"sync"

	"github.com/moonhollow/werewolf-service/internal/models"
)

const (
	// MinPlayers and MaxPlayers bound a lobby's capacity.
	MinPlayers = 3
	MaxPlayers = 15
)

// SessionStore manages ephemeral sessions in memory, keyed by lobby id. It is
// injectable so tests get an isolated store instead of shared process state.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore returns an in-memory store for Sessions.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create builds and registers a lobby-phase session. Lobby ids are randomly
// generated upstream, so a collision is treated as a caller error rather than
// overwritten. Role counts and capacity are validated here so the creator gets
// an explicit error instead of a silently missing lobby.
func (st *SessionStore) Create(lobbyID, hostID string, counts models.RoleCounts, totalPlayers int) (*Session, error) {
	if !counts.Valid() {
		return nil, ErrInvalidRoleCounts
	}
	if totalPlayers < MinPlayers || totalPlayers > MaxPlayers || counts.Total() > totalPlayers {
		return nil, ErrInvalidCapacity
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sessions[lobbyID]; exists {
		return nil, ErrSessionExists
	}
	s := NewSession(lobbyID, hostID, counts, totalPlayers)
	s.OnEmpty = func(id string) { st.Delete(id) }
	st.sessions[lobbyID] = s
	return s, nil
}

// Get retrieves a session if it exists.
func (st *SessionStore) Get(lobbyID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[lobbyID]
	return s, ok
}

// Delete removes the session and force-stops any live countdown so a stale
// tick can never mutate a removed session.
func (st *SessionStore) Delete(lobbyID string) {
	st.mu.Lock()
	s, ok := st.sessions[lobbyID]
	delete(st.sessions, lobbyID)
	st.mu.Unlock()

	if ok {
		s.Mu.Lock()
		s.stopCountdownUnsafe()
		s.Mu.Unlock()
	}
}

// Lobbies returns snapshots of every session still in the lobby phase.
func (st *SessionStore) Lobbies() []Snapshot {
	st.mu.Lock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.Unlock()

	var out []Snapshot
	for _, s := range sessions {
		snap := s.Snapshot()
		if snap.Phase == PhaseLobby {
			out = append(out, snap)
		}
	}
	return out
}

// PlayerSessions returns "lobby/<id>" or "game/<id>" paths for every session
// the player is seated in, so a returning client can resume where it was.
func (st *SessionStore) PlayerSessions(playerID string) []string {
	st.mu.Lock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.Unlock()

	out := []string{}
	for _, s := range sessions {
		s.Mu.Lock()
		_, seated := s.Players[playerID]
		phase := s.Phase
		id := s.LobbyID
		s.Mu.Unlock()
		if !seated {
			continue
		}
		if phase == PhaseLobby {
			out = append(out, "lobby/"+id)
		} else {
			out = append(out, "game/"+id)
		}
	}
	return out
}
