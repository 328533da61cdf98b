// internal/game/session_test.go
package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moonhollow/werewolf-service/internal/models"
)

// mockBroadcaster collects outbound messages instead of sending them over WS.
type mockBroadcaster struct {
	mu             sync.Mutex
	allMessages    []map[string]interface{}
	playerMessages map[string][]map[string]interface{}
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerMessages: make(map[string][]map[string]interface{}),
	}
}

func (mb *mockBroadcaster) broadcastFn(msg map[string]interface{}) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allMessages = append(mb.allMessages, msg)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID string, msg map[string]interface{}) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerMessages[playerID] = append(mb.playerMessages[playerID], msg)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allMessages = nil
	mb.playerMessages = make(map[string][]map[string]interface{})
}

// lastOfType returns the most recent broadcast with the given type field.
func (mb *mockBroadcaster) lastOfType(msgType string) map[string]interface{} {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allMessages) - 1; i >= 0; i-- {
		if t, _ := mb.allMessages[i]["type"].(string); t == msgType {
			return mb.allMessages[i]
		}
	}
	return nil
}

// playerMessagesOfType returns every per-player message of one type.
func (mb *mockBroadcaster) playerMessagesOfType(playerID, msgType string) []map[string]interface{} {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []map[string]interface{}
	for _, m := range mb.playerMessages[playerID] {
		if t, _ := m["type"].(string); t == msgType {
			out = append(out, m)
		}
	}
	return out
}

// setupTestSession builds a lobby-phase session with numPlayers seated players
// (ids "p1".."pN", host "p1") and mock broadcasters. The tick interval is
// shortened so timer-driven tests run in milliseconds.
func setupTestSession(t *testing.T, counts models.RoleCounts, numPlayers int) (*Session, *mockBroadcaster) {
	t.Helper()
	require.LessOrEqual(t, numPlayers, 9, "single-digit ids keep sorted order intuitive")

	s := NewSession("TESTLOBBY", "p1", counts, numPlayers)
	mb := newMockBroadcaster()
	s.BroadcastFn = mb.broadcastFn
	s.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	s.TickInterval = 5 * time.Millisecond

	for i := 1; i <= numPlayers; i++ {
		id := fmt.Sprintf("p%d", i)
		require.NoError(t, s.JoinLobby(id, "Player "+id))
	}

	mb.clear()
	return s, mb
}

// setRoles deterministically assigns roles in seat order, bypassing the
// shuffle, and moves the session into the transient start phase. Timer-driven
// tests then call JoinGame to enter the first night.
func setRoles(t *testing.T, s *Session, roles ...models.Role) {
	t.Helper()
	s.Mu.Lock()
	defer s.Mu.Unlock()
	ids := s.sortedPlayerIDsUnsafe()
	require.Len(t, ids, len(roles))
	for i, id := range ids {
		s.Players[id].Role = roles[i]
		s.Players[id].Alive = true
		s.Players[id].Color = models.Palette[i%len(models.Palette)]
	}
	s.Phase = PhaseStart
	s.Substep = SubstepNone
}

// setPhase forces the session into a phase/substep without arming a timer.
func setPhase(s *Session, phase Phase, substep Substep) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Phase = phase
	s.Substep = substep
}

func player(s *Session, id string) *models.Player {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Players[id]
}

func TestSnapshotOmitsInternalState(t *testing.T) {
	s, _ := setupTestSession(t, models.RoleCounts{Werewolves: 1, Villagers: 2}, 3)

	snap := s.Snapshot()
	require.Equal(t, "TESTLOBBY", snap.LobbyID)
	require.Equal(t, "p1", snap.HostID)
	require.Equal(t, PhaseLobby, snap.Phase)
	require.Len(t, snap.Players, 3)
	require.Nil(t, snap.Countdown, "no timer armed, no countdown in snapshot")

	// Snapshot players are copies: mutating them must not touch the session.
	snap.Players[0].Alive = false
	require.True(t, player(s, "p1").Alive)
}

func TestSnapshotCarriesCountdown(t *testing.T) {
	s, _ := setupTestSession(t, models.RoleCounts{Werewolves: 1, Villagers: 2}, 3)
	s.TickInterval = time.Hour // freeze the timer for the assertion

	require.True(t, s.StartCountdown(30, nil))
	snap := s.Snapshot()
	require.NotNil(t, snap.Countdown)
	require.Equal(t, 30, *snap.Countdown)
}
