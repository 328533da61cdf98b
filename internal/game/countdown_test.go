// internal/game/countdown_test.go
package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moonhollow/werewolf-service/internal/models"
)

func TestCountdownRunsToCompletion(t *testing.T) {
	s, mb := setupTestSession(t, models.RoleCounts{Werewolves: 1, Villagers: 2}, 3)

	var fired atomic.Int32
	require.True(t, s.StartCountdown(3, func(*Session) { fired.Add(1) }))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	require.False(t, s.IsCountdownRunning())

	// The initial tick and the countdown-to-zero were all broadcast.
	last := mb.lastOfType("countdown_tick")
	require.NotNil(t, last)
	require.Equal(t, 0, last["seconds"])
}

func TestCountdownReentrancyGuard(t *testing.T) {
	s, _ := setupTestSession(t, models.RoleCounts{Werewolves: 1, Villagers: 2}, 3)
	s.TickInterval = time.Hour

	require.True(t, s.StartCountdown(30, nil))
	require.False(t, s.StartCountdown(10, nil), "second start while running is refused")

	remaining, running := s.CountdownRemaining()
	require.True(t, running)
	require.Equal(t, 30, remaining, "the refused start must not clobber the live timer")
}

func TestCountdownStopsOnSessionDelete(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("ROOM9", "p1", models.RoleCounts{Werewolves: 1, Villagers: 2}, 3)
	require.NoError(t, err)
	require.NoError(t, s.JoinLobby("p1", "Host"))
	s.TickInterval = 5 * time.Millisecond

	var fired atomic.Int32
	require.True(t, s.StartCountdown(1000, func(*Session) { fired.Add(1) }))
	st.Delete("ROOM9")

	require.False(t, s.IsCountdownRunning())
	time.Sleep(30 * time.Millisecond)
	require.Zero(t, fired.Load(), "a stopped timer never completes")
}

func TestCountdownEarlyCompletionWerewolves(t *testing.T) {
	s, _ := setupTestSession(t, models.RoleCounts{Werewolves: 2, Villagers: 2}, 4)
	setRoles(t, s, models.RoleWerewolf, models.RoleWerewolf, models.RoleVillager, models.RoleVillager)
	setPhase(s, PhaseNight, SubstepWerewolves)

	var fired atomic.Int32
	// Long timer: only early completion can finish it within the test.
	require.True(t, s.StartCountdown(10000, func(*Session) { fired.Add(1) }))

	s.CastVote("p1", "p3")
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, fired.Load(), "one of two wolves voted, no early completion yet")

	s.CastVote("p2", "p3")
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond,
		"all living wolves voted, remaining collapses to the grace window")
}

func TestCountdownEarlyCompletionVillageVote(t *testing.T) {
	s, _ := setupTestSession(t, models.RoleCounts{Werewolves: 1, Villagers: 2}, 3)
	setRoles(t, s, models.RoleWerewolf, models.RoleVillager, models.RoleVillager)
	setPhase(s, PhaseDay, SubstepVote)

	var fired atomic.Int32
	require.True(t, s.StartCountdown(10000, func(*Session) { fired.Add(1) }))

	s.CastVote("p1", models.VoteSkip)
	s.CastVote("p2", "p1")
	s.CastVote("p3", "p1")
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond,
		"skip counts as having voted for early completion")
}

func TestCountdownEarlyCompletionWitchGrace(t *testing.T) {
	s, _ := setupTestSession(t, models.RoleCounts{Werewolves: 1, Villagers: 1, Witches: 1}, 3)
	setRoles(t, s, models.RoleWerewolf, models.RoleVillager, models.RoleWitch)
	setPhase(s, PhaseNight, SubstepWitch)

	var fired atomic.Int32
	require.True(t, s.StartCountdown(10000, func(*Session) { fired.Add(1) }))

	s.WitchSkip("p3")
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
}

func TestEarlyGraceValues(t *testing.T) {
	s, _ := setupTestSession(t, models.RoleCounts{Werewolves: 1, Villagers: 1, Witches: 1}, 3)
	setRoles(t, s, models.RoleWerewolf, models.RoleVillager, models.RoleWitch)

	s.Mu.Lock()
	defer s.Mu.Unlock()

	s.Phase = PhaseNight
	s.Substep = SubstepWitch
	_, ok := s.earlyGraceUnsafe()
	require.False(t, ok, "witch has not acted yet")

	s.WitchSave = s.Players["p1"]
	grace, ok := s.earlyGraceUnsafe()
	require.True(t, ok)
	require.Equal(t, GraceWitchChosen, grace)

	s.WitchSave = nil
	s.WitchSkipped = true
	grace, ok = s.earlyGraceUnsafe()
	require.True(t, ok)
	require.Equal(t, GraceImmediate, grace)

	s.WitchSkipped = false
	s.Substep = SubstepForeteller
	s.ForetellerRevealed = s.Players["p2"]
	grace, ok = s.earlyGraceUnsafe()
	require.True(t, ok)
	require.Equal(t, GraceForetellerReveal, grace)
}
