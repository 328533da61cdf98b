// internal/game/resolve.go
package game

import (
	"context"
	"log"
	"time"

	"github.com/moonhollow/werewolf-service/internal/database"
	"github.com/moonhollow/werewolf-service/internal/models"
)

// Default substep durations in seconds.
const (
	DurForeteller = 30
	DurWerewolves = 30
	DurWitch      = 30
	DurDeaths     = 10
	DurVote       = 45
	DurResults    = 10
)

// StartGame moves a lobby into the transient start phase: roles and colors are
// dealt, and the session waits for the first JoinGame to kick off night one.
// Host-only, enforced server-side.
func (s *Session) StartGame(callerID string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.HostID != callerID {
		return ErrNotHost
	}
	if s.Phase != PhaseLobby {
		return ErrGameStarted
	}
	if len(s.Players) != s.RoleCounts.Total() {
		return ErrRosterMismatch
	}

	s.assignRolesAndColorsUnsafe()
	s.Phase = PhaseStart
	s.Substep = SubstepNone
	s.logAction(callerID, "game_started", nil)
	s.broadcastGameUpdatedUnsafe()
	return nil
}

// JoinGame is the post-start entry point: a seated player's client arriving at
// the game view. The first arrival kicks the session out of the transient
// start phase into the first night substep; later arrivals just get the
// current snapshot (rejoin by id lookup).
func (s *Session) JoinGame(playerID string) (Snapshot, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if _, seated := s.Players[playerID]; !seated {
		return Snapshot{}, ErrPlayerNotFound
	}
	if s.Phase == PhaseLobby {
		return Snapshot{}, ErrSessionNotFound
	}
	if s.Phase == PhaseStart {
		s.DayNum = 1
		s.enterNightUnsafe()
		s.broadcastGameUpdatedUnsafe()
	}
	return s.snapshotUnsafe(), nil
}

// enterNightUnsafe begins a night: the foreteller substep when the lobby was
// configured with one and a living foreteller remains, otherwise straight to
// the werewolves. Assumes lock is held.
func (s *Session) enterNightUnsafe() {
	s.Phase = PhaseNight
	if s.RoleCounts.Foretellers > 0 && s.livingRoleUnsafe(models.RoleForeteller) {
		s.Substep = SubstepForeteller
		s.startCountdownUnsafe(DurForeteller, (*Session).resolveCountdown)
	} else {
		s.Substep = SubstepWerewolves
		s.startCountdownUnsafe(DurWerewolves, (*Session).resolveCountdown)
	}
}

// resolveCountdown is the onComplete hook of every phase timer. It runs with
// the lock held from the tick loop, so each resolution is a single atomic
// transition: apply the substep's outcome, check for a winner, move the state
// machine, re-arm the next timer, broadcast. The switch is exhaustive over
// substeps; adding one without a resolver is a compile-visible gap here.
func (s *Session) resolveCountdown() {
	switch s.Substep {
	case SubstepForeteller:
		s.resolveForetellerUnsafe()
	case SubstepWerewolves:
		s.resolveWerewolvesUnsafe()
	case SubstepWitch:
		s.resolveWitchUnsafe()
	case SubstepDeaths:
		s.resolveDeathsUnsafe()
	case SubstepVote:
		s.resolveVoteUnsafe()
	case SubstepResults:
		s.resolveResultsUnsafe()
	case SubstepNone:
		// A timer should never expire outside a substep; log and stand still.
		log.Printf("Session %s: countdown elapsed in phase %s with no substep", s.LobbyID, s.Phase)
		return
	}
	s.broadcastGameUpdatedUnsafe()
}

// foreteller -> werewolves.
func (s *Session) resolveForetellerUnsafe() {
	s.ForetellerRevealed = nil
	s.Substep = SubstepWerewolves
	s.startCountdownUnsafe(DurWerewolves, (*Session).resolveCountdown)
}

// werewolves -> witch, or straight to day/deaths when no witch can act.
func (s *Session) resolveWerewolvesUnsafe() {
	if candidates := s.countVotesUnsafe(); len(candidates) == 1 {
		s.WerewolfKill = candidates[0]
	}
	s.resetVotesUnsafe()

	if s.livingRoleUnsafe(models.RoleWitch) {
		s.Substep = SubstepWitch
		s.startCountdownUnsafe(DurWitch, (*Session).resolveCountdown)
		return
	}

	s.finalizeNightDeathsUnsafe()
	if s.checkWinnerUnsafe() {
		return
	}
	s.Phase = PhaseDay
	s.Substep = SubstepDeaths
	s.startCountdownUnsafe(DurDeaths, (*Session).resolveCountdown)
}

// witch -> deaths.
func (s *Session) resolveWitchUnsafe() {
	s.WitchKilling = false
	s.finalizeNightDeathsUnsafe()
	if s.checkWinnerUnsafe() {
		return
	}
	s.Phase = PhaseDay
	s.Substep = SubstepDeaths
	s.startCountdownUnsafe(DurDeaths, (*Session).resolveCountdown)
}

// deaths -> vote. The deaths list has been on display through the window;
// clear it before the village wakes fully.
func (s *Session) resolveDeathsUnsafe() {
	s.NightDeaths = nil
	s.Substep = SubstepVote
	s.startCountdownUnsafe(DurVote, (*Session).resolveCountdown)
}

// vote -> results.
func (s *Session) resolveVoteUnsafe() {
	if candidates := s.countVotesUnsafe(); len(candidates) == 1 {
		s.VillageKill = candidates[0]
		candidates[0].Alive = false
	}
	if s.checkWinnerUnsafe() {
		return
	}
	s.Substep = SubstepResults
	s.startCountdownUnsafe(DurResults, (*Session).resolveCountdown)
}

// results -> next night.
func (s *Session) resolveResultsUnsafe() {
	s.VillageKill = nil
	s.resetVotesUnsafe()
	s.DayNum++
	s.enterNightUnsafe()
}

// finalizeNightDeathsUnsafe merges the night's kill sources into the deaths
// list: the werewolf kill lands unless the witch saved that exact target, and
// the witch kill lands only when distinct from the werewolf kill (the two
// sources never double-count one victim). Apply-and-clear keeps it idempotent
// whichever resolution path reaches it first. Assumes lock is held.
func (s *Session) finalizeNightDeathsUnsafe() {
	var deaths []*models.Player

	if wk := s.WerewolfKill; wk != nil {
		if s.WitchSave == nil || s.WitchSave.ID != wk.ID {
			deaths = append(deaths, wk)
		}
	}
	if pk := s.WitchKill; pk != nil {
		if s.WerewolfKill == nil || pk.ID != s.WerewolfKill.ID {
			deaths = append(deaths, pk)
		}
	}

	for _, p := range deaths {
		p.Alive = false
	}
	s.NightDeaths = deaths

	s.WerewolfKill = nil
	s.WitchSave = nil
	s.WitchKill = nil
	s.WitchSkipped = false
}

// checkWinnerUnsafe evaluates the win condition and, on a winner, moves the
// session to its terminal state and short-circuits the current resolution.
// Assumes lock is held.
func (s *Session) checkWinnerUnsafe() bool {
	wolves, others := s.livingCountsUnsafe()

	var winner Winner
	switch {
	case wolves == 0 && others == 0:
		winner = WinnerDraw
	case others == 0:
		winner = WinnerWerewolves
	case wolves == 0:
		winner = WinnerVillagers
	default:
		return false
	}

	s.resetVotesUnsafe()
	s.Winner = winner
	s.Phase = PhaseEnd
	s.Substep = SubstepNone
	s.stopCountdownUnsafe()
	s.logAction("", "game_ended", map[string]interface{}{"winner": string(winner), "dayNum": s.DayNum})
	s.archiveMatchUnsafe()
	return true
}

// archiveMatchUnsafe records the finished match asynchronously; a no-op when
// no database is configured. Assumes lock is held.
func (s *Session) archiveMatchUnsafe() {
	players := make([]models.Player, 0, len(s.Players))
	for _, id := range s.sortedPlayerIDsUnsafe() {
		players = append(players, *s.Players[id])
	}
	lobbyID := s.LobbyID
	winner := string(s.Winner)
	dayNum := s.DayNum

	go func() {
		if database.DB == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.RecordMatchResult(ctx, lobbyID, winner, dayNum, players); err != nil {
			log.Printf("Session %s: failed to archive match: %v", lobbyID, err)
		}
	}()
}
