// internal/game/countdown.go
package game

import (
	"log"
	"time"
)

// Grace values applied when a substep completes early. The longer windows let
// the client-side reveal/kill animation finish before the phase advances.
const (
	GraceWitchChosen      = 6  // witch picked save or kill
	GraceForetellerReveal = 11 // foreteller picked a reveal target
	GraceImmediate        = 1  // witch skipped, or every expected voter voted
)

// countdown is the live timer of a session: remaining whole seconds, a
// once-only early-completion latch, and a stop channel closed on forced
// cancellation (session deletion). The handle stays inside the engine.
type countdown struct {
	remaining  int
	triggered  bool
	onComplete func(*Session)
	stop       chan struct{}
}

// StartCountdown arms the session timer. Starting while one is already
// running is a caller error and a production no-op (the re-entrancy guard
// that keeps racing transitions from arming two timers).
func (s *Session) StartCountdown(seconds int, onComplete func(*Session)) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.startCountdownUnsafe(seconds, onComplete)
}

// startCountdownUnsafe arms the timer and broadcasts the initial tick.
// Assumes lock is held.
func (s *Session) startCountdownUnsafe(seconds int, onComplete func(*Session)) bool {
	if s.timer != nil {
		log.Printf("Session %s: StartCountdown while already running (remaining %ds), ignoring", s.LobbyID, s.timer.remaining)
		return false
	}
	cd := &countdown{
		remaining:  seconds,
		onComplete: onComplete,
		stop:       make(chan struct{}),
	}
	s.timer = cd
	s.broadcastTickUnsafe(cd.remaining)
	go s.runCountdown(cd)
	return true
}

// runCountdown is the tick loop. Each tick is one discrete critical section
// under the session lock: early-completion check, decrement, tick broadcast,
// and exactly-once completion with the lock still held so the resolver's
// state transition and re-arm are atomic with the final tick.
func (s *Session) runCountdown(cd *countdown) {
	interval := s.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cd.stop:
			return
		case <-ticker.C:
			s.Mu.Lock()
			if s.timer != cd {
				// Stale tick after a forced stop or replacement.
				s.Mu.Unlock()
				return
			}
			if !cd.triggered {
				if grace, ok := s.earlyGraceUnsafe(); ok {
					cd.remaining = grace
					cd.triggered = true
				}
			}
			cd.remaining--
			s.broadcastTickUnsafe(cd.remaining)
			if cd.remaining < 1 {
				s.timer = nil
				if cd.onComplete != nil {
					cd.onComplete(s)
				}
				s.Mu.Unlock()
				return
			}
			s.Mu.Unlock()
		}
	}
}

// stopCountdownUnsafe force-cancels the live timer, if any. Used on session
// deletion; normal phase flow lets timers complete naturally (possibly
// accelerated by early completion). Assumes lock is held.
func (s *Session) stopCountdownUnsafe() {
	if s.timer != nil {
		close(s.timer.stop)
		s.timer = nil
	}
}

// IsCountdownRunning reports whether the session timer is armed.
func (s *Session) IsCountdownRunning() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.timer != nil
}

// CountdownRemaining returns the remaining seconds of the active timer.
func (s *Session) CountdownRemaining() (int, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.timer == nil {
		return 0, false
	}
	return s.timer.remaining, true
}

// broadcastTickUnsafe pushes the countdown value to the lobby. Assumes lock is held.
func (s *Session) broadcastTickUnsafe(remaining int) {
	s.broadcastUnsafe(map[string]interface{}{
		"type":    "countdown_tick",
		"seconds": remaining,
	})
}

// earlyGraceUnsafe evaluates early-completion eligibility for the current
// substep: once every expected actor has acted, the remaining time collapses
// to the substep's grace value. Assumes lock is held.
func (s *Session) earlyGraceUnsafe() (int, bool) {
	switch {
	case s.Substep == SubstepWitch:
		if s.WitchSkipped {
			return GraceImmediate, true
		}
		if s.WitchSave != nil || s.WitchKill != nil {
			return GraceWitchChosen, true
		}
	case s.Substep == SubstepForeteller:
		if s.ForetellerRevealed != nil {
			return GraceForetellerReveal, true
		}
	case s.Phase == PhaseNight && s.Substep == SubstepWerewolves:
		wolves := 0
		for _, p := range s.Players {
			if p.Alive && p.IsWerewolf() {
				wolves++
				if p.Vote == "" {
					return 0, false
				}
			}
		}
		if wolves > 0 {
			return GraceImmediate, true
		}
	case s.Phase == PhaseDay && s.Substep == SubstepVote:
		living := 0
		for _, p := range s.Players {
			if p.Alive {
				living++
				if p.Vote == "" {
					return 0, false
				}
			}
		}
		if living > 0 {
			return GraceImmediate, true
		}
	}
	return 0, false
}
