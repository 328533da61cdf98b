// internal/game/actions.go
package game

import (
	"github.com/moonhollow/werewolf-service/internal/models"
)

// ForetellerSelect records the foreteller's one reveal for this night. The
// guard ladder mirrors the rest of the engine: wrong phase, wrong actor, dead
// actor, unknown target, or a reveal already made are all silent no-ops.
// Non-foreteller clients get a dedicated reveal event so the card flip can be
// narrated separately from the snapshot the foreteller's own client reads.
func (s *Session) ForetellerSelect(actorID, targetID string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase != PhaseNight || s.Substep != SubstepForeteller {
		return
	}
	actor, ok := s.Players[actorID]
	if !ok || !actor.Alive || actor.Role != models.RoleForeteller {
		return
	}
	if s.ForetellerRevealed != nil {
		return // one reveal per night
	}
	target, ok := s.Players[targetID]
	if !ok {
		return
	}

	s.ForetellerRevealed = target
	s.logAction(actorID, "foreteller_revealed", map[string]interface{}{"target": targetID})

	reveal := map[string]interface{}{
		"type":   "foreteller_reveal",
		"player": *target,
	}
	for id, p := range s.Players {
		if p.Role != models.RoleForeteller {
			s.broadcastToPlayerUnsafe(id, reveal)
		}
	}
	s.broadcastGameUpdatedUnsafe()
}

// witchActorUnsafe validates the witch-substep actor. Assumes lock is held.
func (s *Session) witchActorUnsafe(actorID string) (*models.Player, bool) {
	if s.Phase != PhaseNight || s.Substep != SubstepWitch {
		return nil, false
	}
	actor, ok := s.Players[actorID]
	if !ok || !actor.Alive || actor.Role != models.RoleWitch {
		return nil, false
	}
	return actor, true
}

// WitchSaveTarget spends the witch's once-per-game save on a target, normally
// the werewolves' staged victim. Ignored once the save budget is spent or the
// witch already skipped this night.
func (s *Session) WitchSaveTarget(actorID, targetID string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if _, ok := s.witchActorUnsafe(actorID); !ok {
		return
	}
	if s.WitchSaved || s.WitchSkipped {
		return
	}
	target, ok := s.Players[targetID]
	if !ok {
		return
	}

	s.WitchSave = target
	s.WitchSaved = true
	s.WitchKilling = false
	s.logAction(actorID, "witch_saved", map[string]interface{}{"target": targetID})
	s.broadcastGameUpdatedUnsafe()
}

// WitchKillBegin enters the in-progress kill choice: the witch has committed
// to killing but still owes a target pick before it finalizes.
func (s *Session) WitchKillBegin(actorID string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if _, ok := s.witchActorUnsafe(actorID); !ok {
		return
	}
	if s.WitchKilled || s.WitchSkipped {
		return
	}

	s.WitchKilling = true
	s.logAction(actorID, "witch_killing", nil)
	s.broadcastGameUpdatedUnsafe()
}

// WitchKillTarget finalizes the witch's once-per-game kill. Requires the
// in-progress state set by WitchKillBegin and a living target.
func (s *Session) WitchKillTarget(actorID, targetID string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if _, ok := s.witchActorUnsafe(actorID); !ok {
		return
	}
	if s.WitchKilled || s.WitchSkipped || !s.WitchKilling {
		return
	}
	target, ok := s.Players[targetID]
	if !ok || !target.Alive {
		return
	}

	s.WitchKill = target
	s.WitchKilled = true
	s.WitchKilling = false
	s.logAction(actorID, "witch_killed", map[string]interface{}{"target": targetID})
	s.broadcastGameUpdatedUnsafe()
}

// WitchSkip forfeits the witch's action for this night only; the save and
// kill budgets stay whatever they were.
func (s *Session) WitchSkip(actorID string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if _, ok := s.witchActorUnsafe(actorID); !ok {
		return
	}

	s.WitchSkipped = true
	s.WitchKilling = false
	s.logAction(actorID, "witch_skipped", nil)
	s.broadcastGameUpdatedUnsafe()
}
