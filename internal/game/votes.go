// internal/game/votes.go
package game

import (
	"github.com/moonhollow/werewolf-service/internal/models"
)

// CastVote records, moves, or toggles a vote for the current voting substep
// (werewolves at night, the whole village by day). Invalid actors and targets
// are deliberate no-ops rather than errors.
//
// Semantics: voting the same target again clears the vote; voting a different
// target moves it (old target's tally decremented, new target's incremented);
// skip is tracked on the voter only and never touches a tally.
func (s *Session) CastVote(voterID, target string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	voter, ok := s.Players[voterID]
	if !ok || !voter.Alive {
		return
	}
	switch {
	case s.Phase == PhaseNight && s.Substep == SubstepWerewolves:
		if !voter.IsWerewolf() {
			return
		}
	case s.Phase == PhaseDay && s.Substep == SubstepVote:
	default:
		return
	}
	if target != models.VoteSkip {
		tp, exists := s.Players[target]
		if !exists || !tp.Alive {
			return
		}
	}

	if voter.Vote == target {
		// Toggle off.
		if target != models.VoteSkip {
			s.Players[target].NumVotes--
		}
		voter.Vote = ""
	} else {
		if voter.Vote != "" && voter.Vote != models.VoteSkip {
			if prev, exists := s.Players[voter.Vote]; exists {
				prev.NumVotes--
			}
		}
		voter.Vote = target
		if target != models.VoteSkip {
			s.Players[target].NumVotes++
		}
	}

	s.logAction(voterID, "player_voted", map[string]interface{}{"target": target})
	s.broadcastGameUpdatedUnsafe()
}

// countVotesUnsafe applies the tally policy and returns the candidates tied
// for the most votes. The skip total seeds the maximum, so skip can win (or a
// tie with skip can force a no-result); only a strict majority over both zero
// and the skip total elects a target. The consuming resolver acts only when
// exactly one candidate comes back; any tie eliminates nobody. Assumes lock
// is held.
func (s *Session) countVotesUnsafe() []*models.Player {
	skipVotes := 0
	for _, p := range s.Players {
		if p.Alive && p.Vote == models.VoteSkip {
			skipVotes++
		}
	}

	maxVotes := skipVotes
	for _, p := range s.Players {
		if p.Alive && p.NumVotes > maxVotes {
			maxVotes = p.NumVotes
		}
	}

	var candidates []*models.Player
	if maxVotes > 0 && maxVotes != skipVotes {
		for _, id := range s.sortedPlayerIDsUnsafe() {
			p := s.Players[id]
			if p.Alive && p.NumVotes == maxVotes {
				candidates = append(candidates, p)
			}
		}
	}
	return candidates
}

// CountVotes is the exported tally, for callers outside a resolution step.
func (s *Session) CountVotes() []*models.Player {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.countVotesUnsafe()
}

// resetVotesUnsafe returns every player to the neutral no-vote state.
// Assumes lock is held.
func (s *Session) resetVotesUnsafe() {
	for _, p := range s.Players {
		p.Vote = ""
		p.NumVotes = 0
	}
}
