// internal/game/snapshot.go
package game

import (
	"log"

	"github.com/moonhollow/werewolf-service/internal/models"
)

// Snapshot is the sanitized, serializable view of a session. It carries
// everything clients render and nothing else: the live timer handle in
// particular never leaves the engine.
type Snapshot struct {
	LobbyID      string            `json:"lobbyId"`
	HostID       string            `json:"hostId"`
	Phase        Phase             `json:"phase"`
	Substep      Substep           `json:"substep"`
	RoleCounts   models.RoleCounts `json:"roleCounts"`
	TotalPlayers int               `json:"totalPlayers"`
	DayNum       int               `json:"dayNum"`
	Countdown    *int              `json:"countdown,omitempty"`

	Players []models.Player `json:"players"`

	WerewolfKill *models.Player `json:"werewolfKill,omitempty"`
	WitchSave    *models.Player `json:"witchSave,omitempty"`
	WitchKill    *models.Player `json:"witchKill,omitempty"`
	VillageKill  *models.Player `json:"villageKill,omitempty"`

	WitchKilling bool `json:"witchKilling"`
	WitchSaved   bool `json:"witchSaved"`
	WitchKilled  bool `json:"witchKilled"`
	WitchSkipped bool `json:"witchSkipped"`

	ForetellerRevealed *models.Player `json:"foretellerRevealed,omitempty"`

	NightDeaths []models.Player `json:"nightDeaths,omitempty"`

	Winner Winner `json:"winner,omitempty"`

	GameChat     []models.Message `json:"gameChat"`
	WerewolfChat []models.Message `json:"werewolfChat"`
	DeadChat     []models.Message `json:"deadChat"`
}

// snapshotUnsafe builds the sanitized view. Everything is copied by value so
// the transport layer can serialize it after the lock is released without
// racing the engine. Assumes lock is held.
func (s *Session) snapshotUnsafe() Snapshot {
	snap := Snapshot{
		LobbyID:      s.LobbyID,
		HostID:       s.HostID,
		Phase:        s.Phase,
		Substep:      s.Substep,
		RoleCounts:   s.RoleCounts,
		TotalPlayers: s.TotalPlayers,
		DayNum:       s.DayNum,
		WitchKilling: s.WitchKilling,
		WitchSaved:   s.WitchSaved,
		WitchKilled:  s.WitchKilled,
		WitchSkipped: s.WitchSkipped,
		Winner:       s.Winner,
		GameChat:     append([]models.Message(nil), s.GameChat...),
		WerewolfChat: append([]models.Message(nil), s.WerewolfChat...),
		DeadChat:     append([]models.Message(nil), s.DeadChat...),
	}
	if s.timer != nil {
		remaining := s.timer.remaining
		snap.Countdown = &remaining
	}
	for _, id := range s.sortedPlayerIDsUnsafe() {
		snap.Players = append(snap.Players, *s.Players[id])
	}
	snap.WerewolfKill = copyPlayer(s.WerewolfKill)
	snap.WitchSave = copyPlayer(s.WitchSave)
	snap.WitchKill = copyPlayer(s.WitchKill)
	snap.VillageKill = copyPlayer(s.VillageKill)
	snap.ForetellerRevealed = copyPlayer(s.ForetellerRevealed)
	for _, p := range s.NightDeaths {
		snap.NightDeaths = append(snap.NightDeaths, *p)
	}
	return snap
}

// Snapshot returns the sanitized view of the session. Callers are expected to
// have confirmed the session exists before reading it.
func (s *Session) Snapshot() Snapshot {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Players == nil {
		// Should be unreachable; fail loudly in logs but never crash serving.
		log.Printf("Session %s: snapshot requested for uninitialized session", s.LobbyID)
	}
	return s.snapshotUnsafe()
}

func copyPlayer(p *models.Player) *models.Player {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
