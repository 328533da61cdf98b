// internal/game/session.go
package game

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/moonhollow/werewolf-service/internal/cache"
	"github.com/moonhollow/werewolf-service/internal/models"
)

// Phase is the coarse game state of a session.
type Phase string

const (
	PhaseLobby Phase = "lobby"
	PhaseStart Phase = "start"
	PhaseNight Phase = "night"
	PhaseDay   Phase = "day"
	PhaseEnd   Phase = "end"
)

// Substep is the fine-grained state within the night/day phases. It decides
// which action is currently awaited and which resolver runs on timer expiry.
type Substep string

const (
	SubstepNone       Substep = "none"
	SubstepForeteller Substep = "foreteller"
	SubstepWerewolves Substep = "werewolves"
	SubstepWitch      Substep = "witch"
	SubstepDeaths     Substep = "deaths"
	SubstepVote       Substep = "vote"
	SubstepResults    Substep = "results"
)

// Winner is the terminal outcome of a session.
type Winner string

const (
	WinnerNone       Winner = ""
	WinnerWerewolves Winner = "werewolves"
	WinnerVillagers  Winner = "villagers"
	WinnerDraw       Winner = "draw"
)

// Session holds the entire state for a single lobby/game instance in memory.
// All mutation happens under Mu; the countdown tick loop and every inbound
// action handler acquire it, so no two mutations to one session interleave.
type Session struct {
	LobbyID string
	HostID  string

	Players      map[string]*models.Player
	RoleCounts   models.RoleCounts
	TotalPlayers int

	Phase   Phase
	Substep Substep
	DayNum  int

	// In-flight or resolved night/day targets. Cleared at the transition
	// points defined by the resolver; never mutated by the transport layer.
	WerewolfKill *models.Player
	WitchSave    *models.Player
	WitchKill    *models.Player
	VillageKill  *models.Player

	WitchKilling bool // witch picked "kill" and still owes a target
	WitchSaved   bool // one-time save budget spent
	WitchKilled  bool // one-time kill budget spent
	WitchSkipped bool // witch forfeited this night

	ForetellerRevealed *models.Player

	// NightDeaths is computed once per night, shown through the deaths
	// substep, then cleared.
	NightDeaths []*models.Player

	Winner Winner

	GameChat     []models.Message
	WerewolfChat []models.Message
	DeadChat     []models.Message

	// Connections holds the live transport channels for seated players.
	Connections map[string]*SessionConn

	// BroadcastFn, when set, replaces fan-out over Connections. Used by tests.
	BroadcastFn func(msg map[string]interface{})
	// BroadcastToPlayerFn, when set, replaces the per-player path. Used by tests.
	BroadcastToPlayerFn func(playerID string, msg map[string]interface{})

	// OnEmpty is called after the last player leaves, typically wired to
	// SessionStore.Delete by the code that created the session.
	OnEmpty func(lobbyID string)

	// TickInterval is the countdown tick period. Tests shorten it; zero means
	// one second.
	TickInterval time.Duration

	Mu sync.Mutex

	timer       *countdown
	actionIndex int
	rng         *rand.Rand
}

// SessionConn is a single player's live presence in a session.
type SessionConn struct {
	PlayerID string
	Name     string
	Cancel   func()
	OutChan  chan map[string]interface{}

	mu     sync.Mutex
	closed bool
}

// Write pushes a message onto the player's OutChan non-blockingly. Writes
// after Close and writes to a full channel are dropped and logged: the read
// pump can race a kick or a reconnect replacement, so a late write must never
// panic the process.
func (conn *SessionConn) Write(msg map[string]interface{}) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.closed {
		msgType, _ := msg["type"].(string)
		log.Printf("SessionConn: OutChan for player %s closed, dropped %q", conn.PlayerID, msgType)
		return
	}
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("SessionConn: OutChan for player %s full, dropped %q", conn.PlayerID, msgType)
	}
}

// Close shuts the out channel exactly once and cancels the pumps. Safe to
// call from any goroutine and concurrently with Write.
func (conn *SessionConn) Close() {
	conn.mu.Lock()
	alreadyClosed := conn.closed
	conn.closed = true
	conn.mu.Unlock()
	if alreadyClosed {
		return
	}
	close(conn.OutChan)
	if conn.Cancel != nil {
		conn.Cancel()
	}
}

// WriteError is a convenience to send an error object to one player.
func (conn *SessionConn) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// NewSession builds a lobby-phase session. Callers seat the host afterwards
// via AddPlayer.
func NewSession(lobbyID, hostID string, counts models.RoleCounts, totalPlayers int) *Session {
	return &Session{
		LobbyID:      lobbyID,
		HostID:       hostID,
		Players:      make(map[string]*models.Player),
		RoleCounts:   counts,
		TotalPlayers: totalPlayers,
		Phase:        PhaseLobby,
		Substep:      SubstepNone,
		Connections:  make(map[string]*SessionConn),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// sortedPlayerIDsUnsafe returns seated player ids in deterministic key order.
// Assumes lock is held.
func (s *Session) sortedPlayerIDsUnsafe() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// livingCountsUnsafe tallies living werewolves and living non-werewolves.
// Assumes lock is held.
func (s *Session) livingCountsUnsafe() (wolves, others int) {
	for _, p := range s.Players {
		if !p.Alive {
			continue
		}
		if p.IsWerewolf() {
			wolves++
		} else {
			others++
		}
	}
	return wolves, others
}

// livingRoleUnsafe reports whether any living player holds the role.
// Assumes lock is held.
func (s *Session) livingRoleUnsafe(role models.Role) bool {
	for _, p := range s.Players {
		if p.Alive && p.Role == role {
			return true
		}
	}
	return false
}

// broadcastUnsafe fans a message out to every connected player. Assumes lock
// is held; writes are non-blocking so holding it is safe.
func (s *Session) broadcastUnsafe(msg map[string]interface{}) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(msg)
		return
	}
	for _, conn := range s.Connections {
		conn.Write(msg)
	}
}

// broadcastToPlayerUnsafe sends a message to one player only. Assumes lock is held.
func (s *Session) broadcastToPlayerUnsafe(playerID string, msg map[string]interface{}) {
	if s.BroadcastToPlayerFn != nil {
		s.BroadcastToPlayerFn(playerID, msg)
		return
	}
	if conn, ok := s.Connections[playerID]; ok {
		conn.Write(msg)
	}
}

// broadcastGameUpdatedUnsafe pushes the sanitized snapshot to the whole lobby.
// Every mutation path ends here so clients always see the latest state.
// Assumes lock is held.
func (s *Session) broadcastGameUpdatedUnsafe() {
	s.broadcastUnsafe(map[string]interface{}{
		"type":    "game_updated",
		"session": s.snapshotUnsafe(),
	})
}

// logAction publishes a journal record of a session mutation to Redis,
// asynchronously and nil-safe when Redis is not configured. Assumes lock is held.
func (s *Session) logAction(actorID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.SessionActionRecord{
		LobbyID:     s.LobbyID,
		ActionIndex: s.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func(rec cache.SessionActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishSessionAction(ctx, rec); err != nil {
			log.Printf("Session %s: failed to journal action %q: %v", rec.LobbyID, rec.ActionType, err)
		}
	}(record)
}
