// internal/game/chat.go
package game

import (
	"strings"

	"github.com/moonhollow/werewolf-service/internal/models"
)

// PostMessage appends a chat message to one of the session's channels if the
// sender may post there right now, and fans it out to that channel's audience.
// Gating is decided entirely by phase/substep and the sender's state:
//
//	game:     open through lobby, start, day and end; closed at night; the
//	          dead never post here once the game is underway.
//	werewolf: living werewolves, night only.
//	dead:     dead players, any phase.
//
// An unauthorized post is a silent no-op.
func (s *Session) PostMessage(actorID, text string, ch models.Channel) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()

	sender, ok := s.Players[actorID]
	if !ok {
		return
	}

	switch ch {
	case models.ChannelGame:
		switch s.Phase {
		case PhaseLobby, PhaseStart, PhaseEnd:
		case PhaseDay:
			if !sender.Alive {
				return
			}
		default:
			return
		}
	case models.ChannelWerewolf:
		if s.Phase != PhaseNight || !sender.Alive || !sender.IsWerewolf() {
			return
		}
	case models.ChannelDead:
		if sender.Alive {
			return
		}
	default:
		return
	}

	msg := models.NewMessage(actorID, sender.Name, text, ch)
	payload := map[string]interface{}{
		"type":    "chat",
		"message": msg,
	}

	switch ch {
	case models.ChannelGame:
		s.GameChat = append(s.GameChat, msg)
		s.broadcastUnsafe(payload)
	case models.ChannelWerewolf:
		s.WerewolfChat = append(s.WerewolfChat, msg)
		for id, p := range s.Players {
			if p.IsWerewolf() {
				s.broadcastToPlayerUnsafe(id, payload)
			}
		}
	case models.ChannelDead:
		s.DeadChat = append(s.DeadChat, msg)
		for id, p := range s.Players {
			if !p.Alive {
				s.broadcastToPlayerUnsafe(id, payload)
			}
		}
	}

	s.logAction(actorID, "chat", map[string]interface{}{"channel": string(ch)})
}
