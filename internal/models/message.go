// internal/models/message.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel names a chat log within a session. Posting rights are decided by
// the engine from the current phase/substep and the sender's state.
type Channel string

const (
	ChannelGame     Channel = "game"
	ChannelWerewolf Channel = "werewolf"
	ChannelDead     Channel = "dead"
)

// Message is a single chat entry, append-only once stored.
type Message struct {
	ID       uuid.UUID `json:"id"`
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	Channel  Channel   `json:"channel"`
	Ts       int64     `json:"ts"`
}

// NewMessage stamps a message with a fresh id and the current unix time.
func NewMessage(playerID, name, text string, ch Channel) Message {
	id, _ := uuid.NewRandom()
	return Message{
		ID:       id,
		PlayerID: playerID,
		Name:     name,
		Text:     text,
		Channel:  ch,
		Ts:       time.Now().Unix(),
	}
}
