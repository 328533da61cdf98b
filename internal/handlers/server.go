// internal/handlers/server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/moonhollow/werewolf-service/internal/game"
)

// GameServer is a high-level struct that holds the session store and the
// shared logger. Every HTTP and WS handler hangs off of it so tests can
// construct an isolated server.
type GameServer struct {
	Store  *game.SessionStore
	Logger *logrus.Logger
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &GameServer{
		Store:  game.NewSessionStore(),
		Logger: logger,
	}
}
