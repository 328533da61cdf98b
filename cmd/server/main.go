// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/moonhollow/werewolf-service/internal/auth"
	"github.com/moonhollow/werewolf-service/internal/cache"
	"github.com/moonhollow/werewolf-service/internal/database"
	"github.com/moonhollow/werewolf-service/internal/handlers"
	"github.com/moonhollow/werewolf-service/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Redis journal and Postgres archive are both optional: the engine is
	// fully in-memory and degrades to no journaling / no archival.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("Redis unavailable, action journaling disabled: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		if err := database.Connect(context.Background()); err != nil {
			logger.Warnf("Postgres unavailable, match archival disabled: %v", err)
		} else {
			defer database.Close()
		}
	}

	srv := handlers.NewGameServer(logger)
	mux := http.NewServeMux()

	// lobby endpoints
	mux.Handle("/lobby/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateLobbyHandler(srv),
	)))
	mux.Handle("/lobby/check", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CheckLobbyHandler(srv),
	)))
	mux.Handle("/lobby/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListLobbiesHandler(srv),
	)))
	mux.Handle("/lobby/qr", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.LobbyQRHandler(srv),
	)))

	// player endpoints
	mux.Handle("/player/sessions", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.PlayerSessionsHandler(srv),
	)))

	// session websocket
	mux.Handle("/session/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SessionWSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
