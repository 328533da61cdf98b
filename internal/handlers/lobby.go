// internal/handlers/lobby.go
package handlers

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/moonhollow/werewolf-service/internal/game"
	"github.com/moonhollow/werewolf-service/internal/models"
)

// lobbyIDAlphabet excludes easily-confused characters (0/O, 1/I/L) so the
// code survives being read aloud or typed from a screenshot.
const lobbyIDAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const lobbyIDLength = 6

// newLobbyID generates a short join code. Collisions are handled by the
// store's fail-fast create, not here.
func newLobbyID() string {
	b := make([]byte, lobbyIDLength)
	max := big.NewInt(int64(len(lobbyIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process is in serious trouble;
			// fall back to a fixed index rather than crash lobby creation.
			n = big.NewInt(int64(i) % int64(len(lobbyIDAlphabet)))
		}
		b[i] = lobbyIDAlphabet[n.Int64()]
	}
	return string(b)
}

type createLobbyRequest struct {
	HostName     string            `json:"hostName"`
	RoleCounts   models.RoleCounts `json:"roleCounts"`
	TotalPlayers int               `json:"totalPlayers"`
}

// CreateLobbyHandler creates an ephemeral in-memory session: no DB writes.
// The caller becomes host and is seated immediately; the response carries the
// lobby snapshot including the generated join code.
func CreateLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		hostID, err := EnsureEphemeralPlayer(w, r)
		if err != nil {
			http.Error(w, "failed to establish player identity", http.StatusInternalServerError)
			return
		}

		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}

		var sess *game.Session
		for attempt := 0; attempt < 5; attempt++ {
			sess, err = gs.Store.Create(newLobbyID(), hostID, req.RoleCounts, req.TotalPlayers)
			if !errors.Is(err, game.ErrSessionExists) {
				break
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, game.ErrInvalidRoleCounts), errors.Is(err, game.ErrInvalidCapacity):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, game.ErrSessionExists):
			http.Error(w, "could not allocate a lobby id", http.StatusConflict)
			return
		default:
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		if err := sess.JoinLobby(hostID, req.HostName); err != nil {
			// A freshly created lobby always has room for its host.
			gs.Logger.Warnf("Lobby %s: failed to seat host %s: %v", sess.LobbyID, hostID, err)
			http.Error(w, "failed to seat host", http.StatusInternalServerError)
			return
		}

		gs.Logger.WithFields(map[string]interface{}{
			"lobby": sess.LobbyID,
			"host":  hostID,
		}).Info("Lobby created")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess.Snapshot())
	}
}

// CheckLobbyHandler reports whether the caller could join the lobby named by
// the ?lobby_id query param. Clients probe this before opening the websocket.
func CheckLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := EnsureEphemeralPlayer(w, r)
		if err != nil {
			http.Error(w, "failed to establish player identity", http.StatusInternalServerError)
			return
		}
		lobbyID := r.URL.Query().Get("lobby_id")
		if lobbyID == "" {
			http.Error(w, "missing lobby_id", http.StatusBadRequest)
			return
		}

		sess, ok := gs.Store.Get(lobbyID)
		resp := map[string]interface{}{
			"lobbyId":  lobbyID,
			"exists":   ok,
			"joinable": ok && sess.Joinable(playerID),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// ListLobbiesHandler returns snapshots of every session still gathering
// players, for a public lobby browser.
func ListLobbiesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbies := gs.Store.Lobbies()
		if lobbies == nil {
			lobbies = []game.Snapshot{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lobbies)
	}
}

// LobbyQRHandler renders a PNG QR code encoding the join URL for a lobby, so
// a host can put the code on a shared screen and players join by scanning.
func LobbyQRHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID := r.URL.Query().Get("lobby_id")
		if lobbyID == "" {
			http.Error(w, "missing lobby_id", http.StatusBadRequest)
			return
		}
		if _, ok := gs.Store.Get(lobbyID); !ok {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		base := os.Getenv("PUBLIC_BASE_URL")
		if base == "" {
			base = "http://" + r.Host
		}
		joinURL := fmt.Sprintf("%s/join/%s", base, lobbyID)

		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			gs.Logger.Warnf("Lobby %s: failed to encode QR: %v", lobbyID, err)
			http.Error(w, "failed to render QR code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}
}

// PlayerSessionsHandler returns the session paths the caller is seated in, so
// a returning client can resume a lobby or a running game after a reload.
func PlayerSessionsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := EnsureEphemeralPlayer(w, r)
		if err != nil {
			http.Error(w, "failed to establish player identity", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"playerId": playerID,
			"sessions": gs.Store.PlayerSessions(playerID),
		})
	}
}
