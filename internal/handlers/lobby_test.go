// internal/handlers/lobby_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/moonhollow/werewolf-service/internal/auth"
	"github.com/moonhollow/werewolf-service/internal/game"
	"github.com/moonhollow/werewolf-service/internal/models"
)

func newCounts() models.RoleCounts {
	return models.RoleCounts{Werewolves: 1, Villagers: 3}
}

func newTestServer() *GameServer {
	auth.Init() // ephemeral keys, no DB needed
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewGameServer(logger)
}

// TestLobbyCreate checks that /lobby/create builds an ephemeral session in
// memory with the caller seated as host.
func TestLobbyCreate(t *testing.T) {
	gs := newTestServer()

	body := `{"hostName":"Alice","roleCounts":{"werewolves":1,"villagers":3,"witches":1},"totalPlayers":5}`
	req := httptest.NewRequest("POST", "/lobby/create?player_id=alice", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	CreateLobbyHandler(gs).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var snap game.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.LobbyID == "" {
		t.Fatalf("lobby has no ID")
	}
	if snap.HostID != "alice" {
		t.Fatalf("lobby host mismatch, expected alice got %v", snap.HostID)
	}
	if len(snap.Players) != 1 || snap.Players[0].ID != "alice" {
		t.Fatalf("host not seated: %+v", snap.Players)
	}
	if snap.Phase != game.PhaseLobby {
		t.Fatalf("expected lobby phase, got %v", snap.Phase)
	}

	// The response must carry a player_token cookie pinning the identity.
	cookies := w.Result().Cookies()
	var token string
	for _, c := range cookies {
		if c.Name == "player_token" {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatalf("no player_token cookie set")
	}
	if id, err := auth.VerifyPlayerToken(token); err != nil || id != "alice" {
		t.Fatalf("token does not verify to alice: %v %v", id, err)
	}
}

// TestLobbyCreateRejectsBadCounts checks that the creator gets an explicit
// error for invalid role distributions and capacities.
func TestLobbyCreateRejectsBadCounts(t *testing.T) {
	gs := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"no werewolves", `{"hostName":"A","roleCounts":{"villagers":4},"totalPlayers":4}`},
		{"two witches", `{"hostName":"A","roleCounts":{"werewolves":1,"villagers":2,"witches":2},"totalPlayers":5}`},
		{"capacity too small", `{"hostName":"A","roleCounts":{"werewolves":1,"villagers":1},"totalPlayers":2}`},
		{"counts exceed capacity", `{"hostName":"A","roleCounts":{"werewolves":2,"villagers":3},"totalPlayers":4}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("POST", "/lobby/create", bytes.NewBufferString(tc.body))
		w := httptest.NewRecorder()
		CreateLobbyHandler(gs).ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestCheckLobby(t *testing.T) {
	gs := newTestServer()

	if _, err := gs.Store.Create("ROOM1", "host", newCounts(), 4); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest("GET", "/lobby/check?lobby_id=ROOM1&player_id=bob", nil)
	w := httptest.NewRecorder()
	CheckLobbyHandler(gs).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["exists"] != true || resp["joinable"] != true {
		t.Fatalf("expected joinable lobby, got %v", resp)
	}

	req = httptest.NewRequest("GET", "/lobby/check?lobby_id=NOPE&player_id=bob", nil)
	w = httptest.NewRecorder()
	CheckLobbyHandler(gs).ServeHTTP(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["exists"] != false || resp["joinable"] != false {
		t.Fatalf("expected missing lobby, got %v", resp)
	}

	req = httptest.NewRequest("GET", "/lobby/check", nil)
	w = httptest.NewRecorder()
	CheckLobbyHandler(gs).ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without lobby_id, got %d", w.Code)
	}
}

func TestListLobbies(t *testing.T) {
	gs := newTestServer()

	req := httptest.NewRequest("GET", "/lobby/list", nil)
	w := httptest.NewRecorder()
	ListLobbiesHandler(gs).ServeHTTP(w, req)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}

	if _, err := gs.Store.Create("ROOM1", "host", newCounts(), 4); err != nil {
		t.Fatalf("create: %v", err)
	}
	w = httptest.NewRecorder()
	ListLobbiesHandler(gs).ServeHTTP(w, req)
	var lobbies []game.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &lobbies); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lobbies) != 1 || lobbies[0].LobbyID != "ROOM1" {
		t.Fatalf("expected ROOM1, got %+v", lobbies)
	}
}

func TestLobbyQR(t *testing.T) {
	gs := newTestServer()
	if _, err := gs.Store.Create("ROOM1", "host", newCounts(), 4); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest("GET", "/lobby/qr?lobby_id=ROOM1", nil)
	w := httptest.NewRecorder()
	LobbyQRHandler(gs).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("empty PNG body")
	}

	req = httptest.NewRequest("GET", "/lobby/qr?lobby_id=NOPE", nil)
	w = httptest.NewRecorder()
	LobbyQRHandler(gs).ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown lobby, got %d", w.Code)
	}
}

func TestPlayerSessions(t *testing.T) {
	gs := newTestServer()
	sess, err := gs.Store.Create("ROOM1", "carol", newCounts(), 4)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sess.JoinLobby("carol", "Carol"); err != nil {
		t.Fatalf("join: %v", err)
	}

	req := httptest.NewRequest("GET", "/player/sessions?player_id=carol", nil)
	w := httptest.NewRecorder()
	PlayerSessionsHandler(gs).ServeHTTP(w, req)
	var resp struct {
		PlayerID string   `json:"playerId"`
		Sessions []string `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PlayerID != "carol" {
		t.Fatalf("expected carol, got %s", resp.PlayerID)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0] != "lobby/ROOM1" {
		t.Fatalf("expected [lobby/ROOM1], got %v", resp.Sessions)
	}
}
