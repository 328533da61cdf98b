// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/moonhollow/werewolf-service/internal/game"
	"github.com/moonhollow/werewolf-service/internal/middleware"
	"github.com/moonhollow/werewolf-service/internal/models"
)

// SessionWSHandler upgrades the connection and attaches the player to the
// session named in the URL. The socket is the only transport for in-session
// actions; HTTP handles nothing past lobby creation.
func SessionWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/session/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "missing lobby_id", http.StatusBadRequest)
			return
		}
		lobbyID := pathParts[0]

		// A presented-but-invalid token is refused with a dedicated close code
		// after the upgrade; the fresh cookie EnsureEphemeralPlayer sets below
		// lets the client reconnect with a clean identity.
		badToken := presentedTokenInvalid(r.Header.Get("Cookie"))

		// Resolve identity before the upgrade so the cookie can still be set.
		playerID, err := EnsureEphemeralPlayer(w, r)
		if err != nil {
			logger.Warnf("Player authentication failed for session %s: %v", lobbyID, err)
			http.Error(w, "failed to establish player identity", http.StatusInternalServerError)
			return
		}
		playerName := r.URL.Query().Get("name")

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"werewolf"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "werewolf" {
			c.Close(BadSubprotocolError, "client must speak the werewolf subprotocol")
			return
		}
		if badToken {
			c.Close(InvalidAuthTokenError, "invalid player token; reconnect to use the fresh identity")
			return
		}

		sess, exists := gs.Store.Get(lobbyID)
		if !exists {
			c.Close(InvalidLobbyIDError, "session does not exist")
			return
		}

		if err := sess.JoinLobby(playerID, playerName); err != nil {
			c.Close(websocket.StatusPolicyViolation, fmt.Sprintf("cannot join: %v", err))
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &game.SessionConn{
			PlayerID: playerID,
			Name:     playerName,
			Cancel:   cancel,
			OutChan:  make(chan map[string]interface{}, 32),
		}
		sess.RegisterConn(conn)

		logger.Infof("Player %s (%s) connected to session %s", playerID, remoteAddr, lobbyID)

		go sessionWritePump(ctx, c, conn, logger)

		// Blocks until the connection closes or errors.
		readErr := sessionReadPump(ctx, c, sess, conn, logger)

		// ---- Cleanup after readPump exits ----
		// A lobby-phase disconnect unseats the player; once the game has
		// started only the transport is dropped so the same id can rejoin.
		// A stale instance (already replaced by a reconnect) must not unseat
		// the player's live connection.
		sess.Mu.Lock()
		stillCurrent := sess.Connections[playerID] == conn
		phase := sess.Phase
		sess.Mu.Unlock()
		if stillCurrent && phase == game.PhaseLobby {
			sess.RemovePlayer(playerID)
		} else {
			sess.DropConn(conn)
		}
		cancel()
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}

// sessionReadPump handles incoming packets from the session websocket. Packet
// handlers lock the session internally, so dispatch here is lock-free. Returns
// the read error that ended the pump, nil for a clean closure.
func sessionReadPump(ctx context.Context, c *websocket.Conn, sess *game.Session, conn *game.SessionConn, logger *logrus.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.Warnf("Session %s: Received non-text message type %d from player %s. Ignoring.", sess.LobbyID, typ, conn.PlayerID)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("Session %s: Invalid json from player %s: %v", sess.LobbyID, conn.PlayerID, err)
			conn.WriteError("Invalid JSON format")
			continue
		}

		if left := handleSessionMessage(packet, sess, conn, logger); left {
			return nil
		}
	}
}

// handleSessionMessage interprets the "type" field of an inbound packet.
// Returns true when the player has left and the pump should exit.
func handleSessionMessage(packet map[string]interface{}, sess *game.Session, conn *game.SessionConn, logger *logrus.Logger) bool {
	action, _ := packet["type"].(string)

	switch action {
	case "leave_lobby":
		sess.RemovePlayer(conn.PlayerID)
		return true

	case "kick_player":
		targetID, _ := packet["playerId"].(string)
		if !sess.IsHost(conn.PlayerID) {
			conn.WriteError("Only the host can kick players")
			return false
		}
		if targetID == "" || targetID == conn.PlayerID {
			conn.WriteError("Invalid kick target")
			return false
		}
		sess.Mu.Lock()
		if target, ok := sess.Connections[targetID]; ok {
			target.Write(map[string]interface{}{"type": "kicked"})
		}
		sess.Mu.Unlock()
		sess.RemovePlayer(targetID)

	case "start_game":
		if err := sess.StartGame(conn.PlayerID); err != nil {
			conn.WriteError(err.Error())
		}

	case "join_game":
		snap, err := sess.JoinGame(conn.PlayerID)
		if err != nil {
			conn.Write(map[string]interface{}{
				"type":    "join_error",
				"message": err.Error(),
			})
			return false
		}
		conn.Write(map[string]interface{}{
			"type":    "game_state",
			"session": snap,
		})

	case "foreteller_select":
		targetID, _ := packet["playerId"].(string)
		sess.ForetellerSelect(conn.PlayerID, targetID)

	case "request_countdown":
		remaining, running := sess.CountdownRemaining()
		if running {
			conn.Write(map[string]interface{}{
				"type":    "countdown_tick",
				"seconds": remaining,
			})
		}

	case "vote":
		target, _ := packet["target"].(string)
		if target == "" {
			conn.WriteError("Missing vote target")
			return false
		}
		sess.CastVote(conn.PlayerID, target)

	case "witch_save":
		targetID, _ := packet["playerId"].(string)
		sess.WitchSaveTarget(conn.PlayerID, targetID)

	case "witch_kill_begin":
		sess.WitchKillBegin(conn.PlayerID)

	case "witch_kill":
		targetID, _ := packet["playerId"].(string)
		sess.WitchKillTarget(conn.PlayerID, targetID)

	case "witch_skip":
		sess.WitchSkip(conn.PlayerID)

	case "chat":
		text, _ := packet["msg"].(string)
		channel, _ := packet["channel"].(string)
		if channel == "" {
			channel = string(models.ChannelGame)
		}
		if text != "" {
			sess.PostMessage(conn.PlayerID, text, models.Channel(channel))
		}

	default:
		logger.Warnf("Session %s: Unknown action '%s' from player %s", sess.LobbyID, action, conn.PlayerID)
		conn.WriteError(fmt.Sprintf("Unknown action type: %s", action))
	}
	return false
}

// sessionWritePump drains OutChan onto the wire and pings periodically so
// half-dead connections get noticed.
func sessionWritePump(ctx context.Context, c *websocket.Conn, conn *game.SessionConn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	defer func() {
		_ = c.Close(websocket.StatusGoingAway, "write pump stopping")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				// Channel closed; player was removed or replaced.
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Session: failed to marshal outgoing msg for player %s: %v", conn.PlayerID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Session: failed to write to websocket for player %s: %v", conn.PlayerID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Session: ping failed for player %s: %v. Assuming disconnect.", conn.PlayerID, err)
				return
			}
		}
	}
}
