// internal/handlers/identity.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/moonhollow/werewolf-service/internal/auth"
)

// EnsureEphemeralPlayer resolves the caller's player identity. A valid
// player_token cookie wins; otherwise a fresh identity is minted (preferring
// the client-proposed player_id query param, falling back to a random uuid)
// and pinned in a new cookie. There is no account system behind this: the
// token only proves the same client is reconnecting as the same player.
func EnsureEphemeralPlayer(w http.ResponseWriter, r *http.Request) (string, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, "player_token=") {
		token := extractCookieToken(cookieHeader, "player_token")
		playerID, err := auth.VerifyPlayerToken(token)
		if err == nil && playerID != "" {
			return playerID, nil
		}
		// Fall through and mint a fresh identity on a bad token.
	}

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = uuid.NewString()
	}

	newToken, err := auth.CreatePlayerToken(playerID)
	if err != nil {
		return "", fmt.Errorf("failed to create player token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "player_token",
		Value:    newToken,
		HttpOnly: true,
		Path:     "/",
	})
	return playerID, nil
}

// presentedTokenInvalid reports whether the request carries a player_token
// cookie that fails verification. The HTTP endpoints silently re-mint such an
// identity; the WS path refuses it instead, so a mid-game reconnect can never
// silently come back as a different player.
func presentedTokenInvalid(cookieHeader string) bool {
	if !strings.Contains(cookieHeader, "player_token=") {
		return false
	}
	_, err := auth.VerifyPlayerToken(extractCookieToken(cookieHeader, "player_token"))
	return err != nil
}

// extractCookieToken extracts a named cookie value from the "Cookie" header,
// or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}
