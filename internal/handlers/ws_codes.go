// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used within the session handlers.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Presented player token was invalid or expired.
	InvalidLobbyIDError   = 3002 // Target lobby ID specified in the WS URL does not exist or is invalid.
)
