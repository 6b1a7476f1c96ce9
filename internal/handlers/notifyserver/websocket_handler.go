package notifyserver

import (
	"log"
	"net/http"

	"campusnet/internal/auth"
	"campusnet/internal/config"
	"campusnet/internal/middleware"
	ws "campusnet/internal/websocket"
)

// WebSocketHandler upgrades authenticated connections and attaches
// them to the notification hub.
type WebSocketHandler struct {
	hub      *ws.Hub
	verifier auth.Verifier
	policy   auth.Policy
	cfg      config.Config
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(hub *ws.Hub, verifier auth.Verifier, policy auth.Policy, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		policy:   policy,
		cfg:      cfg,
	}
}

// ServeWS handles incoming WebSocket requests. The bearer credential
// arrives as a token query parameter because browsers cannot set
// headers on WebSocket handshakes. Unauthenticated connections are
// rejected; there is nothing to push to an anonymous client.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	principal, err := middleware.VerifyWebSocketToken(r.Context(), h.verifier, h.policy, token)
	if err != nil {
		log.Printf("WebSocket connection rejected: %v", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws.ServeWsPerConnection(h.hub, principal.UID, w, r, h.cfg.WebSocket)
}
