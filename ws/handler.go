package ws

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// TokenValidator is the slice of services.AuthService the handler needs.
// Declared here so ws does not import services.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// Handler upgrades GET /ws requests.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	upgrader       websocket.Upgrader
}

// NewHandler accepts browser origins from allowedOrigins; requests without
// an Origin header (CLI, tests) are always accepted.
func NewHandler(hub *Hub, tokenValidator TokenValidator, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || slices.Contains(allowedOrigins, "*") {
					return true
				}
				if slices.Contains(allowedOrigins, origin) {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

// HandleConnection authenticates with ?token= (browsers cannot set headers
// on a websocket handshake), then blocks in ReadPump.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Debug("upgrade failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan []byte, sendBufferSize),
	}

	// Queued before registration so it is always the first frame.
	if ready, err := json.Marshal(Event{Op: OpReady, Data: ReadyData{UserID: claims.UserID, Username: claims.Username}}); err == nil {
		client.send <- ready
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
