package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/todo-backend/internal/middleware"
	"github.com/AnshRaj112/todo-backend/internal/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 4 * 1024
)

// EventSubscriber hands out per-account task event streams.
type EventSubscriber interface {
	Subscribe(userID int64) (<-chan models.TaskEvent, func())
}

// ConnectedMessage is the first frame sent on a new connection.
type ConnectedMessage struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

type RealtimeHandler struct {
	verifier middleware.TokenVerifier
	events   EventSubscriber
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(verifier middleware.TokenVerifier, events EventSubscriber) *RealtimeHandler {
	return &RealtimeHandler{
		verifier: verifier,
		events:   events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is enforced at the HTTP layer; the token decides access.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Todos handles GET /ws/todos and streams the caller's task events.
// Browsers cannot set headers on a WebSocket handshake, so the token may also
// come from the token query parameter.
func (h *RealtimeHandler) Todos(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	events, unsubscribe := h.events.Subscribe(userID)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reader: only keeps deadlines fresh and notices disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(ConnectedMessage{Type: "connected", UserID: userID}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				log.Printf("websocket write for user %d failed: %v", userID, err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
