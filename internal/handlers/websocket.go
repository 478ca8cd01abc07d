package handlers

import (
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/middleware"
	"github.com/thereayou/study-room/internal/rooms"
	ws "github.com/thereayou/study-room/internal/websocket"
)

// WebSocketHandler serves the live study-room view.
type WebSocketHandler struct {
	hub      *ws.Hub
	repo     *rooms.Repository
	feed     rooms.MessageFeed
	clock    clock.Clock
	pomodoro time.Duration
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, repo *rooms.Repository, feed rooms.MessageFeed, clk clock.Clock, pomodoro time.Duration, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		repo:     repo,
		feed:     feed,
		clock:    clk,
		pomodoro: pomodoro,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleRoom upgrades the connection and runs one room view until the peer
// disconnects. Everything the view started is stopped before it returns.
func (h *WebSocketHandler) HandleRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	provider := middleware.CurrentProvider(c)
	if provider == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "redirect": "/login"})
		return
	}
	sess := provider.Current()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, sess.UserID, sess.SenderName())
	h.hub.Register(client)
	go client.WritePump()

	view := newRoomView(roomID, client, h.hub, provider, h.clock, h.pomodoro)
	view.controller = rooms.NewController(h.repo, h.feed, sess, h.clock, view)
	view.open()
	client.ReadPump(view)
	view.close()
}

// errorKind names an error for the client.
func errorKind(err error) string {
	switch {
	case apperrors.IsValidation(err):
		return "validation"
	case apperrors.IsNotFound(err):
		return "not_found"
	case apperrors.IsTransient(err):
		return "transient"
	default:
		return "internal"
	}
}
