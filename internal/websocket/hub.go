package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageType is the "type" of a websocket envelope.
type MessageType string

const (
	// System
	TypePing    MessageType = "ping"
	TypePong    MessageType = "pong"
	TypeError   MessageType = "error"
	TypeSession MessageType = "session"

	// Room view, server to client
	TypeRoomState   MessageType = "room_state"
	TypeRoomTick    MessageType = "room_tick"
	TypeRoomExpired MessageType = "room_expired"
	TypeMessages    MessageType = "messages"
	TypeTimer       MessageType = "timer"

	// Presence
	TypeRoomJoin  MessageType = "room_join"
	TypeRoomLeave MessageType = "room_leave"
	TypeRoomUsers MessageType = "room_users"

	// Room view, client to server
	TypeMessageSend  MessageType = "message_send"
	TypeTimerStart   MessageType = "timer_start"
	TypeTimerPause   MessageType = "timer_pause"
	TypeTimerReset   MessageType = "timer_reset"
	TypeErrorDismiss MessageType = "error_dismiss"
	TypeSignOut      MessageType = "sign_out"
)

const pingInterval = 30 * time.Second

type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Presence is one user currently viewing a room.
type Presence struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

// Hub tracks connected clients and which rooms they are viewing. Viewing is
// ephemeral and separate from room membership.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Clients by room
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu   sync.RWMutex
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	close(h.done)
	for id, client := range h.clients {
		client.closeSend()
		client.Conn.Close()
		delete(h.clients, id)
	}
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
	log.Println("Websocket hub stopped")
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, roomID := range client.GetRooms() {
		h.removeFromRoomUnsafe(client, roomID)
	}
	delete(h.clients, client.ID)
	client.closeSend()

	log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
}

// JoinRoom marks client as viewing roomID and refreshes the room's presence.
func (h *Hub) JoinRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}
	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()

	if data, err := envelope(TypeRoomJoin, &roomID, client.UserID, client.presence()); err == nil {
		h.broadcastToRoomExcept(roomID, data, client.ID)
	}
	h.broadcastRoomUsers(roomID)
}

// LeaveRoom stops client viewing roomID.
func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := room[client.ID]; !ok {
		return
	}

	delete(room, client.ID)
	client.mu.Lock()
	delete(client.Rooms, roomID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, roomID)
		return
	}

	if data, err := envelope(TypeRoomLeave, &roomID, client.UserID, client.presence()); err == nil {
		h.broadcastToRoomExcept(roomID, data, client.ID)
	}
	h.broadcastRoomUsers(roomID)
}

// SendToRoom delivers a raw envelope to every client viewing roomID.
func (h *Hub) SendToRoom(roomID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastToRoomExcept(roomID, message, uuid.Nil)
}

func (h *Hub) broadcastToRoomExcept(roomID uuid.UUID, message []byte, excludeID uuid.UUID) {
	for _, client := range h.rooms[roomID] {
		if client.ID == excludeID {
			continue
		}
		if !client.enqueue(message) {
			log.Printf("Client %s send channel full", client.ID)
		}
	}
}

func (h *Hub) broadcastRoomUsers(roomID uuid.UUID) {
	data, err := envelope(TypeRoomUsers, &roomID, uuid.Nil, h.roomUsersUnsafe(roomID))
	if err != nil {
		log.Printf("Failed to encode room users for %s: %v", roomID, err)
		return
	}
	h.broadcastToRoomExcept(roomID, data, uuid.Nil)
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := envelope(TypePing, nil, uuid.Nil, nil)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		client.enqueue(data)
	}
}

// GetRoomUsers lists the distinct users viewing roomID, ordered by name.
func (h *Hub) GetRoomUsers(roomID uuid.UUID) []Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.roomUsersUnsafe(roomID)
}

func (h *Hub) roomUsersUnsafe(roomID uuid.UUID) []Presence {
	seen := make(map[uuid.UUID]bool)
	users := make([]Presence, 0, len(h.rooms[roomID]))
	for _, client := range h.rooms[roomID] {
		if seen[client.UserID] {
			continue
		}
		seen[client.UserID] = true
		users = append(users, client.presence())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].UserID.String() < users[j].UserID.String()
	})
	return users
}

// envelope encodes a server event.
func envelope(msgType MessageType, roomID *uuid.UUID, userID uuid.UUID, data interface{}) ([]byte, error) {
	msg := Message{
		Type:      msgType,
		RoomID:    roomID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}
