package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event names on the realtime channel.
const (
	EventOccurrenceNew     = "occurrence:new"
	EventOccurrenceChanged = "occurrence:changed"
	EventOccurrenceRemoved = "occurrence:removed"
	EventPhotoNew          = "photo:new"
	EventShareReceived     = "share:received"
)

// WSMessage is the frame exchanged on the realtime channel.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSClient is one websocket connection. Writes are serialized per
// connection.
type WSClient struct {
	conn   *websocket.Conn
	userID string // set after user:login, empty while anonymous
	mu     sync.Mutex
}

// Send writes a frame on the connection. All writes, hub fanout and
// handler replies alike, must go through here so the gorilla conn never
// sees two concurrent writers.
func (c *WSClient) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// WSHub fans domain events out to connected clients: broadcast to all, or
// targeted to a per-user room. Delivery is fire-and-forget with no
// acknowledgement or replay; a disconnected recipient misses the event.
//
// Room subscription via user:login is unauthenticated. Known gap carried
// over from the wire contract, to be resolved with the system owner.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	rooms   map[string]map[*WSClient]struct{}
}

// NewWSHub creates a new hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[*WSClient]struct{}),
		rooms:   make(map[string]map[*WSClient]struct{}),
	}
}

// Register adds a connection to the hub
func (h *WSHub) Register(conn *websocket.Conn) *WSClient {
	client := &WSClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	log.Debug().Msg("WebSocket connection registered")
	return client
}

// Unregister removes a connection from the hub and its room
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client)
	if client.userID != "" {
		if room, ok := h.rooms[client.userID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, client.userID)
			}
		}
	}
	client.conn.Close()
}

// Join subscribes a connection to a user's room
func (h *WSHub) Join(client *WSClient, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Leaving a previously joined room first keeps a reused connection in
	// exactly one room.
	if client.userID != "" && client.userID != userID {
		if room, ok := h.rooms[client.userID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, client.userID)
			}
		}
	}

	client.userID = userID
	if h.rooms[userID] == nil {
		h.rooms[userID] = make(map[*WSClient]struct{})
	}
	h.rooms[userID][client] = struct{}{}

	log.Info().Str("user_id", userID).Msg("Client joined realtime room")
}

// Broadcast sends an event to every connected client
func (h *WSHub) Broadcast(event string, data interface{}) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.Send(payload); err != nil {
			log.Debug().Err(err).Str("event", event).Msg("Dropping dead connection")
			h.Unregister(client)
		}
	}
}

// SendToUser sends an event to every connection in a user's room. A user
// with no connections simply misses the event.
func (h *WSHub) SendToUser(userID, event string, data interface{}) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	h.mu.RLock()
	room := make([]*WSClient, 0, len(h.rooms[userID]))
	for client := range h.rooms[userID] {
		room = append(room, client)
	}
	h.mu.RUnlock()

	for _, client := range room {
		if err := client.Send(payload); err != nil {
			log.Debug().Err(err).Str("user_id", userID).Str("event", event).Msg("Dropping dead connection")
			h.Unregister(client)
		}
	}
}

// ConnectionCount reports the number of active connections
func (h *WSHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func marshalEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Event: event, Data: raw})
}
