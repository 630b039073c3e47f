package handlers

import (
	"encoding/json"
	"net/http"

	"cleancity-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin filtering is delegated to the CORS layer
	},
}

// WebSocketHandler serves the realtime channel. The channel itself is
// unauthenticated; a user:login message subscribes the connection to that
// user's room.
type WebSocketHandler struct {
	hub *services.WSHub
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(hub *services.WSHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.hub.Register(conn)
	defer h.hub.Unregister(client)

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Msg("Failed to parse WebSocket message")
			h.sendError(client, "Invalid message format")
			continue
		}

		h.handleMessage(client, msg)
	}
}

// handleMessage relays client-emitted domain events: room subscription,
// broadcast events, and targeted events, mirroring the server-side fanout
// contract.
func (h *WebSocketHandler) handleMessage(client *services.WSClient, msg services.WSMessage) {
	switch msg.Event {
	case "user:login":
		userID := unmarshalID(msg.Data, "user_id", "userId")
		if userID == "" {
			log.Debug().Str("event", msg.Event).Msg("Ignoring malformed user:login")
			return
		}
		h.hub.Join(client, userID)

	case "occurrence:created":
		h.hub.Broadcast(services.EventOccurrenceNew, msg.Data)
	case "occurrence:updated":
		h.hub.Broadcast(services.EventOccurrenceChanged, msg.Data)
	case "occurrence:deleted":
		h.hub.Broadcast(services.EventOccurrenceRemoved, msg.Data)

	case "photo:uploaded":
		userID := unmarshalID(msg.Data, "user_id", "userId")
		if userID == "" {
			return
		}
		h.hub.SendToUser(userID, services.EventPhotoNew, msg.Data)

	case "share:created":
		sharedWithID := unmarshalID(msg.Data, "shared_with_id", "sharedWithId")
		if sharedWithID == "" {
			return
		}
		h.hub.SendToUser(sharedWithID, services.EventShareReceived, msg.Data)

	default:
		log.Debug().Str("event", msg.Event).Msg("Unknown WebSocket event")
	}
}

// unmarshalID pulls an ID out of an event payload, accepting both this
// API's snake_case key and the camelCase key older clients send.
func unmarshalID(raw json.RawMessage, keys ...string) string {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// sendError replies through the client's serialized send path; writing on
// the conn directly would race with hub fanout.
func (h *WebSocketHandler) sendError(client *services.WSClient, message string) {
	payload, _ := json.Marshal(map[string]string{"event": "error", "message": message})
	client.Send(payload)
}
