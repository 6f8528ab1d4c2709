package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mesaflow/internal/httpx"
)

// reservationHub pushes reservation lifecycle events to connected dashboard
// clients, scoped per restaurant.
type reservationHub struct {
	clients    map[*reservationClient]bool
	register   chan *reservationClient
	unregister chan *reservationClient
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	log        *zap.SugaredLogger
}

type reservationClient struct {
	hub          *reservationHub
	conn         *websocket.Conn
	send         chan []byte
	restaurantID string
}

type reservationEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newReservationHub(log *zap.SugaredLogger) *reservationHub {
	return &reservationHub{
		clients:    make(map[*reservationClient]bool),
		register:   make(chan *reservationClient),
		unregister: make(chan *reservationClient),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *reservationHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debugw("ws client connected", "restaurant", client.restaurantID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debugw("ws client disconnected", "restaurant", client.restaurantID)
		}
	}
}

func (h *reservationHub) BroadcastToRestaurant(restaurantID, eventType string, payload any) {
	data, err := json.Marshal(reservationEvent{Type: eventType, Payload: mustJSON(payload)})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.restaurantID != restaurantID {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func (s *Server) handleReservationWS(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws upgrade failed", "err", err)
		return
	}

	client := &reservationClient{
		hub:          s.hub,
		conn:         conn,
		send:         make(chan []byte, 256),
		restaurantID: restaurantID,
	}
	s.hub.register <- client

	welcome, _ := json.Marshal(reservationEvent{
		Type:    "hello",
		Payload: mustJSON(map[string]any{"restaurantId": restaurantID}),
	})
	client.send <- welcome

	go client.writePump()
	go client.readPump()
}

func (c *reservationClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *reservationClient) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
