package sim

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"microgrid-console/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans sensor and alert events out to connected WebSocket clients.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	broadcast chan domain.Message

	closeOnce sync.Once
	done      chan struct{}
}

func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan domain.Message, 256),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

// Broadcast queues a message for every connected client. Ingest must
// never stall on slow consumers, so a full queue drops the message.
func (h *Hub) Broadcast(msg domain.Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		log.Debug().Str("type", msg.Type).Msg("broadcast queue full, dropping message")
	}
}

func (h *Hub) run() {
	for {
		select {
		case msg := <-h.broadcast:
			h.clientsMu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.clientsMu.Unlock()
		case <-h.done:
			return
		}
	}
}

// Close disconnects all clients and stops the broadcast loop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.clientsMu.Lock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
		h.clientsMu.Unlock()
	})
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and keeps the connection registered
// until the peer goes away. Inbound frames are read and discarded;
// the stream is push-only.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	clientID := uuid.NewString()

	// Connection writes are serialized by clientsMu. Sending the welcome
	// inside the registration critical section means a client that has
	// received it is already in the broadcast set.
	welcome := domain.Message{
		Type:      domain.MsgConnection,
		Greeting:  "Connected to Microgrid WebSocket",
		ClientID:  clientID,
		Timestamp: domain.Now(),
	}
	h.clientsMu.Lock()
	h.clients[conn] = true
	if err := conn.WriteJSON(welcome); err != nil {
		delete(h.clients, conn)
		h.clientsMu.Unlock()
		conn.Close()
		return
	}
	h.clientsMu.Unlock()
	log.Info().Str("client_id", clientID).Msg("websocket client connected")

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
		conn.Close()
		log.Info().Str("client_id", clientID).Msg("websocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
