package interfaces

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// updateNotice is the fire-and-forget change signal pushed to connected
// clients. It carries no authoritative delta data: subscribers re-fetch
// through the read path.
type updateNotice struct {
	Type    string      `json:"type"`
	Source  string      `json:"source"`
	Payload interface{} `json:"payload,omitempty"`
	TS      int64       `json:"ts"`
	ID      string      `json:"id"`
}

// LiveHub tracks connected websocket clients and broadcasts event-updated
// notices to all of them. No delivery guarantee: clients whose writes fail
// are dropped.
type LiveHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewLiveHub() *LiveHub {
	return &LiveHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *LiveHub) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWS).Methods("GET")
}

func (h *LiveHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Warning: failed to upgrade websocket: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Inbound messages are ignored; the read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast pushes an event-updated notice to every connected client.
func (h *LiveHub) Broadcast(source string, payload interface{}) {
	notice := updateNotice{
		Type:    "event-updated",
		Source:  source,
		Payload: payload,
		TS:      time.Now().UnixMilli(),
		ID:      uuid.New().String(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(notice); err != nil {
			log.Printf("Warning: dropping live client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *LiveHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
