package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans messages out to the reviewers watching a survey. Writes happen outside the
// hub lock; each connection serializes its own writers.
type Hub struct {
	mu      sync.Mutex
	surveys map[string]map[*websocket.Conn]*client
}

type client struct {
	conn *websocket.Conn
	// gorilla allows one concurrent writer per connection
	mu sync.Mutex
}

func (c *client) write(message WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSON(c.conn, message)
}

func NewHub() *Hub {
	return &Hub{
		surveys: make(map[string]map[*websocket.Conn]*client),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Serve upgrades the request and keeps the connection registered under surveyID until
// the client goes away. hello, when non-nil, is sent before any broadcast.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, surveyID string, hello *WSMessage) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: upgrade error: %v", err)
		return
	}
	c := &client{conn: conn}
	c.mu.Lock()
	h.add(surveyID, c)
	defer h.RemoveConnection(surveyID, conn)
	if hello != nil {
		if err := writeJSON(conn, *hello); err != nil {
			c.mu.Unlock()
			return
		}
	}
	c.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) add(surveyID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.surveys[surveyID] == nil {
		h.surveys[surveyID] = make(map[*websocket.Conn]*client)
	}
	h.surveys[surveyID][c.conn] = c
	log.Printf("live: client connected to survey %s (total: %d)", surveyID, len(h.surveys[surveyID]))
}

func (h *Hub) RemoveConnection(surveyID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.surveys[surveyID]; ok {
		if conns[conn] == nil {
			return
		}
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.surveys, surveyID)
		}
		log.Printf("live: client disconnected from survey %s", surveyID)
	}
}

// Subscribers returns the number of open connections for surveyID.
func (h *Hub) Subscribers(surveyID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.surveys[surveyID])
}

func (h *Hub) clients(surveyID string) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.surveys[surveyID]))
	for _, c := range h.surveys[surveyID] {
		out = append(out, c)
	}
	return out
}

// Broadcast writes message to every subscriber of surveyID. A slow subscriber delays
// only this broadcast; connections that fail the write are dropped.
func (h *Hub) Broadcast(surveyID string, message WSMessage) {
	for _, c := range h.clients(surveyID) {
		if err := c.write(message); err != nil {
			log.Printf("live: write error: %v", err)
			h.RemoveConnection(surveyID, c.conn)
		}
	}
}

// CloseSurvey disconnects every subscriber of surveyID.
func (h *Hub) CloseSurvey(surveyID string) {
	h.mu.Lock()
	conns := h.surveys[surveyID]
	delete(h.surveys, surveyID)
	h.mu.Unlock()
	for conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "survey deleted"), time.Now().Add(writeWait))
		conn.Close()
	}
}

func writeJSON(conn *websocket.Conn, message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
