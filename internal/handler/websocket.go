package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/watcher"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only event stream
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// FileChange is the payload of a "fileChange" message.
type FileChange struct {
	Event string `json:"event"`
	Path  string `json:"path"`
}

// WSHandler pushes file change events to connected browsers
type WSHandler struct {
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		logger:  logger,
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		h.removeClient(conn)
		_ = conn.Close()
	}()

	h.addClient(conn)

	// Keep connection alive and handle incoming messages
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

// OnFileChange is called when a file change is detected
func (h *WSHandler) OnFileChange(event watcher.Event) {
	h.broadcast(WSMessage{
		Type:    "fileChange",
		Payload: FileChange{Event: event.Type.String(), Path: event.Path},
	})
}

// ClientCount returns the number of connected clients.
func (h *WSHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &sync.Mutex{}
}

func (h *WSHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *WSHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	type client struct {
		conn *websocket.Conn
		mu   *sync.Mutex
	}
	h.mu.RLock()
	clients := make([]client, 0, len(h.clients))
	for conn, mu := range h.clients {
		clients = append(clients, client{conn, mu})
	}
	h.mu.RUnlock()

	// gorilla connections allow one concurrent writer
	for _, cl := range clients {
		cl.mu.Lock()
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := cl.conn.WriteMessage(websocket.TextMessage, data)
		cl.mu.Unlock()
		if err != nil {
			h.logger.Debug("dropping websocket client", zap.Error(err))
			h.removeClient(cl.conn)
		}
	}
}
