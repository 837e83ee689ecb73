package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only progress feed
	},
}

// Message is a server → client frame.
type Message struct {
	Type      string       `json:"type"`
	Message   string       `json:"message,omitempty"`
	Event     *sweep.Event `json:"event,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// inbound is a client → server frame.
type inbound struct {
	Type string `json:"type"`
}

type client struct {
	send     chan Message
	category string
}

// Hub fans sweep progress out to connected clients. It implements
// sweep.Observer; OnEvent never blocks, and a client whose buffer is full
// is disconnected.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// OnEvent broadcasts e to every client subscribed to its category.
func (h *Hub) OnEvent(e sweep.Event) {
	msg := Message{Type: "sweep", Event: &e, Timestamp: time.Now().Unix()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.category != "" && c.category != e.Category {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client")
			h.remove(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.remove(c)
	h.mu.Unlock()
}

// remove must be called with mu held.
func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// HandleConnection upgrades the request and streams sweep events. The
// optional category query parameter restricts the feed to one category.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{send: make(chan Message, sendBuffer), category: c.Query("category")}
	cl.send <- Message{Type: "system", Message: "connected", Timestamp: time.Now().Unix()}
	h.add(cl)

	go h.writePump(conn, cl)
	h.readPump(conn, cl)
}

// readPump answers pings and detects disconnects.
func (h *Hub) readPump(conn *websocket.Conn, cl *client) {
	defer func() {
		h.unregister(cl)
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		reply := Message{Type: "pong", Timestamp: time.Now().Unix()}
		if msg.Type != "ping" {
			reply = Message{Type: "error", Message: "unknown message type", Timestamp: time.Now().Unix()}
		}

		h.mu.Lock()
		if _, ok := h.clients[cl]; ok {
			select {
			case cl.send <- reply:
			default:
			}
		}
		h.mu.Unlock()
	}
}

// writePump is the only writer of conn.
func (h *Hub) writePump(conn *websocket.Conn, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
