package gateway

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"baccarat-road/apps/server/internal/codec"
	"baccarat-road/apps/server/internal/session"
	"baccarat-road/road"
	"baccarat-road/symbol"

	"github.com/gorilla/websocket"
)

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing time.Time
}

// Gateway pushes session views to every connected client and forwards client
// commands to the session actor.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64

	session     *session.Session
	upgrader    websocket.Upgrader
	unsubscribe func()
}

func New(sess *session.Session, allowedOrigins []string) *Gateway {
	g := &Gateway{
		connections: make(map[string]*Connection),
		session:     sess,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
	g.unsubscribe = sess.Subscribe(g.onView)
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Close stops forwarding views and drops every client.
func (g *Gateway) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, c := range g.connections {
		close(c.Send)
		delete(g.connections, id)
	}
}

// HandleWebSocket handles WebSocket upgrade and connection
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:       fmt.Sprintf("conn_%d", g.nextConnID),
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
		LastPing: time.Now(),
	}
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s, total: %d", c.ID, total)

	if data, err := codec.EncodeView(g.session.View()); err == nil {
		g.sendTo(c, data)
	} else {
		log.Printf("[Gateway] encode initial view failed: %v", err)
	}

	go c.readPump()
	go c.writePump()
}

// onView runs on the session actor; sends never block.
func (g *Gateway) onView(v session.View) {
	data, err := codec.EncodeView(v)
	if err != nil {
		log.Printf("[Gateway] encode view failed: version=%d err=%v", v.Version, err)
		return
	}
	g.Broadcast(data)
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleMessage(codec.DecodeCommand(message))
		case websocket.TextMessage:
			c.handleMessage(codec.DecodeTextCommand(message))
		}
	}
}

func (c *Connection) handleMessage(cmd codec.Command, err error) {
	if err != nil {
		log.Printf("[Gateway] Failed to decode command from %s: %v", c.ID, err)
		c.sendError("invalid_message", err.Error())
		return
	}
	ev, err := cmd.Event()
	if err != nil {
		c.sendError(errorReason(err), err.Error())
		return
	}
	if err := c.Gateway.session.SubmitEvent(ev); err != nil {
		log.Printf("[Gateway] %s from %s failed: %v", ev.Type, c.ID, err)
		c.sendError(errorReason(err), err.Error())
	}
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, symbol.ErrInvalidSymbol):
		return "invalid_symbol"
	case errors.Is(err, road.ErrHistoricalBet):
		return "historical_bet"
	case errors.Is(err, codec.ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, session.ErrSessionClosed):
		return "session_closed"
	default:
		return "internal"
	}
}

func (c *Connection) sendError(reason, msg string) {
	data, err := codec.EncodeError(reason, msg)
	if err != nil {
		return
	}
	c.Gateway.sendTo(c, data)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.connections[c.ID]; !ok {
		return
	}
	delete(g.connections, c.ID)
	close(c.Send)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

func (g *Gateway) sendTo(c *Connection, data []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.connections[c.ID]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		// Drop if buffer full
	}
}

// Broadcast sends a message to all connections
func (g *Gateway) Broadcast(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		select {
		case c.Send <- message:
		default:
			// Drop message if buffer full
		}
	}
}

func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}
