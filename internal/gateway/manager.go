package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/game"
)

// Handler receives decoded inbound traffic from connections.
type Handler interface {
	HandleMessage(c *Connection, msg ClientMessage)
	HandleDisconnect(c *Connection)
}

// Manager owns the WebSocket connections, grouped by the room each is
// subscribed to. A single goroutine drains the broadcast channel, so events
// reach every subscriber in emission order.
type Manager struct {
	mu        sync.RWMutex
	roomConns map[string]map[*Connection]bool

	upgrader websocket.Upgrader
	config   Config
	handler  Handler

	broadcastCh chan Event
}

// Connection is one WebSocket client. PlayerID is set once the connection
// joins a room as a player; subscriber-only connections leave it empty.
type Connection struct {
	ID       string
	PlayerID string

	conn    *websocket.Conn
	send    chan []byte
	manager *Manager

	// guarded by manager.mu
	room string

	connectedAt time.Time
}

// Config holds per-connection transport settings.
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConfig returns the default transport settings.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 8 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewManager creates a connection manager. SetHandler must be called before
// serving connections.
func NewManager(config Config) *Manager {
	return &Manager{
		roomConns: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan Event, 1024),
	}
}

// SetHandler binds the inbound message handler.
func (m *Manager) SetHandler(h Handler) {
	m.handler = h
}

// Run drains the broadcast channel until the context ends.
func (m *Manager) Run(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case event := <-m.broadcastCh:
			m.fanOut(event)
		}
	}
}

// Broadcast implements game.Broadcaster: it wraps the payload in the event
// envelope and enqueues it for every connection subscribed to the room.
// Non-blocking; sessions emit while holding their lock.
func (m *Manager) Broadcast(roomCode string, event game.EventType, payload any) {
	m.broadcast(roomCode, string(event), payload)
}

func (m *Manager) broadcast(roomCode, eventType string, payload any) {
	event, err := newEvent(roomCode, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to marshal broadcast payload")
		return
	}
	select {
	case m.broadcastCh <- event:
	default:
		log.Warn().Str("room", roomCode).Str("type", eventType).Msg("broadcast channel full, dropping event")
	}
}

func (m *Manager) fanOut(event Event) {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.roomConns[event.Room]))
	for c := range m.roomConns[event.Room] {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event envelope")
		return
	}

	for _, c := range conns {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("connection", c.ID).Msg("send buffer full, closing connection")
			m.unregister(c)
			c.conn.Close()
		}
	}
}

// Serve upgrades an HTTP request to a WebSocket connection and starts its
// pumps. The connection subscribes to a room via its first join or
// subscribe message.
func (m *Manager) Serve(w http.ResponseWriter, r *http.Request) error {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		conn:        ws,
		send:        make(chan []byte, 256),
		manager:     m,
		connectedAt: time.Now(),
	}

	go c.writePump()
	go c.readPump()

	log.Info().Str("connection", c.ID).Str("remote", r.RemoteAddr).Msg("websocket connection established")
	return nil
}

// Subscribe attaches a connection to a room's broadcast pool. A connection
// follows at most one room; re-subscribing moves it.
func (m *Manager) Subscribe(c *Connection, roomCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.room == roomCode {
		return
	}
	if c.room != "" {
		m.removeLocked(c)
	}

	c.room = roomCode
	if m.roomConns[roomCode] == nil {
		m.roomConns[roomCode] = make(map[*Connection]bool)
	}
	m.roomConns[roomCode][c] = true

	log.Debug().Str("connection", c.ID).Str("room", roomCode).
		Int("subscribers", len(m.roomConns[roomCode])).Msg("connection subscribed")
}

// Room returns the room a connection is subscribed to, if any.
func (m *Manager) Room(c *Connection) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return c.room
}

func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(c)
}

func (m *Manager) removeLocked(c *Connection) {
	conns, ok := m.roomConns[c.room]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(m.roomConns, c.room)
	}
	c.room = ""
}

// Send delivers an event to a single connection, bypassing the room fan
// out. Used for caller-scoped replies: errors and state snapshots.
func (c *Connection) Send(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal direct event")
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("connection", c.ID).Msg("send buffer full, dropping direct event")
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection", c.ID).Msg("write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	// The send channel is never closed; writePump exits on its own write
	// error once the underlying connection is gone.
	defer func() {
		c.manager.handler.HandleDisconnect(c)
		c.manager.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("connection", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Send(mustEvent("", EventTypeError, ErrorPayload{
				Code:    "invalid_argument",
				Message: "malformed message",
			}))
			continue
		}
		c.manager.handler.HandleMessage(c, msg)
	}
}

// mustEvent builds an envelope for payloads that cannot fail to marshal.
func mustEvent(room, eventType string, payload any) Event {
	event, err := newEvent(room, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to build event")
	}
	return event
}
