// Package wsclient implements the consumer side of the product live-update
// channel: a websocket client that keeps its room subscription alive across
// network interruptions with exponential backoff, and resubscribes to the
// last-known partition after every successful reconnect.
package wsclient

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/ws"
)

const (
	defaultBaseDelay      = time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultMaxAttempts    = 5
	defaultConnectTimeout = 20 * time.Second
)

// Config tunes the reconnect policy. Zero values take the defaults above.
type Config struct {
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	MaxAttempts    int
	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	return c
}

// ConnectionInfo is a diagnostic snapshot of the client state.
type ConnectionInfo struct {
	Connected         bool        `json:"connected"`
	Connecting        bool        `json:"isConnecting"`
	ReconnectAttempts int         `json:"reconnectAttempts"`
	MaxAttempts       int         `json:"maxReconnectAttempts"`
	CurrentRoom       *ws.RoomKey `json:"currentRoom,omitempty"`
	NextDelay         time.Duration `json:"nextReconnectDelay"`
	ActiveListeners   int         `json:"activeListeners"`
}

// Client is an explicitly constructed, owned live-update client. Create one
// per consumer, Connect it, and Disconnect when done; there is no package
// level singleton.
type Client struct {
	url    string
	cfg    Config
	dialer *websocket.Dialer
	logger *zap.Logger
	jitter func() time.Duration

	mu               sync.Mutex
	conn             *websocket.Conn
	connected        bool
	connecting       bool
	manualDisconnect bool
	attempts         int
	delay            time.Duration
	timer            *time.Timer
	// generation invalidates in-flight dials and pending timers from a
	// previous lifecycle; a stale timer firing after a manual disconnect
	// must never trigger a reconnect.
	generation uint64

	currentRoom *ws.RoomKey

	handlers map[string]map[uint64]Handler
	nextID   uint64

	writeMu sync.Mutex
}

// NewClient creates a client for the given websocket URL
// (e.g. ws://host:8080/products/ws). It does not connect.
func NewClient(url string, cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		url: url,
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		logger:   logger,
		jitter:   defaultJitter,
		delay:    cfg.BaseDelay,
		handlers: make(map[string]map[uint64]Handler),
	}
}

func defaultJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(time.Second)))
}

// nextDelay doubles the backoff and adds jitter, capped at max.
func nextDelay(delay, max time.Duration, jitter func() time.Duration) time.Duration {
	delay = delay*2 + jitter()
	if delay > max {
		return max
	}
	return delay
}

// Connect opens the transport. A no-op while already connected or
// connecting. The dial happens asynchronously; transport failures feed the
// backoff state machine rather than being returned here.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.connected || c.connecting {
		c.mu.Unlock()
		c.logger.Debug("already connected or connecting")
		return
	}
	c.connecting = true
	c.manualDisconnect = false
	gen := c.generation
	c.mu.Unlock()

	go c.dial(gen)
}

// dial attempts one transport connect. Outcomes from a superseded
// generation are discarded.
func (c *Client) dial(gen uint64) {
	conn, _, err := c.dialer.Dial(c.url, nil)

	c.mu.Lock()
	if gen != c.generation || c.manualDisconnect {
		c.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.connecting = false
		c.logger.Warn("connect failed",
			zap.String("url", c.url),
			zap.Int("attempt", c.attempts),
			zap.Error(err),
		)
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.connected = true
	c.connecting = false
	c.attempts = 0
	c.delay = c.cfg.BaseDelay
	c.stopTimerLocked()
	room := c.currentRoom
	c.mu.Unlock()

	c.logger.Info("connected", zap.String("url", c.url))

	go c.readLoop(conn, gen)

	// Rejoin the last-known partition without caller involvement.
	if room != nil {
		if err := c.writeRoomRequest(conn, ws.EventJoinRoom, *room); err != nil {
			c.logger.Warn("failed to rejoin room",
				zap.String("room", room.String()),
				zap.Error(err),
			)
		}
	}
}

// readLoop consumes frames until the transport dies, then feeds the
// disconnect into the state machine.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.dispatch(raw)
	}
	conn.Close()

	c.mu.Lock()
	if gen != c.generation || c.conn != conn {
		// A newer lifecycle already owns the state.
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn = nil
	if !c.manualDisconnect {
		c.logger.Info("disconnected, scheduling reconnect")
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()
}

// scheduleReconnectLocked arms the backoff timer. Caller must hold c.mu.
// A pending timer makes this a no-op; only one may be armed at a time.
func (c *Client) scheduleReconnectLocked() {
	if c.manualDisconnect || c.timer != nil {
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		c.logger.Warn("max reconnect attempts reached, giving up",
			zap.Int("maxAttempts", c.cfg.MaxAttempts),
		)
		return
	}

	c.attempts++
	gen := c.generation
	delay := c.delay
	c.logger.Info("reconnect scheduled",
		zap.Int("attempt", c.attempts),
		zap.Int("maxAttempts", c.cfg.MaxAttempts),
		zap.Duration("delay", delay),
	)
	c.timer = time.AfterFunc(delay, func() { c.onReconnectTimer(gen) })
}

// onReconnectTimer fires one backoff attempt.
func (c *Client) onReconnectTimer(gen uint64) {
	c.mu.Lock()
	c.timer = nil
	if gen != c.generation || c.manualDisconnect || c.connected || c.connecting {
		c.mu.Unlock()
		return
	}
	c.delay = nextDelay(c.delay, c.cfg.MaxDelay, c.jitter)
	c.connecting = true
	c.mu.Unlock()

	c.dial(gen)
}

// Disconnect closes the transport on purpose: pending timers are cancelled,
// the stored room is cleared and no reconnect will be attempted.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manualDisconnect = true
	c.connecting = false
	c.generation++
	c.stopTimerLocked()
	c.currentRoom = nil
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.attempts = 0
	c.delay = c.cfg.BaseDelay
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	c.logger.Info("disconnected manually")
}

// ForceReconnect is the manual escape hatch once the retry budget is
// exhausted: it resets the backoff state and dials immediately.
func (c *Client) ForceReconnect() {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		c.logger.Debug("already connected")
		return
	}
	c.attempts = 0
	c.delay = c.cfg.BaseDelay
	c.manualDisconnect = false
	c.generation++
	c.stopTimerLocked()
	c.connecting = true
	gen := c.generation
	c.mu.Unlock()

	c.logger.Info("force reconnecting")
	go c.dial(gen)
}

// stopTimerLocked cancels a pending backoff timer. Caller must hold c.mu.
// The generation check in onReconnectTimer suppresses a timer that already
// fired but has not run yet.
func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// JoinProductRoom subscribes to a partition. While disconnected the room is
// recorded for the next successful connect and no error is returned.
func (c *Client) JoinProductRoom(subdivision, apartmentType string) error {
	key := ws.RoomKey{Subdivision: subdivision, ApartmentType: apartmentType}

	c.mu.Lock()
	room := key
	c.currentRoom = &room
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		c.logger.Debug("not connected, room stored for rejoin",
			zap.String("room", key.String()),
		)
		return nil
	}

	if err := c.writeRoomRequest(conn, ws.EventJoinRoom, key); err != nil {
		return err
	}
	c.logger.Debug("joined room", zap.String("room", key.String()))
	return nil
}

// LeaveProductRoom unsubscribes and forgets the stored room.
func (c *Client) LeaveProductRoom(subdivision, apartmentType string) error {
	key := ws.RoomKey{Subdivision: subdivision, ApartmentType: apartmentType}

	c.mu.Lock()
	c.currentRoom = nil
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.writeRoomRequest(conn, ws.EventLeaveRoom, key)
}

func (c *Client) writeRoomRequest(conn *websocket.Conn, event string, key ws.RoomKey) error {
	frame, err := ws.MarshalRoomRequest(event, key)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// IsConnected reports whether the transport is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ConnectionInfo returns a diagnostic snapshot.
func (c *Client) ConnectionInfo() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	listeners := 0
	for _, m := range c.handlers {
		listeners += len(m)
	}

	var room *ws.RoomKey
	if c.currentRoom != nil {
		r := *c.currentRoom
		room = &r
	}

	return ConnectionInfo{
		Connected:         c.connected,
		Connecting:        c.connecting,
		ReconnectAttempts: c.attempts,
		MaxAttempts:       c.cfg.MaxAttempts,
		CurrentRoom:       room,
		NextDelay:         c.delay,
		ActiveListeners:   listeners,
	}
}
