package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Join/leave requests are tiny.
	maxMessageSize = 4 * 1024

	// Send buffer size per client.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST layer already established the caller; the channel itself is
	// open, matching the gateway it replaces.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client represents one live WebSocket session on the server side.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	connID string
	room   *RoomKey // current membership, at most one
	logger *zap.Logger
}

// ServeWS upgrades an HTTP request and registers the session with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		connID: uuid.New().String(),
		logger: h.logger,
	}

	h.register <- client
	h.logger.Info("client connected",
		zap.String("connID", client.connID),
		zap.String("remoteAddr", r.RemoteAddr),
	)

	go client.writePump()
	go client.readPump()
}

// readPump reads join/leave requests from the connection. Exit drops the
// session from the registry, which cleans up its room membership.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes queued frames and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub, send close message
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound frame. Malformed frames are logged
// and dropped; they never terminate the session.
func (c *Client) handleMessage(data []byte) {
	frame, err := ParseFrame(data)
	if err != nil {
		c.logger.Debug("failed to parse frame",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		return
	}

	switch frame.Event {
	case EventJoinRoom:
		key, err := parseRoomRequest(frame.Data)
		if err != nil {
			c.logger.Debug("invalid join request",
				zap.String("connID", c.connID),
				zap.Error(err),
			)
			return
		}
		c.hub.JoinRoom(c, key)

	case EventLeaveRoom:
		key, err := parseRoomRequest(frame.Data)
		if err != nil {
			c.logger.Debug("invalid leave request",
				zap.String("connID", c.connID),
				zap.Error(err),
			)
			return
		}
		c.hub.LeaveRoom(c, key)

	default:
		c.logger.Debug("unknown event",
			zap.String("connID", c.connID),
			zap.String("event", frame.Event),
		)
	}
}
