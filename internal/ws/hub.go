package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// RoomKey identifies one product-list partition: a subdivision plus an
// apartment type. Two keys are equal iff both fields match exactly.
type RoomKey struct {
	Subdivision   string
	ApartmentType string
}

func (k RoomKey) String() string {
	return k.Subdivision + "-" + k.ApartmentType
}

// Hub owns the room registry: which sessions are subscribed to which
// partition. It is the single broadcaster instance for the process.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[RoomKey]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[RoomKey]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes connect/disconnect events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("connID", client.connID))

		case client := <-h.unregister:
			h.dropClient(client)
		}
	}
}

// dropClient removes the client from its room and closes its send channel.
// Safe to call more than once for the same client.
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.removeFromRoomLocked(client)
		close(client.send)
	}
	h.mu.Unlock()
	h.logger.Debug("client unregistered", zap.String("connID", client.connID))
}

// shutdown closes all client connections.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.rooms = make(map[RoomKey]map[*Client]bool)
}

// JoinRoom subscribes a client to a partition. A session belongs to at most
// one room: joining while already in a different room leaves the old room
// first, so stale memberships cannot accumulate when the client forgets to
// leave. Joining the current room again is a no-op.
func (h *Hub) JoinRoom(client *Client, key RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.room != nil && *client.room == key {
		return
	}
	h.removeFromRoomLocked(client)

	if h.rooms[key] == nil {
		h.rooms[key] = make(map[*Client]bool)
	}
	h.rooms[key][client] = true
	room := key
	client.room = &room

	h.logger.Debug("client joined room",
		zap.String("connID", client.connID),
		zap.String("room", key.String()),
	)
}

// LeaveRoom unsubscribes a client from a partition. Leaving a room the
// client is not in is a no-op, not an error.
func (h *Hub) LeaveRoom(client *Client, key RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[key]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	if client.room != nil && *client.room == key {
		client.room = nil
	}

	h.logger.Debug("client left room",
		zap.String("connID", client.connID),
		zap.String("room", key.String()),
	)
}

// removeFromRoomLocked drops the client's current membership, if any.
// Caller must hold h.mu.
func (h *Hub) removeFromRoomLocked(client *Client) {
	if client.room == nil {
		return
	}
	if members, ok := h.rooms[*client.room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, *client.room)
		}
	}
	client.room = nil
}

// Members returns the clients currently subscribed to a partition.
// Unknown keys yield an empty slice.
func (h *Hub) Members(key RoomKey) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]*Client, 0, len(h.rooms[key]))
	for client := range h.rooms[key] {
		members = append(members, client)
	}
	return members
}

// ActiveRooms returns all partitions with at least one subscriber.
func (h *Hub) ActiveRooms() []RoomKey {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var keys []RoomKey
	for key, members := range h.rooms {
		if len(members) > 0 {
			keys = append(keys, key)
		}
	}
	return keys
}

// Publish delivers a pre-encoded frame to every member of the partition,
// best effort. A slow client whose buffer is full gets scheduled for
// disconnect instead of blocking delivery to the others. Returns the number
// of clients the frame was handed to.
func (h *Hub) Publish(key RoomKey, payload []byte) int {
	// Sends stay under the read lock: dropClient closes send channels
	// under the write lock, so a channel can never be closed mid-send.
	// The sends are non-blocking, so holding the lock is safe.
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.rooms[key] {
		select {
		case client.send <- payload:
			delivered++
		default:
			h.logger.Debug("client send buffer full, dropping connection",
				zap.String("connID", client.connID),
				zap.String("room", key.String()),
			)
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
	return delivered
}
