package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestHub() *Hub {
	logger, _ := zap.NewDevelopment()
	return NewHub(logger)
}

// newTestClient attaches a session without a real network connection.
// Delivery is observed on the send channel directly.
func newTestClient(h *Hub, id string, buf int) *Client {
	c := &Client{
		hub:    h,
		send:   make(chan []byte, buf),
		connID: id,
		logger: h.logger,
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected a frame, got none")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("expected no frame, got %s", msg)
	default:
	}
}

func TestPartitionIsolation(t *testing.T) {
	h := newTestHub()
	k1 := RoomKey{Subdivision: "B1", ApartmentType: "T2"}
	k2 := RoomKey{Subdivision: "B1", ApartmentType: "T3"}

	a := newTestClient(h, "a", 8)
	b := newTestClient(h, "b", 8)
	h.JoinRoom(a, k1)
	h.JoinRoom(b, k2)

	if n := h.Publish(k1, []byte("event")); n != 1 {
		t.Fatalf("expected delivery to 1 client, got %d", n)
	}
	recvFrame(t, a)
	assertNoFrame(t, b)
}

func TestJoinIsIdempotent(t *testing.T) {
	h := newTestHub()
	key := RoomKey{Subdivision: "B1", ApartmentType: "T2"}

	c := newTestClient(h, "c", 8)
	h.JoinRoom(c, key)
	h.JoinRoom(c, key)

	if n := len(h.Members(key)); n != 1 {
		t.Fatalf("expected 1 member after double join, got %d", n)
	}
	if n := h.Publish(key, []byte("event")); n != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", n)
	}
	recvFrame(t, c)
	assertNoFrame(t, c)
}

func TestJoinReplacesPreviousRoom(t *testing.T) {
	h := newTestHub()
	k1 := RoomKey{Subdivision: "B1", ApartmentType: "T2"}
	k2 := RoomKey{Subdivision: "B2", ApartmentType: "T9"}

	c := newTestClient(h, "c", 8)
	h.JoinRoom(c, k1)
	h.JoinRoom(c, k2)

	if n := len(h.Members(k1)); n != 0 {
		t.Fatalf("expected old room to be empty, got %d members", n)
	}
	if n := len(h.Members(k2)); n != 1 {
		t.Fatalf("expected new room to have 1 member, got %d", n)
	}
}

func TestLeaveAbsentRoomIsNoop(t *testing.T) {
	h := newTestHub()
	key := RoomKey{Subdivision: "B1", ApartmentType: "T2"}

	c := newTestClient(h, "c", 8)
	h.LeaveRoom(c, key) // never joined

	if n := len(h.Members(key)); n != 0 {
		t.Fatalf("expected empty room, got %d members", n)
	}
}

func TestDropClientCleansMembership(t *testing.T) {
	h := newTestHub()
	key := RoomKey{Subdivision: "B1", ApartmentType: "T2"}

	c := newTestClient(h, "c", 8)
	h.JoinRoom(c, key)
	h.dropClient(c)

	if n := len(h.Members(key)); n != 0 {
		t.Fatalf("expected no members after drop, got %d", n)
	}
	if rooms := h.ActiveRooms(); len(rooms) != 0 {
		t.Fatalf("expected no active rooms, got %v", rooms)
	}

	// Dropping twice must not panic on the closed send channel.
	h.dropClient(c)
}

func TestPublishToEmptyRoom(t *testing.T) {
	h := newTestHub()
	key := RoomKey{Subdivision: "B1", ApartmentType: "T2"}

	if n := h.Publish(key, []byte("event")); n != 0 {
		t.Fatalf("expected 0 deliveries, got %d", n)
	}
}

func TestSlowClientDoesNotBlockOthers(t *testing.T) {
	h := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	key := RoomKey{Subdivision: "B1", ApartmentType: "T2"}
	slow := newTestClient(h, "slow", 1)
	fast := newTestClient(h, "fast", 8)
	h.JoinRoom(slow, key)
	h.JoinRoom(fast, key)

	// Fill the slow client's buffer, then publish again. The fast client
	// must still receive while the slow one is scheduled for disconnect.
	h.Publish(key, []byte("first"))
	h.Publish(key, []byte("second"))

	got := 0
	for i := 0; i < 2; i++ {
		recvFrame(t, fast)
		got++
	}
	if got != 2 {
		t.Fatalf("fast client received %d of 2 frames", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		members := h.Members(key)
		if len(members) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("slow client was never reaped from the room")
}

func TestDeletedEventFanout(t *testing.T) {
	h := newTestHub()
	logger, _ := zap.NewDevelopment()
	notifier := NewNotifier(h, logger)

	k1 := RoomKey{Subdivision: "B1", ApartmentType: "T2"}
	k2 := RoomKey{Subdivision: "B1", ApartmentType: "T3"}

	a := newTestClient(h, "a", 8)
	b := newTestClient(h, "b", 8)
	c := newTestClient(h, "c", 8)
	h.JoinRoom(a, k1)
	h.JoinRoom(b, k1)
	h.JoinRoom(c, k2)

	notifier.PublishDeleted("p1", "", "B1", "T2")

	for _, client := range []*Client{a, b} {
		raw := recvFrame(t, client)

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if frame.Event != EventProductDeleted {
			t.Errorf("expected event %q, got %q", EventProductDeleted, frame.Event)
		}

		var env Envelope
		if err := json.Unmarshal(frame.Data, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if env.Type != TypeProductDeleted {
			t.Errorf("expected type %q, got %q", TypeProductDeleted, env.Type)
		}
		var payload DeletedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.ID != "p1" {
			t.Errorf("expected id p1, got %q", payload.ID)
		}
		if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
			t.Errorf("timestamp %q is not RFC 3339: %v", env.Timestamp, err)
		}
	}
	assertNoFrame(t, c)
}

// A disconnect racing a publish must never land a send on a closed
// channel. Run with -race.
func TestPublishRacingDisconnectDoesNotPanic(t *testing.T) {
	h := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	key := RoomKey{Subdivision: "S9", ApartmentType: "T9"}

	const n = 16
	clients := make([]*Client, n)
	for i := range clients {
		clients[i] = newTestClient(h, fmt.Sprintf("c%d", i), 1)
		h.JoinRoom(clients[i], key)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		payload := []byte(`{"event":"product-updated"}`)
		for i := 0; i < 500; i++ {
			h.Publish(key, payload)
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			h.dropClient(c)
		}
	}()
	wg.Wait()

	if got := len(h.Members(key)); got != 0 {
		t.Errorf("expected empty room after drops, got %d members", got)
	}
}
