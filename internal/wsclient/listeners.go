package wsclient

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/ws"
)

// Handler receives one product mutation envelope.
type Handler func(env ws.Envelope)

// OnProductCreated registers a callback for product-created events and
// returns a disposer that removes exactly this registration.
func (c *Client) OnProductCreated(fn Handler) func() {
	return c.addListener(ws.EventProductCreated, fn)
}

// OnProductUpdated registers a callback for product-updated events.
func (c *Client) OnProductUpdated(fn Handler) func() {
	return c.addListener(ws.EventProductUpdated, fn)
}

// OnProductDeleted registers a callback for product-deleted events.
func (c *Client) OnProductDeleted(fn Handler) func() {
	return c.addListener(ws.EventProductDeleted, fn)
}

// addListener records the callback under a fresh handle. Registrations live
// on the client, not the transport, so a reconnect never duplicates them.
func (c *Client) addListener(event string, fn Handler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if m, ok := c.handlers[event]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(c.handlers, event)
			}
		}
		c.mu.Unlock()
	}
}

// dispatch decodes an inbound frame and invokes the registered callbacks.
// Callbacks run outside the state lock.
func (c *Client) dispatch(raw []byte) {
	frame, err := ws.ParseFrame(raw)
	if err != nil {
		c.logger.Debug("failed to parse inbound frame", zap.Error(err))
		return
	}

	switch frame.Event {
	case ws.EventProductCreated, ws.EventProductUpdated, ws.EventProductDeleted:
	default:
		c.logger.Debug("ignoring unknown event", zap.String("event", frame.Event))
		return
	}

	var env ws.Envelope
	if err := json.Unmarshal(frame.Data, &env); err != nil {
		c.logger.Debug("failed to parse envelope",
			zap.String("event", frame.Event),
			zap.Error(err),
		)
		return
	}

	c.mu.Lock()
	callbacks := make([]Handler, 0, len(c.handlers[frame.Event]))
	for _, fn := range c.handlers[frame.Event] {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(env)
	}
}
