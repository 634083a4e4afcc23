package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names carried in the frame header. Join/leave flow client to
// server; the product-* events flow server to client.
const (
	EventJoinRoom       = "join-product-room"
	EventLeaveRoom      = "leave-product-room"
	EventProductCreated = "product-created"
	EventProductUpdated = "product-updated"
	EventProductDeleted = "product-deleted"
)

// Envelope type discriminators inside the data body.
const (
	TypeProductCreated = "PRODUCT_CREATED"
	TypeProductUpdated = "PRODUCT_UPDATED"
	TypeProductDeleted = "PRODUCT_DELETED"
)

// Frame is the outer wire message: an event name plus its JSON body.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is the body of a product mutation event.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// DeletedPayload is the data body of a product-deleted envelope.
type DeletedPayload struct {
	ID            string `json:"id"`
	ApartmentCode string `json:"apartmentCode,omitempty"`
}

// flexString accepts a JSON string or number. Room ids arrive as either
// depending on how the caller serialized its route params.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %s", string(b))
	}
	*s = flexString(n.String())
	return nil
}

type roomRequest struct {
	Subdivision   flexString `json:"subdivision"`
	ApartmentType flexString `json:"apartmentType"`
}

// parseRoomRequest decodes a join/leave body into a RoomKey. Missing
// fields are a protocol violation.
func parseRoomRequest(data []byte) (RoomKey, error) {
	var req roomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return RoomKey{}, fmt.Errorf("unmarshal room request: %w", err)
	}
	if req.Subdivision == "" || req.ApartmentType == "" {
		return RoomKey{}, fmt.Errorf("room request missing subdivision or apartmentType")
	}
	return RoomKey{
		Subdivision:   string(req.Subdivision),
		ApartmentType: string(req.ApartmentType),
	}, nil
}

// MarshalRoomRequest encodes a join/leave frame for a partition.
func MarshalRoomRequest(event string, key RoomKey) ([]byte, error) {
	body, err := json.Marshal(map[string]string{
		"subdivision":   key.Subdivision,
		"apartmentType": key.ApartmentType,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: body})
}

// isoTimestamp matches the wire format the frontend expects
// (RFC 3339 with millisecond precision, UTC).
const isoTimestamp = "2006-01-02T15:04:05.000Z07:00"

// MarshalEvent builds a product mutation frame. The timestamp is stamped
// at publish time, not at the originating write.
func MarshalEvent(event, envelopeType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	body, err := json.Marshal(Envelope{
		Type:      envelopeType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(isoTimestamp),
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: body})
}

// DecodePayload unmarshals the envelope's inner payload.
func DecodePayload(env Envelope, dst any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("envelope has no payload")
	}
	return json.Unmarshal(env.Data, dst)
}

// ParseFrame decodes the outer frame. Callers switch on Event and decode
// Data themselves.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame missing event name")
	}
	return &f, nil
}
