package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/minhanhland/inventory/internal/domain"
)

func TestParseRoomRequestStrings(t *testing.T) {
	key, err := parseRoomRequest([]byte(`{"subdivision":"B1","apartmentType":"T2"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.Subdivision != "B1" || key.ApartmentType != "T2" {
		t.Errorf("unexpected key: %+v", key)
	}
}

func TestParseRoomRequestCoercesNumbers(t *testing.T) {
	// Clients that carry numeric ids in route params serialize them as
	// numbers; the server must coerce both fields to strings.
	key, err := parseRoomRequest([]byte(`{"subdivision":12,"apartmentType":34}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.Subdivision != "12" || key.ApartmentType != "34" {
		t.Errorf("unexpected key: %+v", key)
	}
}

func TestParseRoomRequestMissingFields(t *testing.T) {
	cases := []string{
		`{}`,
		`{"subdivision":"B1"}`,
		`{"apartmentType":"T2"}`,
		`{"subdivision":"","apartmentType":"T2"}`,
		`not json`,
	}
	for _, body := range cases {
		if _, err := parseRoomRequest([]byte(body)); err == nil {
			t.Errorf("expected error for %q", body)
		}
	}
}

func TestParseFrame(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"event":"join-product-room","data":{"subdivision":"B1","apartmentType":"T2"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Event != EventJoinRoom {
		t.Errorf("expected join event, got %q", frame.Event)
	}

	if _, err := ParseFrame([]byte(`{"data":{}}`)); err == nil {
		t.Error("expected error for frame without event name")
	}
}

func TestMarshalRoomRequestRoundTrip(t *testing.T) {
	key := RoomKey{Subdivision: "B1", ApartmentType: "T2"}
	raw, err := MarshalRoomRequest(EventLeaveRoom, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("parse frame: %v", err)
	}
	if frame.Event != EventLeaveRoom {
		t.Errorf("expected leave event, got %q", frame.Event)
	}
	parsed, err := parseRoomRequest(frame.Data)
	if err != nil {
		t.Fatalf("parse room request: %v", err)
	}
	if parsed != key {
		t.Errorf("expected %+v, got %+v", key, parsed)
	}
}

func TestMarshalEventEnvelope(t *testing.T) {
	product := &domain.Product{
		ID:            "p1",
		ApartmentCode: "S1.01-12A",
		Status:        domain.StatusSelling,
	}

	raw, err := MarshalEvent(EventProductUpdated, TypeProductUpdated, product)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(frame.Data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != TypeProductUpdated {
		t.Errorf("expected type %q, got %q", TypeProductUpdated, env.Type)
	}

	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		t.Fatalf("timestamp %q is not RFC 3339: %v", env.Timestamp, err)
	}
	if time.Since(ts) > time.Minute {
		t.Errorf("timestamp should be stamped at publish time, got %v", ts)
	}

	var decoded domain.Product
	if err := json.Unmarshal(env.Data, &decoded); err != nil {
		t.Fatalf("unmarshal product snapshot: %v", err)
	}
	if decoded.ID != "p1" || decoded.ApartmentCode != "S1.01-12A" {
		t.Errorf("unexpected snapshot: %+v", decoded)
	}
}
