package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEvent_MarshalAndKey(t *testing.T) {
	e := Event{Kind: TripConfirmed, RequestID: 7, Version: 3, RiderID: 1, DriverID: 3, Status: "confirmed", Price: 12, ActorID: 1, At: time.Unix(0, 0).UTC()}
	if string(e.Key()) != "7" {
		t.Fatalf("key = %s", e.Key())
	}
	b, err := e.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["kind"] != "trip.confirmed" || got["driver_id"].(float64) != 3 || got["version"].(float64) != 3 {
		t.Fatalf("payload = %v", got)
	}
	if _, ok := got["offer_id"]; ok {
		t.Fatal("zero offer_id should be omitted")
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))
	if err := p.Publish(context.Background(), Event{Kind: TripCancelled, RequestID: 9, Status: "cancelled_by_driver"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["kind"] != "trip.cancelled" {
		t.Fatalf("fields = %v", entries[0].ContextMap())
	}
}
