package store

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestInsertAndListEvents(t *testing.T) {
	db := testDB(t)

	payload := json.RawMessage(`{"screen":"home"}`)
	e, err := db.InsertEvent("user-1", "home_opened", payload, time.Now())
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if e.ID == "" {
		t.Error("expected generated event id")
	}

	events, err := db.ListEventsSince(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListEventsSince: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserID != "user-1" || events[0].Type != "home_opened" {
		t.Errorf("event = %+v, want user-1/home_opened", events[0])
	}
}

func TestInsertEventNilPayload(t *testing.T) {
	db := testDB(t)

	e, err := db.InsertEvent("user-1", "home_opened", nil, time.Now())
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if string(e.Payload) != "{}" {
		t.Errorf("payload = %s, want {}", e.Payload)
	}
}

func TestInsertEventValidation(t *testing.T) {
	db := testDB(t)

	if _, err := db.InsertEvent("", "home_opened", nil, time.Now()); err == nil {
		t.Error("expected error for missing user id")
	}
	if _, err := db.InsertEvent("user-1", "", nil, time.Now()); err == nil {
		t.Error("expected error for missing type")
	}

	huge := json.RawMessage(`{"blob":"` + strings.Repeat("x", maxPayloadSize) + `"}`)
	if _, err := db.InsertEvent("user-1", "home_opened", huge, time.Now()); err == nil {
		t.Error("expected error for oversized payload")
	}
}

func TestCountEventsByUserSince(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	// user-1: 4 recent, 1 stale; user-2: 2 recent; user-3: different type
	for i := 0; i < 4; i++ {
		if _, err := db.InsertEvent("user-1", "home_opened", nil, now.Add(-time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}
	db.InsertEvent("user-1", "home_opened", nil, now.Add(-2*time.Hour))
	db.InsertEvent("user-2", "home_opened", nil, now)
	db.InsertEvent("user-2", "home_opened", nil, now)
	db.InsertEvent("user-3", "task_completed", nil, now)

	counts, err := db.CountEventsByUserSince("home_opened", now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("CountEventsByUserSince: %v", err)
	}

	if counts["user-1"] != 4 {
		t.Errorf("user-1 count = %d, want 4", counts["user-1"])
	}
	if counts["user-2"] != 2 {
		t.Errorf("user-2 count = %d, want 2", counts["user-2"])
	}
	if _, ok := counts["user-3"]; ok {
		t.Error("user-3 should not appear for home_opened")
	}
}
