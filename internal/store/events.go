package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// maxPayloadSize caps the stored event payload. Oversized payloads are
// rejected rather than truncated — events are append-only and immutable.
const maxPayloadSize = 16 * 1024 // 16KB

// Event is a single user activity record. Immutable once written.
type Event struct {
	ID        string
	UserID    string
	Type      string
	Payload   json.RawMessage
	Timestamp int64
	CreatedAt int64
}

// InsertEvent appends an event. A nil payload is stored as an empty object.
func (db *DB) InsertEvent(userID, eventType string, payload json.RawMessage, ts time.Time) (*Event, error) {
	if userID == "" || eventType == "" {
		return nil, fmt.Errorf("insert event: user id and type required")
	}
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	if len(payload) > maxPayloadSize {
		return nil, fmt.Errorf("insert event: payload exceeds %d bytes", maxPayloadSize)
	}

	e := &Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: ts.UnixMilli(),
		CreatedAt: time.Now().UnixMilli(),
	}
	_, err := db.Exec(`
		INSERT INTO events (id, user_id, type, payload, ts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Type, string(e.Payload), e.Timestamp, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

// ListEventsSince returns all events with ts >= since, newest first.
func (db *DB) ListEventsSince(since time.Time) ([]Event, error) {
	rows, err := db.Query(`
		SELECT id, user_id, type, payload, ts, created_at
		FROM events WHERE ts >= ? ORDER BY ts DESC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &payload, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEventsByUserSince returns, per user, how many events of the given
// type landed at or after since. Users with zero matches are absent.
func (db *DB) CountEventsByUserSince(eventType string, since time.Time) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT user_id, COUNT(*) FROM events
		WHERE type = ? AND ts >= ?
		GROUP BY user_id
	`, eventType, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[userID] = n
	}
	return counts, rows.Err()
}
