package store

import (
	"errors"
	"testing"
	"time"
)

func TestInsertAndListUnread(t *testing.T) {
	db := testDB(t)

	first, err := db.InsertSuggestion("user-1", "take a break")
	if err != nil {
		t.Fatalf("InsertSuggestion: %v", err)
	}
	// Force distinct created_at so ordering is deterministic
	db.Exec("UPDATE suggestions SET created_at = created_at - 1000 WHERE id = ?", first.ID)

	second, err := db.InsertSuggestion("user-1", "review your calendar")
	if err != nil {
		t.Fatalf("InsertSuggestion: %v", err)
	}
	db.InsertSuggestion("user-2", "someone else's nudge")

	unread, err := db.ListUnreadSuggestions("user-1")
	if err != nil {
		t.Fatalf("ListUnreadSuggestions: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(unread))
	}
	if unread[0].ID != second.ID {
		t.Errorf("expected newest first, got %s", unread[0].ID)
	}
	for _, s := range unread {
		if s.Read || s.Confirmed {
			t.Errorf("new suggestion should be unread and unconfirmed: %+v", s)
		}
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	db := testDB(t)

	s, err := db.InsertSuggestion("user-1", "nudge")
	if err != nil {
		t.Fatalf("InsertSuggestion: %v", err)
	}

	if err := db.MarkSuggestionRead("user-1", s.ID); err != nil {
		t.Fatalf("first MarkSuggestionRead: %v", err)
	}
	if err := db.MarkSuggestionRead("user-1", s.ID); err != nil {
		t.Fatalf("second MarkSuggestionRead should succeed: %v", err)
	}

	unread, err := db.ListUnreadSuggestions("user-1")
	if err != nil {
		t.Fatalf("ListUnreadSuggestions: %v", err)
	}
	if len(unread) != 0 {
		t.Errorf("expected 0 unread after mark read, got %d", len(unread))
	}
}

func TestMarkReadOwnershipFolded(t *testing.T) {
	db := testDB(t)

	s, err := db.InsertSuggestion("user-1", "nudge")
	if err != nil {
		t.Fatalf("InsertSuggestion: %v", err)
	}

	// Foreign id and missing id are indistinguishable
	if err := db.MarkSuggestionRead("user-2", s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner: err = %v, want ErrNotFound", err)
	}
	if err := db.MarkSuggestionRead("user-1", "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestConfirmSuggestion(t *testing.T) {
	db := testDB(t)

	s, err := db.InsertSuggestion("user-1", "prep slot at 9am")
	if err != nil {
		t.Fatalf("InsertSuggestion: %v", err)
	}

	chosen := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := db.ConfirmSuggestion("user-2", s.ID, chosen); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner confirm: err = %v, want ErrNotFound", err)
	}

	if err := db.ConfirmSuggestion("user-1", s.ID, chosen); err != nil {
		t.Fatalf("ConfirmSuggestion: %v", err)
	}

	got, err := db.GetSuggestion(s.ID)
	if err != nil {
		t.Fatalf("GetSuggestion: %v", err)
	}
	if !got.Confirmed {
		t.Error("expected confirmed = true")
	}
	if got.ConfirmedAt == nil || *got.ConfirmedAt != chosen.UnixMilli() {
		t.Errorf("confirmed_at = %v, want %d", got.ConfirmedAt, chosen.UnixMilli())
	}
}

func TestLatestSuggestionTime(t *testing.T) {
	db := testDB(t)

	ts, err := db.LatestSuggestionTime("user-1")
	if err != nil {
		t.Fatalf("LatestSuggestionTime: %v", err)
	}
	if ts != 0 {
		t.Errorf("expected 0 for user with no suggestions, got %d", ts)
	}

	s, err := db.InsertSuggestion("user-1", "nudge")
	if err != nil {
		t.Fatalf("InsertSuggestion: %v", err)
	}

	ts, err = db.LatestSuggestionTime("user-1")
	if err != nil {
		t.Fatalf("LatestSuggestionTime: %v", err)
	}
	if ts != s.CreatedAt {
		t.Errorf("latest = %d, want %d", ts, s.CreatedAt)
	}
}
