package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Suggestion is an AI-generated nudge. Lifecycle is monotonic:
// unread -> read, unconfirmed -> confirmed; neither transition reverses.
type Suggestion struct {
	ID          string
	UserID      string
	Message     string
	Read        bool
	Confirmed   bool
	ConfirmedAt *int64
	CreatedAt   int64
}

// InsertSuggestion creates a new unread, unconfirmed suggestion.
func (db *DB) InsertSuggestion(userID, message string) (*Suggestion, error) {
	if userID == "" || message == "" {
		return nil, fmt.Errorf("insert suggestion: user id and message required")
	}

	s := &Suggestion{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UnixMilli(),
	}
	_, err := db.Exec(`
		INSERT INTO suggestions (id, user_id, message, read, confirmed, created_at)
		VALUES (?, ?, ?, 0, 0, ?)
	`, s.ID, s.UserID, s.Message, s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert suggestion: %w", err)
	}
	return s, nil
}

// ListUnreadSuggestions returns the user's unread suggestions, newest first.
func (db *DB) ListUnreadSuggestions(userID string) ([]Suggestion, error) {
	rows, err := db.Query(`
		SELECT id, user_id, message, read, confirmed, confirmed_at, created_at
		FROM suggestions WHERE user_id = ? AND read = 0
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unread suggestions: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.ID, &s.UserID, &s.Message, &s.Read, &s.Confirmed, &s.ConfirmedAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkSuggestionRead sets read=true. The owner check is folded into the
// WHERE clause so a foreign id looks identical to a missing one.
// Idempotent: marking an already-read suggestion succeeds.
func (db *DB) MarkSuggestionRead(userID, id string) error {
	result, err := db.Exec(`
		UPDATE suggestions SET read = 1
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark suggestion read: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmSuggestion sets confirmed=true with the chosen time. Same
// ownership fold as MarkSuggestionRead. A confirmed suggestion stays
// confirmed; repeat calls update only the chosen time.
func (db *DB) ConfirmSuggestion(userID, id string, chosenTime time.Time) error {
	result, err := db.Exec(`
		UPDATE suggestions SET confirmed = 1, confirmed_at = ?
		WHERE id = ? AND user_id = ?
	`, chosenTime.UnixMilli(), id, userID)
	if err != nil {
		return fmt.Errorf("confirm suggestion: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSuggestion returns a suggestion by id regardless of owner.
// Handlers must not expose this without an ownership check.
func (db *DB) GetSuggestion(id string) (*Suggestion, error) {
	var s Suggestion
	err := db.QueryRow(`
		SELECT id, user_id, message, read, confirmed, confirmed_at, created_at
		FROM suggestions WHERE id = ?
	`, id).Scan(&s.ID, &s.UserID, &s.Message, &s.Read, &s.Confirmed, &s.ConfirmedAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return &s, nil
}

// LatestSuggestionTime returns the created_at of the user's newest
// suggestion, or zero when they have none. Used for trigger cooldown.
func (db *DB) LatestSuggestionTime(userID string) (int64, error) {
	var ts int64
	err := db.QueryRow(`
		SELECT COALESCE(MAX(created_at), 0) FROM suggestions WHERE user_id = ?
	`, userID).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("latest suggestion time: %w", err)
	}
	return ts, nil
}
