package store

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// maxChatContentSize caps stored chat turns. Prevents bloat from pasted
// documents — the completion prompt only ever sees the recent window.
const maxChatContentSize = 8 * 1024 // 8KB

// ChatMessage is one turn of a user's conversation.
type ChatMessage struct {
	ID        int64
	UserID    string
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt int64
}

// AppendChatMessage stores a conversation turn. Truncates content to
// 8KB on a rune boundary so the stored text stays valid UTF-8.
func (db *DB) AppendChatMessage(userID, role, content string) error {
	if len(content) > maxChatContentSize {
		cut := maxChatContentSize
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chat_messages (user_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, role, content, now)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// RecentChatMessages returns the user's last n turns in chronological order.
func (db *DB) RecentChatMessages(userID string, n int) ([]ChatMessage, error) {
	rows, err := db.Query(`
		SELECT id, user_id, role, content, created_at FROM (
			SELECT id, user_id, role, content, created_at
			FROM chat_messages WHERE user_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("recent chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
