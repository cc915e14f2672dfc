package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is a row persisted from a structured task-generation completion.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	DueAt       *int64
	CreatedAt   int64
}

// InsertTask persists a generated task.
func (db *DB) InsertTask(userID, title, description string, dueAt *time.Time) (*Task, error) {
	if userID == "" || title == "" {
		return nil, fmt.Errorf("insert task: user id and title required")
	}

	t := &Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if dueAt != nil {
		ms := dueAt.UnixMilli()
		t.DueAt = &ms
	}
	_, err := db.Exec(`
		INSERT INTO tasks (id, user_id, title, description, due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Title, t.Description, t.DueAt, t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// ListTasks returns the user's tasks, newest first.
func (db *DB) ListTasks(userID string) ([]Task, error) {
	rows, err := db.Query(`
		SELECT id, user_id, title, description, due_at, created_at
		FROM tasks WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
