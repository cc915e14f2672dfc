package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "events: append-only user activity log",
		SQL: `
CREATE TABLE events (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    payload    TEXT NOT NULL DEFAULT '{}',
    ts         INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_events_user_ts ON events(user_id, ts DESC);
CREATE INDEX idx_events_type_ts ON events(type, ts DESC);
`,
	},
	{
		Version:     2,
		Description: "suggestions: AI-generated nudges with read/confirm lifecycle",
		SQL: `
CREATE TABLE suggestions (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    message      TEXT NOT NULL,
    read         INTEGER NOT NULL DEFAULT 0,
    confirmed    INTEGER NOT NULL DEFAULT 0,
    confirmed_at INTEGER,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_suggestions_user_unread ON suggestions(user_id, read, created_at DESC);
`,
	},
	{
		Version:     3,
		Description: "tasks: AI-generated task rows",
		SQL: `
CREATE TABLE tasks (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT,
    due_at      INTEGER,
    created_at  INTEGER NOT NULL
);

CREATE INDEX idx_tasks_user ON tasks(user_id, created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "assets: AI-suggested asset references",
		SQL: `
CREATE TABLE assets (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    name       TEXT NOT NULL,
    url        TEXT,
    kind       TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_assets_user ON assets(user_id, created_at DESC);
`,
	},
	{
		Version:     5,
		Description: "chat_messages: rolling conversation history",
		SQL: `
CREATE TABLE chat_messages (
    id         INTEGER PRIMARY KEY,
    user_id    TEXT NOT NULL,
    role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content    TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_chat_user_created ON chat_messages(user_id, created_at DESC);
`,
	},
	{
		Version:     6,
		Description: "provider_credentials: per-user calendar/email provider tokens",
		SQL: `
CREATE TABLE provider_credentials (
    user_id       TEXT PRIMARY KEY,
    access_token  TEXT NOT NULL,
    refresh_token TEXT,
    expires_at    INTEGER,
    updated_at    INTEGER NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
