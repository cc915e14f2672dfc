package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Credential is a user's calendar/email provider token record. One row
// per user, passed by reference through request context — never a
// process-wide singleton.
type Credential struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *int64
	UpdatedAt    int64
}

// SaveCredential inserts or replaces the user's provider tokens.
func (db *DB) SaveCredential(c *Credential) error {
	if c.UserID == "" || c.AccessToken == "" {
		return fmt.Errorf("save credential: user id and access token required")
	}

	c.UpdatedAt = time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO provider_credentials (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(NULLIF(excluded.refresh_token, ''), refresh_token),
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, c.UserID, c.AccessToken, c.RefreshToken, c.ExpiresAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// GetCredential returns the user's provider tokens, or nil when the user
// has never connected a provider.
func (db *DB) GetCredential(userID string) (*Credential, error) {
	var c Credential
	err := db.QueryRow(`
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM provider_credentials WHERE user_id = ?
	`, userID).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}
