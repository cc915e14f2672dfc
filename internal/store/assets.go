package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Asset is a reference suggested by an asset-query completion.
type Asset struct {
	ID        string
	UserID    string
	Name      string
	URL       string
	Kind      string
	CreatedAt int64
}

// InsertAsset persists a suggested asset reference.
func (db *DB) InsertAsset(userID, name, url, kind string) (*Asset, error) {
	if userID == "" || name == "" {
		return nil, fmt.Errorf("insert asset: user id and name required")
	}

	a := &Asset{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		URL:       url,
		Kind:      kind,
		CreatedAt: time.Now().UnixMilli(),
	}
	_, err := db.Exec(`
		INSERT INTO assets (id, user_id, name, url, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Name, a.URL, a.Kind, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return a, nil
}

// ListAssets returns the user's asset suggestions, newest first.
func (db *DB) ListAssets(userID string) ([]Asset, error) {
	rows, err := db.Query(`
		SELECT id, user_id, name, url, kind, created_at
		FROM assets WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.URL, &a.Kind, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
