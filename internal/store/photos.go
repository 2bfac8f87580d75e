package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PutPhoto stores processed image bytes under id.
func PutPhoto(ctx context.Context, db *sql.DB, id string, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO photos (id, mime, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET mime = excluded.mime, data = excluded.data`,
		id, mime, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing photo: %w", err)
	}
	return nil
}

// GetPhoto returns a photo's bytes and MIME type, or nil data if missing.
func GetPhoto(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM photos WHERE id = ?`, id,
	).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting photo: %w", err)
	}
	return data, mime, nil
}
