package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/whiteboard"
)

// Get fetches a single setting.
// Returns whiteboard.ErrSettingNotFound if the key is not set.
func (s *PGStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM whiteboard_settings WHERE key = $1`, key,
	).Scan(&v)
	if err != nil {
		if isNoRows(err) {
			return "", whiteboard.ErrSettingNotFound
		}
		return "", fmt.Errorf("whiteboard: get setting: %w", err)
	}
	return v, nil
}

// Set inserts or replaces a setting.
func (s *PGStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO whiteboard_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("whiteboard: set setting: %w", err)
	}
	return nil
}

// Delete removes a setting.
// No error if the key doesn't exist.
func (s *PGStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM whiteboard_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("whiteboard: delete setting: %w", err)
	}
	return nil
}

// List returns every setting.
// Returns an empty map (not nil) if none are set.
func (s *PGStore) List(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT key, value FROM whiteboard_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("whiteboard: list settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("whiteboard: scan setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("whiteboard: rows settings: %w", err)
	}
	return out, nil
}
