package store

import (
	"context"

	"homecare-dashboard/internal/model"
)

// SaveDeviceToken registers a push token; a token moves to the latest user
// that registers it.
func (s *Store) SaveDeviceToken(ctx context.Context, d *model.DeviceToken) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO device_tokens (token, user_id, platform) VALUES ($1,$2,$3)
		 ON CONFLICT (token) DO UPDATE SET user_id=EXCLUDED.user_id, platform=EXCLUDED.platform`,
		d.Token, d.UserID, d.Platform)
	return translate(err)
}

func (s *Store) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT token FROM device_tokens WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, rows.Err()
}

// DeleteDeviceToken drops token. An empty userID deletes regardless of owner
// (used when the push service reports the token dead).
func (s *Store) DeleteDeviceToken(ctx context.Context, userID, token string) error {
	if userID == "" {
		_, err := s.pool.Exec(ctx, `DELETE FROM device_tokens WHERE token=$1`, token)
		return err
	}
	return affected(s.pool.Exec(ctx,
		`DELETE FROM device_tokens WHERE token=$1 AND user_id=$2`, token, userID))
}
