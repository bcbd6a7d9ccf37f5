package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ZRnown/energy/internal/models"
)

// PutSession upserts chat session state with an explicit expiry. Session state
// lives in the store so that it survives restarts and is visible across ticks.
func (s *Store) PutSession(ctx context.Context, sess *models.Session) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions (user_id, state, payload, expires_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id)
		DO UPDATE SET state=EXCLUDED.state, payload=EXCLUDED.payload,
			expires_at=EXCLUDED.expires_at, updated_at=now()
	`, sess.UserID, sess.State, sess.Payload, sess.ExpiresAt)
	return err
}

func (s *Store) GetSession(ctx context.Context, userID int64) (*models.Session, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT user_id, state, payload, expires_at, updated_at
		FROM sessions WHERE user_id=$1 AND expires_at > now()
	`, userID)

	var sess models.Session
	if err := row.Scan(&sess.UserID, &sess.State, &sess.Payload, &sess.ExpiresAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	return err
}
