package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eportal/backend/auth"
)

// Sessions is a PostgreSQL-backed auth.SessionStore. The principal
// snapshot is stored as JSONB.
type Sessions struct {
	db Querier
}

var _ auth.SessionStore = (*Sessions)(nil)

// NewSessions constructs a session store over db.
func NewSessions(db Querier) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) Create(ctx context.Context, session *auth.Session) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO sessions (key, principal, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.Key, session.Principal, session.CreatedAt, session.ExpiresAt,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Sessions) Get(ctx context.Context, key string) (*auth.Session, error) {
	var session auth.Session
	err := s.db.QueryRow(ctx,
		`SELECT key, principal, created_at, expires_at FROM sessions WHERE key = $1`,
		key,
	).Scan(&session.Key, &session.Principal, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

func (s *Sessions) Update(ctx context.Context, key string, principal auth.Principal) error {
	tag, err := s.db.Exec(ctx, `UPDATE sessions SET principal = $2 WHERE key = $1`, key, principal)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
