package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/config"
	"github.com/eportal/backend/repository"
)

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// openSessionStore returns the configured session backend and a release
// func for it.
func openSessionStore(ctx context.Context, pool *pgxpool.Pool) (auth.SessionStore, func(), error) {
	switch cfg.Session.Store {
	case config.StoreMemory:
		slog.WarnContext(ctx, "using in-memory session store; sessions are lost on restart")
		return auth.NewMemoryStore(), func() {}, nil
	case config.StoreRedis:
		store, err := auth.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return repository.NewSessions(pool), func() {}, nil
	}
}

func newSessionManager(store auth.SessionStore) (*auth.SessionManager, error) {
	return auth.NewSessionManager(store, cfg.Session.Secret, auth.SessionOptions{
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.CookieSecure,
		Logger: slog.Default(),
	})
}
