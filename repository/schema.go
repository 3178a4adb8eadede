package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eportal/backend/rbac"
)

// EnsureSchema creates the portal tables if they do not exist and seeds the
// officer positions. It is safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS departments (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS positions (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL UNIQUE
        )`,
		`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            national_id TEXT,
            date_of_birth DATE,
            phone TEXT,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS roles (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL UNIQUE
        )`,
		`CREATE TABLE IF NOT EXISTS users_roles (
            user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
            PRIMARY KEY (user_id, role_id)
        )`,
		`CREATE TABLE IF NOT EXISTS officers (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
            department_id BIGINT NOT NULL REFERENCES departments(id),
            position_id BIGINT NOT NULL REFERENCES positions(id),
            nick_name TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS services (
            id BIGSERIAL PRIMARY KEY,
            department_id BIGINT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            description TEXT,
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        )`,
		`CREATE TABLE IF NOT EXISTS requests (
            id BIGSERIAL PRIMARY KEY,
            citizen_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            service_id BIGINT NOT NULL REFERENCES services(id),
            details TEXT,
            current_status TEXT NOT NULL DEFAULT 'SUBMITTED'
                CHECK (current_status IN ('SUBMITTED', 'UNDER_REVIEW', 'PENDING', 'APPROVED', 'REJECTED')),
            remarks TEXT,
            submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            reviewed_by BIGINT REFERENCES officers(id),
            reviewed_at TIMESTAMPTZ
        )`,
		`CREATE INDEX IF NOT EXISTS requests_citizen_idx ON requests (citizen_id)`,
		`CREATE INDEX IF NOT EXISTS requests_service_idx ON requests (service_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
            id BIGSERIAL PRIMARY KEY,
            request_id BIGINT NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
            file_name TEXT NOT NULL,
            file_path TEXT NOT NULL,
            mime_type TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id BIGSERIAL PRIMARY KEY,
            request_id BIGINT NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
            amount_cents BIGINT NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILED')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            message TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, is_read)`,
		`CREATE TABLE IF NOT EXISTS sessions (
            key TEXT PRIMARY KEY,
            principal JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS sessions_expires_idx ON sessions (expires_at)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return seedPositions(ctx, pool)
}

// seedPositions inserts the positions officer links resolve by name. Roles
// are created on demand and are not seeded.
func seedPositions(ctx context.Context, pool *pgxpool.Pool) error {
	seeds := []string{string(rbac.RoleOfficer), string(rbac.RoleDeptHead)}

	batch := &pgx.Batch{}
	for _, name := range seeds {
		batch.Queue(`INSERT INTO positions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	}

	br := pool.SendBatch(ctx, batch)
	defer br.Close()
	for range seeds {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed positions: %w", err)
		}
	}
	return nil
}
