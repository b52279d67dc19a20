package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema создаёт таблицы при старте, если их ещё нет. Это не система миграций.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		name       VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT users_name_key UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id         UUID PRIMARY KEY,
		seq        BIGSERIAL NOT NULL UNIQUE,
		content    VARCHAR(4000) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		sender_id  UUID NOT NULL REFERENCES users(id)
	)`,
	`CREATE INDEX IF NOT EXISTS messages_recent_idx ON messages (created_at DESC, seq DESC)`,
}

func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
