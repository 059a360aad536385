package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations creates the game, ledger and settlement tables.
// Money columns are NUMERIC(14,2) so values round-trip without float error.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY,
			guild_id BIGINT NOT NULL,
			channel_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			closed_at TIMESTAMPTZ
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_games_active_channel ON games(channel_id) WHERE status = 'active';

		CREATE TABLE IF NOT EXISTS game_members (
			game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (game_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS ledger_transactions (
			id UUID PRIMARY KEY,
			game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			participant TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_transactions_game ON ledger_transactions(game_id, recorded_at);

		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			game_id UUID REFERENCES games(id) ON DELETE SET NULL,
			guild_id BIGINT NOT NULL,
			channel_id TEXT NOT NULL,
			settled_at TIMESTAMPTZ NOT NULL,
			auto_balanced BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_guild ON sessions(guild_id, settled_at DESC);

		CREATE TABLE IF NOT EXISTS session_balances (
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			participant TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			PRIMARY KEY (session_id, participant)
		);

		CREATE TABLE IF NOT EXISTS settlement_tasks (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			position INT NOT NULL,
			payer_id TEXT NOT NULL,
			payee_id TEXT NOT NULL,
			original_amount NUMERIC(14,2) NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_settlement_tasks_session ON settlement_tasks(session_id, position);

		CREATE TABLE IF NOT EXISTS task_payments (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			payer_id TEXT NOT NULL,
			payee_id TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			recorded_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS reminders (
			session_id UUID PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			interval_minutes INT NOT NULL,
			next_due_at TIMESTAMPTZ,
			last_sent_at TIMESTAMPTZ
		);
	`)
	return err
}
