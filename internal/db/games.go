package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/susu3304/potbot/internal/game"
	"github.com/susu3304/potbot/internal/ledger"
)

var _ game.Store = (*DB)(nil)

// CreateGame opens a new active game for the channel.
func (db *DB) CreateGame(ctx context.Context, guildID int64, channelID string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO games (id, guild_id, channel_id, status)
         VALUES ($1, $2, $3, 'active')`,
		id, guildID, channelID,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ActiveGame returns the open game of a channel or game.ErrNoActiveGame.
func (db *DB) ActiveGame(ctx context.Context, channelID string) (uuid.UUID, int64, error) {
	var id uuid.UUID
	var guildID int64
	err := db.pool.QueryRow(ctx,
		`SELECT id, guild_id FROM games WHERE channel_id = $1 AND status = 'active' LIMIT 1`,
		channelID,
	).Scan(&id, &guildID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, 0, game.ErrNoActiveGame
	}
	if err != nil {
		return uuid.Nil, 0, err
	}
	return id, guildID, nil
}

// CloseGame sets the game status to closed.
func (db *DB) CloseGame(ctx context.Context, gameID uuid.UUID) error {
	ct, err := db.pool.Exec(ctx, `UPDATE games SET status = 'closed', closed_at = CURRENT_TIMESTAMP WHERE id = $1`, gameID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("game not found")
	}
	return nil
}

func (db *DB) AddMember(ctx context.Context, gameID uuid.UUID, userID string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO game_members (game_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		gameID, userID,
	)
	return err
}

func (db *DB) Members(ctx context.Context, gameID uuid.UUID) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT user_id FROM game_members WHERE game_id = $1 ORDER BY joined_at, user_id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func (db *DB) SaveTransaction(ctx context.Context, tx ledger.Transaction) error {
	gameID, err := uuid.Parse(tx.GameID)
	if err != nil {
		return fmt.Errorf("transaction %s has no game: %w", tx.ID, err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO ledger_transactions (id, game_id, kind, participant, amount, note, recorded_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, gameID, string(tx.Kind), tx.Participant, tx.Amount, tx.Note, tx.Timestamp,
	)
	return err
}

// UpdateTransaction rewrites the mutable fields of a recorded transaction.
func (db *DB) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE ledger_transactions SET kind = $2, participant = $3, amount = $4, note = $5 WHERE id = $1`,
		tx.ID, string(tx.Kind), tx.Participant, tx.Amount, tx.Note,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (db *DB) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	ct, err := db.pool.Exec(ctx, `DELETE FROM ledger_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Transactions returns the game's log in recording order.
func (db *DB) Transactions(ctx context.Context, gameID uuid.UUID) ([]ledger.Transaction, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, kind, participant, amount, note, recorded_at
		 FROM ledger_transactions
		 WHERE game_id = $1
		 ORDER BY recorded_at, id`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var kind string
		if err := rows.Scan(&tx.ID, &kind, &tx.Participant, &tx.Amount, &tx.Note, &tx.Timestamp); err != nil {
			return nil, err
		}
		tx.Kind = ledger.Kind(kind)
		tx.GameID = gameID.String()
		out = append(out, tx)
	}
	return out, rows.Err()
}
