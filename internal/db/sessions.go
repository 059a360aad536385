package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/susu3304/potbot/internal/game"
	"github.com/susu3304/potbot/internal/money"
	"github.com/susu3304/potbot/internal/settle"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionSummary struct {
	ID           uuid.UUID `json:"id"`
	ChannelID    string    `json:"channel_id"`
	SettledAt    time.Time `json:"settled_at"`
	AutoBalanced bool      `json:"auto_balanced"`
	Transfers    int       `json:"transfer_count"`
	Pending      int       `json:"pending_count"`
}

type ReminderConfig struct {
	Enabled         bool
	IntervalMinutes int
	NextDueAt       *time.Time
}

type ReminderDue struct {
	SessionID       uuid.UUID
	ChannelID       string
	IntervalMinutes int
}

// SaveSession stores a settled session with its balances and one task per transfer,
// and closes the settled game in the same transaction.
func (db *DB) SaveSession(ctx context.Context, s *game.Session) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var gameID *uuid.UUID
	if s.GameID != uuid.Nil {
		gameID = &s.GameID
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, game_id, guild_id, channel_id, settled_at, auto_balanced)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, gameID, s.GuildID, s.ChannelID, s.Date, s.AutoBalanced,
	); err != nil {
		return err
	}
	for _, id := range s.Balances.IDs() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_balances (session_id, participant, amount) VALUES ($1, $2, $3)`,
			s.ID, id, s.Balances[id],
		); err != nil {
			return err
		}
	}
	for i, t := range s.Transfers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO settlement_tasks (session_id, position, payer_id, payee_id, original_amount, amount, completed)
             VALUES ($1, $2, $3, $4, $5, $5, FALSE)`,
			s.ID, i, t.Payer, t.Payee, t.Amount,
		); err != nil {
			return err
		}
	}
	if gameID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE games SET status = 'closed', closed_at = CURRENT_TIMESTAMP WHERE id = $1`,
			*gameID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListSessions returns a guild's settled sessions, newest first.
func (db *DB) ListSessions(ctx context.Context, guildID int64) ([]SessionSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.channel_id, s.settled_at, s.auto_balanced,
		        COUNT(t.id), COUNT(t.id) FILTER (WHERE t.completed = FALSE)
		 FROM sessions s
		 LEFT JOIN settlement_tasks t ON t.session_id = s.id
		 WHERE s.guild_id = $1
		 GROUP BY s.id
		 ORDER BY s.settled_at DESC`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.ChannelID, &s.SettledAt, &s.AutoBalanced, &s.Transfers, &s.Pending); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSession loads one session of a guild with its balances and tasks.
func (db *DB) GetSession(ctx context.Context, guildID int64, id uuid.UUID) (*game.Session, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, game_id, guild_id, channel_id, settled_at, auto_balanced
		 FROM sessions WHERE id = $1 AND guild_id = $2`,
		id, guildID,
	)
	return db.loadSession(ctx, row)
}

// LatestSession returns the channel's most recent session, or nil.
func (db *DB) LatestSession(ctx context.Context, channelID string) (*game.Session, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, game_id, guild_id, channel_id, settled_at, auto_balanced
		 FROM sessions WHERE channel_id = $1
		 ORDER BY settled_at DESC LIMIT 1`,
		channelID,
	)
	s, err := db.loadSession(ctx, row)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return s, err
}

func (db *DB) loadSession(ctx context.Context, row pgx.Row) (*game.Session, error) {
	var s game.Session
	var gameID *uuid.UUID
	if err := row.Scan(&s.ID, &gameID, &s.GuildID, &s.ChannelID, &s.Date, &s.AutoBalanced); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if gameID != nil {
		s.GameID = *gameID
	}

	rows, err := db.pool.Query(ctx, `SELECT participant, amount FROM session_balances WHERE session_id = $1`, s.ID)
	if err != nil {
		return nil, err
	}
	s.Balances = money.Balances{}
	for rows.Next() {
		var id string
		var amount money.Amount
		if err := rows.Scan(&id, &amount); err != nil {
			rows.Close()
			return nil, err
		}
		s.Balances[id] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.pool.Query(ctx,
		`SELECT payer_id, payee_id, original_amount, amount, completed
		 FROM settlement_tasks WHERE session_id = $1 ORDER BY position`,
		s.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t game.Task
		var original money.Amount
		if err := rows.Scan(&t.Payer, &t.Payee, &original, &t.Amount, &t.Completed); err != nil {
			return nil, err
		}
		s.Transfers = append(s.Transfers, settle.Transfer{Payer: t.Payer, Payee: t.Payee, Amount: original})
		s.Tasks = append(s.Tasks, t)
	}
	return &s, rows.Err()
}

// DeleteSession removes a session and everything hanging off it.
func (db *DB) DeleteSession(ctx context.Context, guildID int64, id uuid.UUID) error {
	ct, err := db.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND guild_id = $2`, id, guildID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// PendingTasks returns the unpaid tasks of a session.
func (db *DB) PendingTasks(ctx context.Context, sessionID uuid.UUID) ([]game.Task, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT payer_id, payee_id, amount
		 FROM settlement_tasks
		 WHERE session_id = $1 AND completed = FALSE
		 ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []game.Task
	for rows.Next() {
		var t game.Task
		if err := rows.Scan(&t.Payer, &t.Payee, &t.Amount); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// RecordTaskPayment logs a payment and reduces outstanding tasks (payer -> payee).
// Returns the remaining unpaid amount for the pair after applying the payment.
func (db *DB) RecordTaskPayment(ctx context.Context, sessionID uuid.UUID, payerID, payeeID string, amount money.Amount, recordedBy string) (money.Amount, error) {
	if !amount.IsPositive() {
		return money.Zero, fmt.Errorf("amount must be positive")
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return money.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type pending struct {
		ID     int64
		Amount money.Amount
	}

	rows, err := tx.Query(ctx,
		`SELECT id, amount
		 FROM settlement_tasks
		 WHERE session_id = $1 AND completed = FALSE AND payer_id = $2 AND payee_id = $3
		 ORDER BY position FOR UPDATE`,
		sessionID, payerID, payeeID,
	)
	if err != nil {
		return money.Zero, err
	}
	var tasks []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.ID, &p.Amount); err != nil {
			rows.Close()
			return money.Zero, err
		}
		tasks = append(tasks, p)
	}
	rows.Close()

	left := amount
	for _, t := range tasks {
		if !left.IsPositive() {
			break
		}
		if left.Cmp(t.Amount) >= 0 {
			left = left.Sub(t.Amount)
			if _, err := tx.Exec(ctx,
				`UPDATE settlement_tasks
				 SET amount = 0, completed = TRUE, completed_at = COALESCE(completed_at, CURRENT_TIMESTAMP)
				 WHERE id = $1`,
				t.ID,
			); err != nil {
				return money.Zero, err
			}
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE settlement_tasks SET amount = $2 WHERE id = $1`,
			t.ID, t.Amount.Sub(left),
		); err != nil {
			return money.Zero, err
		}
		left = money.Zero
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO task_payments (session_id, payer_id, payee_id, amount, recorded_by)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionID, payerID, payeeID, amount, recordedBy,
	); err != nil {
		return money.Zero, err
	}

	var remaining money.Amount
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM settlement_tasks
		 WHERE session_id = $1 AND completed = FALSE AND payer_id = $2 AND payee_id = $3`,
		sessionID, payerID, payeeID,
	).Scan(&remaining); err != nil {
		return money.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return money.Zero, err
	}
	return remaining, nil
}

// RegisteredGuildIDs returns every guild that has played at least one game.
func (db *DB) RegisteredGuildIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.pool.Query(ctx, "SELECT DISTINCT guild_id FROM games")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guildIDs []int64
	for rows.Next() {
		var guildID int64
		if err := rows.Scan(&guildID); err != nil {
			return nil, err
		}
		guildIDs = append(guildIDs, guildID)
	}
	return guildIDs, rows.Err()
}

// UpsertReminder configures reminders for a session and optionally schedules the next due time.
func (db *DB) UpsertReminder(ctx context.Context, sessionID uuid.UUID, enabled bool, intervalMinutes int, nextDueAt *time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO reminders (session_id, enabled, interval_minutes, next_due_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE
		 SET enabled = EXCLUDED.enabled,
			 interval_minutes = EXCLUDED.interval_minutes,
			 next_due_at = COALESCE(EXCLUDED.next_due_at, reminders.next_due_at)`,
		sessionID, enabled, intervalMinutes, nextDueAt,
	)
	return err
}

func (db *DB) ReminderConfig(ctx context.Context, sessionID uuid.UUID) (*ReminderConfig, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT enabled, interval_minutes, next_due_at FROM reminders WHERE session_id = $1`,
		sessionID,
	)
	var cfg ReminderConfig
	if err := row.Scan(&cfg.Enabled, &cfg.IntervalMinutes, &cfg.NextDueAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// DueReminders returns reminder targets that are due and still have pending tasks.
func (db *DB) DueReminders(ctx context.Context, now time.Time) ([]ReminderDue, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.session_id, s.channel_id, r.interval_minutes
		 FROM reminders r
		 JOIN sessions s ON s.id = r.session_id
		 WHERE r.enabled = TRUE
		   AND (r.next_due_at IS NULL OR r.next_due_at <= $1)
		   AND EXISTS (
			 SELECT 1 FROM settlement_tasks t
			 WHERE t.session_id = r.session_id AND t.completed = FALSE
		   )`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ReminderDue
	for rows.Next() {
		var r ReminderDue
		if err := rows.Scan(&r.SessionID, &r.ChannelID, &r.IntervalMinutes); err != nil {
			return nil, err
		}
		targets = append(targets, r)
	}
	return targets, rows.Err()
}

// MarkReminderSent updates reminder schedule timestamps.
func (db *DB) MarkReminderSent(ctx context.Context, sessionID uuid.UUID, sentAt, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE reminders SET last_sent_at = $2, next_due_at = $3 WHERE session_id = $1`,
		sessionID, sentAt, nextDue,
	)
	return err
}

// DelayReminder updates next_due_at without touching last_sent_at.
func (db *DB) DelayReminder(ctx context.Context, sessionID uuid.UUID, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE reminders SET next_due_at = $2 WHERE session_id = $1`,
		sessionID, nextDue,
	)
	return err
}
