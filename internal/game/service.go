// Package game keeps one live game per channel: who joined, what they bought in and
// cashed out, and the settlement once the game ends.
package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/ledger"
	"github.com/susu3304/potbot/internal/money"
	"github.com/susu3304/potbot/internal/settle"
)

var (
	ErrNotStarted     = errors.New("game has not been started")
	ErrAlreadyStarted = errors.New("game is already running")
	ErrNoSettlement   = errors.New("no settlement for this channel")
	ErrTaskNotFound   = errors.New("no pending payment between these participants")
	ErrInvalidAmount  = errors.New("amount must be positive")
)

type Service struct {
	mu       sync.Mutex
	store    Store
	currency string
	games    map[string]*Game
	settled  map[string]*Session
	now      func() time.Time
}

// NewService returns a service backed by store. A nil store keeps everything in memory.
func NewService(store Store, currency string) *Service {
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &Service{
		store:    store,
		currency: currency,
		games:    make(map[string]*Game),
		settled:  make(map[string]*Session),
		now:      time.Now,
	}
}

// Currency is the currency code used when rendering amounts.
func (s *Service) Currency() string { return s.currency }

// Start opens a game in the channel. If the store still has an open game for it, that
// game is restored by replaying its transactions and restored is true.
func (s *Service) Start(ctx context.Context, guildID int64, channelID string) (restored bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[channelID]; ok {
		return false, ErrAlreadyStarted
	}

	g := &Game{GuildID: guildID, ChannelID: channelID, Members: make(map[string]struct{}), ledger: ledger.NewLedger()}
	if s.store == nil {
		g.ID = uuid.New()
		s.games[channelID] = g
		return false, nil
	}

	id, storedGuild, err := s.store.ActiveGame(ctx, channelID)
	switch {
	case err == nil:
		if err := s.restore(ctx, g, id); err != nil {
			return false, err
		}
		g.GuildID = storedGuild
		restored = true
	case errors.Is(err, ErrNoActiveGame):
		if g.ID, err = s.store.CreateGame(ctx, guildID, channelID); err != nil {
			return false, fmt.Errorf("create game: %w", err)
		}
	default:
		return false, fmt.Errorf("load active game: %w", err)
	}
	s.games[channelID] = g
	return restored, nil
}

func (s *Service) restore(ctx context.Context, g *Game, id uuid.UUID) error {
	txs, err := s.store.Transactions(ctx, id)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	l, err := ledger.Restore(txs)
	if err != nil {
		return fmt.Errorf("replay game %s: %w", id, err)
	}
	members, err := s.store.Members(ctx, id)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	g.ID, g.ledger = id, l
	for _, m := range members {
		g.Members[m] = struct{}{}
	}
	for _, tx := range txs {
		g.Members[tx.Participant] = struct{}{}
	}
	log.Printf("game: restored %s in channel %s with %d transactions", id, g.ChannelID, len(txs))
	return nil
}

// Stop abandons the game in the channel without settling it.
func (s *Service) Stop(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return ErrNotStarted
	}
	if s.store != nil {
		if err := s.store.CloseGame(ctx, g.ID); err != nil {
			return fmt.Errorf("close game: %w", err)
		}
	}
	delete(s.games, channelID)
	return nil
}

// Join registers userID as a participant. Joining twice is a no-op; joined reports
// whether the user was new.
func (s *Service) Join(ctx context.Context, channelID, userID string) (joined bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return false, ErrNotStarted
	}
	return s.join(ctx, g, userID)
}

func (s *Service) join(ctx context.Context, g *Game, userID string) (bool, error) {
	if _, exists := g.Members[userID]; exists {
		return false, nil
	}
	if s.store != nil {
		if err := s.store.AddMember(ctx, g.ID, userID); err != nil {
			return false, fmt.Errorf("add member: %w", err)
		}
	}
	g.Members[userID] = struct{}{}
	return true, nil
}

func (s *Service) BuyIn(ctx context.Context, channelID, userID string, amount money.Amount, note string) (ledger.Transaction, error) {
	return s.record(ctx, channelID, ledger.BuyIn, userID, amount, note)
}

func (s *Service) CashOut(ctx context.Context, channelID, userID string, amount money.Amount, note string) (ledger.Transaction, error) {
	return s.record(ctx, channelID, ledger.CashOut, userID, amount, note)
}

// Adjust sets userID's balance to amount outright, negative amounts included.
func (s *Service) Adjust(ctx context.Context, channelID, userID string, amount money.Amount, note string) (ledger.Transaction, error) {
	return s.record(ctx, channelID, ledger.Adjustment, userID, amount, note)
}

func (s *Service) record(ctx context.Context, channelID string, kind ledger.Kind, userID string, amount money.Amount, note string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return ledger.Transaction{}, ErrNotStarted
	}

	if kind != ledger.Adjustment && amount.IsZero() {
		return ledger.Transaction{}, ErrInvalidAmount
	}
	tx := ledger.New(kind, userID, amount)
	tx.Timestamp = s.now().UTC()
	tx.GameID = g.ID.String()
	tx.Note = note
	if err := tx.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	if _, err := s.join(ctx, g, userID); err != nil {
		return ledger.Transaction{}, err
	}
	if s.store != nil {
		if err := s.store.SaveTransaction(ctx, tx); err != nil {
			return ledger.Transaction{}, fmt.Errorf("save transaction: %w", err)
		}
	}
	if err := g.ledger.Record(tx); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// Edit changes the amount of a transaction. Balances are rebuilt from the log.
func (s *Service) Edit(ctx context.Context, channelID string, id uuid.UUID, amount money.Amount) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return ledger.Transaction{}, ErrNotStarted
	}
	old, ok := g.ledger.Find(id)
	if !ok {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	if old.Kind != ledger.Adjustment && amount.IsZero() {
		return ledger.Transaction{}, ErrInvalidAmount
	}
	updated, err := g.ledger.Edit(id, amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if s.store != nil {
		if err := s.store.UpdateTransaction(ctx, updated); err != nil {
			// keep memory and store in step
			if _, rerr := g.ledger.Edit(id, old.Amount); rerr != nil {
				log.Printf("game: failed to roll back edit of %s: %v", id, rerr)
			}
			return ledger.Transaction{}, fmt.Errorf("update transaction: %w", err)
		}
	}
	return updated, nil
}

// Delete removes a transaction. Balances are rebuilt from the log.
func (s *Service) Delete(ctx context.Context, channelID string, id uuid.UUID) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return ledger.Transaction{}, ErrNotStarted
	}
	if _, ok := g.ledger.Find(id); !ok {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	if s.store != nil {
		if err := s.store.DeleteTransaction(ctx, id); err != nil {
			return ledger.Transaction{}, fmt.Errorf("delete transaction: %w", err)
		}
	}
	return g.ledger.Delete(id)
}

// Balances returns the live balances, with every member present even at zero.
func (s *Service) Balances(channelID string) (money.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return nil, ErrNotStarted
	}
	return g.balances(), nil
}

func (g *Game) balances() money.Balances {
	b := g.ledger.Balances()
	for m := range g.Members {
		if _, ok := b[m]; !ok {
			b[m] = money.Zero
		}
	}
	return b
}

// Transactions returns the game's log in recording order.
func (s *Service) Transactions(channelID string) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return nil, ErrNotStarted
	}
	return g.ledger.Transactions(), nil
}

// Members returns the participant ids of the channel's game, sorted.
func (s *Service) Members(channelID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return nil, ErrNotStarted
	}
	ids := make([]string, 0, len(g.Members))
	for uid := range g.Members {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	return ids, nil
}

// Status returns the validation of the current balances together with the balances.
func (s *Service) Status(channelID string) (money.Balances, settle.Validation, error) {
	b, err := s.Balances(channelID)
	if err != nil {
		return nil, settle.Validation{}, err
	}
	return b, settle.Validate(b), nil
}

// Settle computes the payments for the channel's game, freezes them into a Session,
// and closes the game. The session's transfers become pending tasks.
func (s *Service) Settle(ctx context.Context, channelID string, opts settle.Options) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[channelID]
	if !ok {
		return nil, ErrNotStarted
	}

	b := g.balances()
	plan, err := settle.Settle(b, opts)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:           uuid.New(),
		GameID:       g.ID,
		GuildID:      g.GuildID,
		ChannelID:    channelID,
		Date:         s.now().UTC(),
		Balances:     plan.Balances,
		Transfers:    plan.Transfers,
		AutoBalanced: plan.AutoBalanced,
	}
	for _, t := range plan.Transfers {
		sess.Tasks = append(sess.Tasks, Task{Payer: t.Payer, Payee: t.Payee, Amount: t.Amount})
	}

	if s.store != nil {
		if err := s.store.SaveSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	if plan.AutoBalanced {
		log.Printf("game: %s auto-balanced residual %s before settling", g.ID, plan.Validation.Sum)
	}
	delete(s.games, channelID)
	s.settled[channelID] = sess
	return sess, nil
}

// Pay records that payerID paid payeeID toward the channel's last settlement. A
// payment can cover several tasks or part of one. It returns what is still owed
// between the two. With a store, the store's figure is returned and the cached
// session is dropped so the next read sees the stored tasks.
func (s *Service) Pay(ctx context.Context, channelID, payerID, payeeID string, amount money.Amount, recordedBy string) (money.Amount, error) {
	if !amount.IsPositive() {
		return money.Zero, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lastSession(ctx, channelID)
	if err != nil {
		return money.Zero, err
	}
	tasks := make([]Task, len(sess.Tasks))
	copy(tasks, sess.Tasks)
	remaining, matched := applyPayment(tasks, payerID, payeeID, amount)
	if !matched {
		return money.Zero, ErrTaskNotFound
	}
	if s.store != nil {
		stored, err := s.store.RecordTaskPayment(ctx, sess.ID, payerID, payeeID, amount, recordedBy)
		if err != nil {
			return money.Zero, fmt.Errorf("record payment: %w", err)
		}
		delete(s.settled, channelID)
		return stored, nil
	}
	sess.Tasks = tasks
	return remaining, nil
}

// PendingTasks returns the unpaid tasks of the channel's last settlement.
func (s *Service) PendingTasks(ctx context.Context, channelID string) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lastSession(ctx, channelID)
	if err != nil {
		return nil, err
	}
	var out []Task
	for _, t := range sess.Tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out, nil
}

// LastSession returns the channel's most recent settlement.
func (s *Service) LastSession(ctx context.Context, channelID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSession(ctx, channelID)
}

// lastSession returns the channel's most recent settlement, loading it from the
// store after a restart. Callers hold s.mu.
func (s *Service) lastSession(ctx context.Context, channelID string) (*Session, error) {
	if sess, ok := s.settled[channelID]; ok {
		return sess, nil
	}
	if s.store == nil {
		return nil, ErrNoSettlement
	}
	sess, err := s.store.LatestSession(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrNoSettlement
	}
	s.settled[channelID] = sess
	return sess, nil
}

// applyPayment reduces the open tasks from payer to payee in order, closing each one
// the payment fully covers. Any excess beyond the open tasks is ignored.
func applyPayment(tasks []Task, payerID, payeeID string, amount money.Amount) (remaining money.Amount, matched bool) {
	left := amount
	for i := range tasks {
		t := &tasks[i]
		if t.Completed || t.Payer != payerID || t.Payee != payeeID {
			continue
		}
		matched = true
		if !left.IsPositive() {
			remaining = remaining.Add(t.Amount)
			continue
		}
		if left.Cmp(t.Amount) >= 0 {
			left = left.Sub(t.Amount)
			t.Amount = money.Zero
			t.Completed = true
			continue
		}
		t.Amount = t.Amount.Sub(left)
		left = money.Zero
		remaining = remaining.Add(t.Amount)
	}
	return remaining, matched
}
