package ledger

import (
	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/money"
)

// Ledger owns the transaction log of one game and the live balances derived from it.
// It is not safe for concurrent use; the game service serialises access.
type Ledger struct {
	txs      []Transaction
	balances money.Balances
}

func NewLedger() *Ledger {
	return &Ledger{balances: money.Balances{}}
}

// Restore rebuilds a ledger from a previously persisted log.
func Restore(txs []Transaction) (*Ledger, error) {
	b, err := Rebuild(txs)
	if err != nil {
		return nil, err
	}
	l := &Ledger{balances: b}
	l.txs = append(l.txs, txs...)
	return l, nil
}

// Record appends tx and applies it to the live balances.
func (l *Ledger) Record(tx Transaction) error {
	if _, ok := l.index(tx.ID); ok {
		return ErrDuplicate
	}
	next, err := Apply(l.balances, tx)
	if err != nil {
		return err
	}
	l.txs = append(l.txs, tx)
	l.balances = next
	return nil
}

// Edit changes the amount of a recorded transaction and returns the updated entry.
func (l *Ledger) Edit(id uuid.UUID, amount money.Amount) (Transaction, error) {
	i, ok := l.index(id)
	if !ok {
		return Transaction{}, ErrNotFound
	}
	updated := l.txs[i]
	updated.Amount = amount
	if err := updated.Validate(); err != nil {
		return Transaction{}, err
	}

	txs := make([]Transaction, len(l.txs))
	copy(txs, l.txs)
	txs[i] = updated
	b, err := Rebuild(txs)
	if err != nil {
		return Transaction{}, err
	}
	l.txs, l.balances = txs, b
	return updated, nil
}

// Delete removes a recorded transaction and returns it.
func (l *Ledger) Delete(id uuid.UUID) (Transaction, error) {
	i, ok := l.index(id)
	if !ok {
		return Transaction{}, ErrNotFound
	}
	removed := l.txs[i]

	txs := make([]Transaction, 0, len(l.txs)-1)
	txs = append(txs, l.txs[:i]...)
	txs = append(txs, l.txs[i+1:]...)
	b, err := Rebuild(txs)
	if err != nil {
		return Transaction{}, err
	}
	l.txs, l.balances = txs, b
	return removed, nil
}

// Find returns the transaction with the given id.
func (l *Ledger) Find(id uuid.UUID) (Transaction, bool) {
	i, ok := l.index(id)
	if !ok {
		return Transaction{}, false
	}
	return l.txs[i], true
}

// Balances returns a copy of the live balances.
func (l *Ledger) Balances() money.Balances { return l.balances.Clone() }

// Transactions returns a copy of the log in recording order.
func (l *Ledger) Transactions() []Transaction {
	out := make([]Transaction, len(l.txs))
	copy(out, l.txs)
	return out
}

func (l *Ledger) index(id uuid.UUID) (int, bool) {
	for i := range l.txs {
		if l.txs[i].ID == id {
			return i, true
		}
	}
	return 0, false
}
