// Package ledger turns a log of buy-ins, cash-outs and adjustments into net balances.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/money"
)

type Kind string

const (
	// BuyIn moves money from the participant into the pot.
	BuyIn Kind = "buy-in"
	// CashOut moves money from the pot back to the participant.
	CashOut Kind = "cash-out"
	// Adjustment sets the participant's balance to an absolute value.
	Adjustment Kind = "adjustment"
)

var (
	ErrUnknownKind    = errors.New("unknown transaction kind")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrNoParticipant  = errors.New("participant is required")
	ErrNotReversible  = errors.New("adjustment cannot be reverted by delta")
	ErrDuplicate      = errors.New("transaction already recorded")
	ErrNotFound       = errors.New("transaction not found")
)

// ParseKind accepts the canonical names and a few spellings users type.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "buy-in", "buyin", "buy_in":
		return BuyIn, nil
	case "cash-out", "cashout", "cash_out":
		return CashOut, nil
	case "adjustment", "adjust":
		return Adjustment, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Transaction is one immutable entry of the ledger. For buy-ins and cash-outs the sign
// of the effect comes from Kind, never from Amount.
type Transaction struct {
	ID          uuid.UUID    `json:"id"`
	Kind        Kind         `json:"type"`
	Participant string       `json:"participant"`
	Amount      money.Amount `json:"amount"`
	Timestamp   time.Time    `json:"timestamp"`
	GameID      string       `json:"game_id,omitempty"`
	Note        string       `json:"note,omitempty"`
}

// New returns a transaction with a fresh id, stamped now.
func New(kind Kind, participant string, amount money.Amount) Transaction {
	return Transaction{
		ID:          uuid.New(),
		Kind:        kind,
		Participant: participant,
		Amount:      amount,
		Timestamp:   time.Now().UTC(),
	}
}

func (t Transaction) Validate() error {
	switch t.Kind {
	case BuyIn, CashOut, Adjustment:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, t.Kind)
	}
	if t.Participant == "" {
		return ErrNoParticipant
	}
	// an adjustment is an absolute balance and may be negative; flows may not
	if t.Kind != Adjustment && t.Amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, t.Amount)
	}
	return nil
}

// delta is the signed change a buy-in or cash-out makes to the balance.
func (t Transaction) delta() money.Amount {
	if t.Kind == BuyIn {
		return t.Amount.Neg()
	}
	return t.Amount
}
