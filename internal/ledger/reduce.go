package ledger

import (
	"fmt"
	"sort"

	"github.com/susu3304/potbot/internal/money"
)

// Apply returns the balances after tx. The input map is left untouched.
func Apply(b money.Balances, tx Transaction) (money.Balances, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	next := b.Clone()
	if tx.Kind == Adjustment {
		next[tx.Participant] = tx.Amount
		return next, nil
	}
	next[tx.Participant] = next[tx.Participant].Add(tx.delta())
	return next, nil
}

// Revert undoes the effect of a buy-in or cash-out. An adjustment overwrote whatever
// was there before, so it returns ErrNotReversible and the caller has to Rebuild.
func Revert(b money.Balances, tx Transaction) (money.Balances, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if tx.Kind == Adjustment {
		return nil, ErrNotReversible
	}
	next := b.Clone()
	next[tx.Participant] = next[tx.Participant].Sub(tx.delta())
	return next, nil
}

// Amend replaces old by updated, applying only the difference when kind and
// participant are unchanged.
func Amend(b money.Balances, old, updated Transaction) (money.Balances, error) {
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if old.Kind == Adjustment || updated.Kind == Adjustment {
		return nil, ErrNotReversible
	}
	if old.Kind != updated.Kind || old.Participant != updated.Participant {
		reverted, err := Revert(b, old)
		if err != nil {
			return nil, err
		}
		return Apply(reverted, updated)
	}
	next := b.Clone()
	diff := updated.delta().Sub(old.delta())
	next[updated.Participant] = next[updated.Participant].Add(diff)
	return next, nil
}

// Rebuild replays txs in timestamp order from an empty map. Entries with equal
// timestamps keep their relative order.
func Rebuild(txs []Transaction) (money.Balances, error) {
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	b := money.Balances{}
	for _, tx := range ordered {
		var err error
		if b, err = Apply(b, tx); err != nil {
			return nil, fmt.Errorf("replay %s: %w", tx.ID, err)
		}
	}
	return b, nil
}
