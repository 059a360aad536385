package settle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/susu3304/potbot/internal/money"
)

// ErrUnbalanced matches any *UnbalancedError.
var ErrUnbalanced = errors.New("unbalanced")

// UnbalancedError is returned when balances handed to the solver do not sum to zero.
type UnbalancedError struct {
	Residual money.Amount
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("balances do not sum to zero (residual %s)", e.Residual)
}

func (e *UnbalancedError) Is(target error) bool { return target == ErrUnbalanced }

// Transfer is one payment instruction.
type Transfer struct {
	Payer  string       `json:"payer"`
	Payee  string       `json:"payee"`
	Amount money.Amount `json:"amount"`
}

type position struct {
	id     string
	amount money.Amount
}

// Solve pairs debtors with creditors, largest obligations first, until every balance
// is within tolerance of zero. Ties are broken by participant id. The result is
// small but not guaranteed minimal. At most n-1 transfers are produced for n
// non-zero balances, and b is never modified.
//
// b must sum to zero within money.Tolerance; otherwise an *UnbalancedError is
// returned and nothing is solved.
func Solve(b money.Balances) ([]Transfer, error) {
	if sum := b.Sum(); !sum.Negligible() {
		return nil, &UnbalancedError{Residual: sum}
	}

	var debtors, creditors []position
	for _, id := range b.IDs() {
		v := b[id]
		switch {
		case v.Negligible():
		case v.IsNegative():
			debtors = append(debtors, position{id: id, amount: v})
		default:
			creditors = append(creditors, position{id: id, amount: v})
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].amount.Cmp(debtors[j].amount) < 0
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].amount.Cmp(creditors[j].amount) > 0
	})

	transfers := []Transfer{}
	for len(debtors) > 0 && len(creditors) > 0 {
		d, c := &debtors[0], &creditors[0]
		amount := money.Min(d.amount.Abs(), c.amount)
		if amount.IsPositive() {
			transfers = append(transfers, Transfer{Payer: d.id, Payee: c.id, Amount: amount})
		}
		d.amount = d.amount.Add(amount)
		c.amount = c.amount.Sub(amount)
		if d.amount.Negligible() {
			debtors = debtors[1:]
		}
		if c.amount.Negligible() {
			creditors = creditors[1:]
		}
	}
	return transfers, nil
}

// Remaining applies transfers to b and returns what is left. A fully settled map
// comes back all zero.
func Remaining(b money.Balances, transfers []Transfer) money.Balances {
	out := b.Clone()
	for _, t := range transfers {
		out[t.Payer] = out[t.Payer].Add(t.Amount)
		out[t.Payee] = out[t.Payee].Sub(t.Amount)
	}
	return out
}
