package settle

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/susu3304/potbot/internal/money"
)

// Policy selects who absorbs the residual in AutoBalance.
type Policy int

const (
	// SpreadNonZero leaves participants at exactly zero untouched.
	SpreadNonZero Policy = iota
	// SpreadAll spreads over everyone in the map.
	SpreadAll
)

var ErrUnknownPolicy = errors.New("unknown auto-balance policy")

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "non-zero", "nonzero":
		return SpreadNonZero, nil
	case "all":
		return SpreadAll, nil
	}
	return SpreadNonZero, fmt.Errorf("%w %q", ErrUnknownPolicy, s)
}

// AutoBalance spreads the residual sum evenly over the non-zero balances so the result
// sums to exactly zero. Who won and who lost is roughly kept, not exactly: everyone
// shifts by the same correction, which can push a small balance across zero.
func AutoBalance(b money.Balances) money.Balances {
	return AutoBalanceWith(b, SpreadNonZero)
}

// AutoBalanceWith is AutoBalance with an explicit policy. The correction is computed
// in whole cents; the cents left over by the division go one each to the first
// participants in id order. The input map is not modified.
func AutoBalanceWith(b money.Balances, p Policy) money.Balances {
	out := b.Clone()
	residual := b.Sum().Decimal().Shift(money.Places)
	if residual.IsZero() {
		return out
	}

	var ids []string
	for _, id := range b.IDs() {
		if p == SpreadAll || !b[id].IsZero() {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return out
	}

	share, rem := residual.QuoRem(decimal.NewFromInt(int64(len(ids))), 0)
	step := decimal.NewFromInt(1)
	if rem.IsNegative() {
		step = step.Neg()
	}
	extra := rem.Abs().IntPart()
	for i, id := range ids {
		c := share
		if int64(i) < extra {
			c = c.Add(step)
		}
		out[id] = out[id].Sub(money.New(c.Shift(-money.Places)))
	}
	return out
}
