package settle

import "github.com/susu3304/potbot/internal/money"

type Options struct {
	// AutoBalance corrects a non-zero sum instead of failing with *UnbalancedError.
	AutoBalance bool
	Policy      Policy
}

// Plan is the full result of a settlement run.
type Plan struct {
	// Validation is the check of the balances as given.
	Validation Validation `json:"validation"`
	// Balances are the balances that were actually solved.
	Balances     money.Balances `json:"balances"`
	AutoBalanced bool           `json:"auto_balanced"`
	Transfers    []Transfer     `json:"transfers"`
}

// Settle validates b, auto-balances it if allowed and needed, and solves it. On an
// unbalanced input without AutoBalance it returns the plan so far together with an
// *UnbalancedError. Fewer than two active participants is not an error here: the
// plan simply has no transfers.
func Settle(b money.Balances, opts Options) (*Plan, error) {
	plan := &Plan{
		Validation: Validate(b),
		Balances:   b.Clone(),
		Transfers:  []Transfer{},
	}
	if !plan.Validation.Sum.Negligible() {
		if !opts.AutoBalance {
			return plan, &UnbalancedError{Residual: plan.Validation.Sum}
		}
		plan.Balances = AutoBalanceWith(b, opts.Policy)
		plan.AutoBalanced = true
	}

	transfers, err := Solve(plan.Balances)
	if err != nil {
		return plan, err
	}
	plan.Transfers = transfers
	return plan, nil
}
