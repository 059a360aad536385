package settle

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/potbot/internal/money"
)

func balances(kv ...interface{}) money.Balances {
	b := money.Balances{}
	for i := 0; i < len(kv); i += 2 {
		b[kv[i].(string)] = money.MustParse(fmt.Sprint(kv[i+1]))
	}
	return b
}

func transfer(payer, payee, amount string) Transfer {
	return Transfer{Payer: payer, Payee: payee, Amount: money.MustParse(amount)}
}

func TestSolveScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   money.Balances
		want []Transfer
	}{
		{
			name: "one debtor two creditors",
			in:   balances("A", -30, "B", 10, "C", 20),
			want: []Transfer{transfer("A", "C", "20"), transfer("A", "B", "10")},
		},
		{
			name: "single pair",
			in:   balances("A", -50, "B", 50),
			want: []Transfer{transfer("A", "B", "50")},
		},
		{
			name: "already settled",
			in:   balances("A", 0, "B", 0),
			want: []Transfer{},
		},
		{
			name: "two debtors one creditor, tie broken by id",
			in:   balances("B", -10, "A", -10, "C", 20),
			want: []Transfer{transfer("A", "C", "10"), transfer("B", "C", "10")},
		},
		{
			name: "empty",
			in:   money.Balances{},
			want: []Transfer{},
		},
		{
			name: "dust below tolerance is ignored",
			in:   balances("A", "-10.01", "B", 10),
			want: []Transfer{transfer("A", "B", "10")},
		},
		{
			name: "largest obligations paired first",
			in:   balances("A", -70, "B", -30, "C", 60, "D", 25, "E", 15),
			want: []Transfer{
				transfer("A", "C", "60"),
				transfer("A", "D", "10"),
				transfer("B", "D", "15"),
				transfer("B", "E", "15"),
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.in.Clone()
			got, err := Solve(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.True(t, before.Equal(tc.in), "input must not be mutated")
		})
	}
}

func TestSolveRejectsUnbalanced(t *testing.T) {
	_, err := Solve(balances("A", -10, "B", 5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnbalanced)

	var ue *UnbalancedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "-5.00", ue.Residual.String())
}

func TestAutoBalanceScenario(t *testing.T) {
	got := AutoBalance(balances("A", -10, "B", 5))
	assert.Equal(t, "-7.50", got["A"].String())
	assert.Equal(t, "7.50", got["B"].String())

	v := Validate(got)
	assert.True(t, v.Valid, v.Reason)

	transfers, err := Solve(got)
	require.NoError(t, err)
	assert.Equal(t, []Transfer{transfer("A", "B", "7.5")}, transfers)
}

func TestAutoBalancePolicies(t *testing.T) {
	in := balances("A", -10, "B", 4, "Z", 0)

	nonZero := AutoBalance(in)
	assert.Equal(t, "0.00", nonZero["Z"].String())
	assert.Equal(t, "-7.00", nonZero["A"].String())
	assert.Equal(t, "7.00", nonZero["B"].String())

	all := AutoBalanceWith(in, SpreadAll)
	assert.Equal(t, "-8.00", all["A"].String())
	assert.Equal(t, "6.00", all["B"].String())
	assert.Equal(t, "2.00", all["Z"].String())

	assert.Equal(t, "-10.00", in["A"].String(), "input must not be mutated")
}

func TestAutoBalanceLeftoverCents(t *testing.T) {
	// 0.10 over three people does not divide evenly
	got := AutoBalance(balances("A", "-5", "B", "2.05", "C", "3.05"))
	assert.True(t, got.Sum().IsZero(), "sum %s", got.Sum())
	assert.Equal(t, "-5.04", got["A"].String())
	assert.Equal(t, "2.02", got["B"].String())
	assert.Equal(t, "3.02", got["C"].String())

	neg := AutoBalance(balances("A", "-5.10", "B", "2", "C", "3"))
	assert.True(t, neg.Sum().IsZero(), "sum %s", neg.Sum())
}

func TestAutoBalanceLargeMagnitudes(t *testing.T) {
	got := AutoBalance(money.Balances{
		"A": money.New(decimal.New(1, 20)),
		"B": money.Cents(-1),
	})
	require.True(t, got.Sum().IsZero(), "sum %s", got.Sum())
	assert.True(t, got["A"].Equal(got["B"].Neg()), "A %s B %s", got["A"], got["B"])

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		b := money.Balances{}
		for j := 0; j < 2+r.Intn(5); j++ {
			b[fmt.Sprintf("p%d", j)] = money.New(decimal.New(r.Int63()-r.Int63(), int32(r.Intn(12))-2))
		}
		balanced := AutoBalance(b)
		require.True(t, balanced.Sum().IsZero(), "case %d: sum %s", i, balanced.Sum())

		transfers, err := Solve(balanced)
		require.NoError(t, err, "case %d", i)
		for id, left := range Remaining(balanced, transfers) {
			assert.True(t, left.Negligible(), "case %d: %s left with %s", i, id, left)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		in     money.Balances
		valid  bool
		reason string
	}{
		{name: "balanced", in: balances("A", -5, "B", 5), valid: true},
		{name: "within tolerance", in: balances("A", "-5", "B", "5.01"), valid: true},
		{name: "off by more than a cent", in: balances("A", "-5", "B", "5.02"), reason: "balances sum to 0.02 instead of 0"},
		{name: "one active", in: balances("A", 0, "B", 0), reason: "need at least 2 participants with a non-zero balance, have 0"},
		{name: "empty", in: money.Balances{}, reason: "have 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Validate(tc.in)
			assert.Equal(t, tc.valid, v.Valid)
			if tc.reason != "" {
				assert.Contains(t, v.Reason, tc.reason)
			} else {
				assert.Empty(t, v.Reason)
			}
		})
	}
}

func TestValidateInputsDistinguishesPlaceholders(t *testing.T) {
	in := map[string]money.Input{
		"A": money.ParseInput("-10"),
		"B": money.ParseInput("10"),
		"C": money.ParseInput(""),
		"D": money.ParseInput("-"),
		"E": money.ParseInput("ten"),
		"F": money.ParseInput("0"),
	}
	v := ValidateInputs(in)

	assert.True(t, v.Valid, v.Reason)
	assert.Equal(t, "0.00", v.Sum.String())
	assert.Equal(t, 2, v.Active)
	assert.Equal(t, []string{"C", "D"}, v.Placeholders)
	assert.Equal(t, []string{"E"}, v.Malformed)
	require.Len(t, v.Notes, 3)
	assert.Contains(t, v.Notes[2], `unparsable value "ten"`)
	assert.Equal(t, "-", in["D"].Raw, "inputs are not rewritten")
}

func TestSettle(t *testing.T) {
	unbalanced := balances("A", -10, "B", 5)

	plan, err := Settle(unbalanced, Options{})
	assert.ErrorIs(t, err, ErrUnbalanced)
	require.NotNil(t, plan)
	assert.False(t, plan.Validation.Valid)

	plan, err = Settle(unbalanced, Options{AutoBalance: true})
	require.NoError(t, err)
	assert.True(t, plan.AutoBalanced)
	assert.Equal(t, []Transfer{transfer("A", "B", "7.5")}, plan.Transfers)
	assert.Equal(t, "-10.00", unbalanced["A"].String())

	plan, err = Settle(balances("A", 0), Options{})
	require.NoError(t, err)
	assert.Empty(t, plan.Transfers)
	assert.False(t, plan.AutoBalanced)
}

// randomBalances returns n balances in [-500, 500] that need not sum to zero.
func randomBalances(r *rand.Rand, n int) money.Balances {
	b := money.Balances{}
	for i := 0; i < n; i++ {
		cents := r.Int63n(100001) - 50000
		if r.Intn(5) == 0 {
			cents = 0
		}
		b[fmt.Sprintf("p%02d", i)] = money.Cents(cents)
	}
	return b
}

func TestSettlementProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 300; round++ {
		in := randomBalances(r, 1+r.Intn(25))

		balanced := AutoBalance(in)
		require.True(t, balanced.Sum().Negligible(), "zero-sum after auto-balance: %v", balanced)
		require.True(t, AutoBalance(balanced).Equal(balanced), "auto-balance is idempotent")

		transfers, err := Solve(balanced)
		require.NoError(t, err)

		active := len(balanced.Active())
		if active > 0 {
			assert.LessOrEqual(t, len(transfers), active-1)
		} else {
			assert.Empty(t, transfers)
		}
		for _, tr := range transfers {
			assert.True(t, tr.Amount.IsPositive(), "transfer %+v", tr)
			assert.NotEqual(t, tr.Payer, tr.Payee)
		}
		for id, left := range Remaining(balanced, transfers) {
			assert.True(t, left.Negligible(), "%s left with %s", id, left)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("all")
	require.NoError(t, err)
	assert.Equal(t, SpreadAll, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, SpreadNonZero, p)

	_, err = ParsePolicy("loudest")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
