package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountRoundsEveryStep(t *testing.T) {
	tests := []struct {
		name string
		got  Amount
		want string
	}{
		{name: "parse rounds half away from zero", got: MustParse("2.675"), want: "2.68"},
		{name: "negative half", got: MustParse("-2.675"), want: "-2.68"},
		{name: "float noise", got: FromFloat(0.1).Add(FromFloat(0.2)), want: "0.30"},
		{name: "cents", got: Cents(-750), want: "-7.50"},
		{name: "sub", got: MustParse("10").Sub(MustParse("2.5")), want: "7.50"},
		{name: "integer", got: MustParse("3"), want: "3.00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got.String())
		})
	}
}

func TestAmountNegligible(t *testing.T) {
	assert.True(t, Zero.Negligible())
	assert.True(t, Cents(1).Negligible())
	assert.True(t, Cents(-1).Negligible())
	assert.False(t, Cents(2).Negligible())
	assert.False(t, Cents(-2).Negligible())
}

func TestParseRejectsOutOfRange(t *testing.T) {
	tests := []string{
		"1e2000000000",
		"1e-2000000000",
		"1e20000000",
		"1000000000000",
		"-1e12",
		"0.000000000000000000000000000000000001",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, ErrOutOfRange)
			assert.Equal(t, InputMalformed, ParseInput(raw).Kind)
		})
	}

	a, err := Parse("-999999999999.99")
	require.NoError(t, err)
	assert.Equal(t, "-999999999999.99", a.String())
}

func TestAmountJSONRejectsOutOfRange(t *testing.T) {
	var a Amount
	assert.ErrorIs(t, json.Unmarshal([]byte(`"1e2000000000"`), &a), ErrOutOfRange)
	assert.ErrorIs(t, json.Unmarshal([]byte(`1e2000000000`), &a), ErrOutOfRange)

	var m map[string]Input
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1e2000000000, "b": "1e-2000000000", "c": 12}`), &m))
	assert.Equal(t, InputMalformed, m["a"].Kind)
	assert.Equal(t, InputMalformed, m["b"].Kind)
	assert.Equal(t, InputValue, m["c"].Kind)
}

func TestAmountJSON(t *testing.T) {
	out, err := json.Marshal(map[string]Amount{"a": MustParse("-7.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": -7.50}`, string(out))

	var in struct {
		Num Amount `json:"num"`
		Str Amount `json:"str"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"num": 1.005, "str": "-3.2"}`), &in))
	assert.Equal(t, "1.01", in.Num.String())
	assert.Equal(t, "-3.20", in.Str.String())
}

func TestAmountScan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("12.345"))
	assert.Equal(t, "12.35", a.String())

	v, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, "12.35", v)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		raw  string
		kind InputKind
		want string
	}{
		{raw: "", kind: InputEmpty, want: "0.00"},
		{raw: "  ", kind: InputEmpty, want: "0.00"},
		{raw: "-", kind: InputNegativeSign, want: "0.00"},
		{raw: "abc", kind: InputMalformed, want: "0.00"},
		{raw: "1.2.3", kind: InputMalformed, want: "0.00"},
		{raw: "-12.5", kind: InputValue, want: "-12.50"},
		{raw: "0", kind: InputValue, want: "0.00"},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			in := ParseInput(tc.raw)
			assert.Equal(t, tc.kind, in.Kind)
			assert.Equal(t, tc.want, in.Amount().String())
		})
	}
}

func TestInputJSON(t *testing.T) {
	var m map[string]Input
	require.NoError(t, json.Unmarshal([]byte(`{"a": -10, "b": "", "c": "-", "d": "x", "e": "5.5", "f": null}`), &m))

	assert.Equal(t, InputValue, m["a"].Kind)
	assert.Equal(t, "-10.00", m["a"].Amount().String())
	assert.True(t, m["b"].Placeholder())
	assert.True(t, m["c"].Placeholder())
	assert.Equal(t, InputMalformed, m["d"].Kind)
	assert.Equal(t, "5.50", m["e"].Amount().String())
	assert.Equal(t, InputEmpty, m["f"].Kind)
}

func TestBalances(t *testing.T) {
	b := Balances{"c": MustParse("20"), "a": MustParse("-30"), "b": MustParse("10"), "z": Cents(1)}

	assert.Equal(t, "0.01", b.Sum().String())
	assert.Equal(t, []string{"a", "b", "c", "z"}, b.IDs())
	assert.Equal(t, []string{"a", "b", "c"}, b.Active())

	c := b.Clone()
	c["a"] = Zero
	assert.Equal(t, "-30.00", b["a"].String())
	assert.False(t, b.Equal(c))
	assert.True(t, Balances{"a": Zero}.Equal(Balances{}))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.50", Format(MustParse("1234.5"), "USD"))
	assert.Equal(t, "$3.00", Format(MustParse("3"), "not-a-currency"))
}
