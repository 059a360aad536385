// Package money holds the fixed-point amount type every balance and transfer goes through.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places an Amount is kept at.
const Places = 2

// Tolerance is the largest magnitude still considered settled.
var Tolerance = Cents(1)

// Zero is the zero amount.
var Zero = Amount{}

// MaxAbs bounds every amount read from text. It matches the NUMERIC(14,2) columns.
var MaxAbs = decimal.New(1, 12)

// maxExponent caps the exponent of "1e5" style input before any rescaling happens.
const maxExponent = 32

var ErrOutOfRange = errors.New("amount out of range")

// Amount is a signed monetary value rounded to the cent after every operation.
type Amount struct {
	d decimal.Decimal
}

// New rounds d to the cent.
func New(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Places)}
}

// Cents builds an amount from an integer number of cents.
func Cents(c int64) Amount {
	return Amount{d: decimal.New(c, -Places)}
}

// FromFloat rounds f to the cent.
func FromFloat(f float64) Amount {
	return New(decimal.NewFromFloat(f))
}

// Parse reads a decimal string such as "12.5" or "-3". Values whose magnitude
// reaches MaxAbs are rejected with ErrOutOfRange.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := checkRange(d); err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return New(d), nil
}

// checkRange must run before New: rounding a value with a huge exponent
// materialises 10^exp.
func checkRange(d decimal.Decimal) error {
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return ErrOutOfRange
	}
	if d.Abs().Cmp(MaxAbs) >= 0 {
		return ErrOutOfRange
	}
	return nil
}

// MustParse is Parse for literals; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return New(a.d.Add(b.d)) }
func (a Amount) Sub(b Amount) Amount { return New(a.d.Sub(b.d)) }
func (a Amount) Neg() Amount         { return Amount{d: a.d.Neg()} }
func (a Amount) Abs() Amount         { return Amount{d: a.d.Abs()} }
func (a Amount) Sign() int           { return a.d.Sign() }
func (a Amount) IsZero() bool        { return a.d.IsZero() }
func (a Amount) IsPositive() bool    { return a.d.IsPositive() }
func (a Amount) IsNegative() bool    { return a.d.IsNegative() }
func (a Amount) Cmp(b Amount) int    { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Negligible reports whether |a| is within Tolerance.
func (a Amount) Negligible() bool {
	return a.d.Abs().LessThanOrEqual(Tolerance.d)
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// String always prints two decimals, e.g. "-7.50".
func (a Amount) String() string { return a.d.StringFixed(Places) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if err := checkRange(d); err != nil {
		return err
	}
	*a = New(d)
	return nil
}

// Value stores the amount as text so NUMERIC columns keep exact digits.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan reads NUMERIC columns returned as text.
func (a *Amount) Scan(src interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	*a = New(d)
	return nil
}
