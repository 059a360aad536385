package money

import (
	gomoney "github.com/Rhymond/go-money"
)

// DefaultCurrency is used when a currency code is empty or unknown.
const DefaultCurrency = gomoney.USD

// Format renders a using the currency's symbol and grouping, e.g. "$1,234.50".
func Format(a Amount, currency string) string {
	cur := gomoney.GetCurrency(currency)
	if cur == nil {
		cur = gomoney.GetCurrency(DefaultCurrency)
	}
	// minor units of the currency, not always cents (JPY has none)
	minor := a.d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}
