package money

import "sort"

// Balances maps a participant id to their net balance: positive is owed to them,
// negative is owed by them.
type Balances map[string]Amount

// Sum returns the total of all balances.
func (b Balances) Sum() Amount {
	var sum Amount
	for _, v := range b {
		sum = sum.Add(v)
	}
	return sum
}

// Clone returns an independent copy.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// IDs returns participant ids in ascending order.
func (b Balances) IDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Active returns, in id order, the participants whose balance is above Tolerance.
func (b Balances) Active() []string {
	var ids []string
	for _, id := range b.IDs() {
		if !b[id].Negligible() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Equal reports whether both maps hold the same amounts. Missing keys count as zero.
func (b Balances) Equal(o Balances) bool {
	for k, v := range b {
		if !v.Equal(o[k]) {
			return false
		}
	}
	for k, v := range o {
		if !v.Equal(b[k]) {
			return false
		}
	}
	return true
}
