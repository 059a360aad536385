// Package settle turns net balances into the payments that clear them.
//
// The flow is Validate, then AutoBalance when the balances do not add up, then Solve.
// Settle runs all three. Nothing in here does I/O or keeps state between calls, so
// concurrent callers only need their own balance maps.
package settle

import (
	"fmt"
	"strings"

	"github.com/susu3304/potbot/internal/money"
)

// MinParticipants is how many non-zero balances a settlement needs to mean anything.
const MinParticipants = 2

// Validation is the outcome of checking a balance map before solving it.
type Validation struct {
	Valid  bool         `json:"is_valid"`
	Reason string       `json:"reason"`
	Sum    money.Amount `json:"sum"`
	Active int          `json:"active"`
	// Placeholders lists ids whose field held "" or "-" and was summed as 0.
	Placeholders []string `json:"placeholders,omitempty"`
	// Malformed lists ids whose field did not parse and was summed as 0.
	Malformed []string `json:"malformed,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// Validate checks that b sums to zero within tolerance and has enough active participants.
func Validate(b money.Balances) Validation {
	inputs := make(map[string]money.Input, len(b))
	for id, v := range b {
		inputs[id] = money.ValueInput(v)
	}
	return ValidateInputs(inputs)
}

// ValidateInputs is Validate for raw field values. Placeholders and unparsable values
// count as zero; they are listed separately so a caller can tell them from a typed 0.
// It does not rewrite the inputs.
func ValidateInputs(in map[string]money.Input) Validation {
	var v Validation
	b := make(money.Balances, len(in))
	for id, input := range in {
		b[id] = input.Amount()
	}

	for _, id := range b.IDs() {
		input := in[id]
		switch {
		case input.Placeholder():
			v.Placeholders = append(v.Placeholders, id)
			v.Notes = append(v.Notes, fmt.Sprintf("%s: incomplete entry %q counted as 0", id, input.Raw))
		case input.Kind == money.InputMalformed:
			v.Malformed = append(v.Malformed, id)
			v.Notes = append(v.Notes, fmt.Sprintf("%s: unparsable value %q counted as 0", id, input.Raw))
		}
	}

	v.Sum = b.Sum()
	v.Active = len(b.Active())

	var problems []string
	if !v.Sum.Negligible() {
		problems = append(problems, fmt.Sprintf("balances sum to %s instead of 0", v.Sum))
	}
	if v.Active < MinParticipants {
		problems = append(problems, fmt.Sprintf("need at least %d participants with a non-zero balance, have %d", MinParticipants, v.Active))
	}
	v.Valid = len(problems) == 0
	v.Reason = strings.Join(problems, "; ")
	return v
}
