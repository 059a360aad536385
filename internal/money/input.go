package money

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InputKind tells what a raw text field held.
type InputKind int

const (
	// InputEmpty is an empty field.
	InputEmpty InputKind = iota
	// InputNegativeSign is a lone "-" typed before the digits.
	InputNegativeSign
	// InputValue is a well formed amount.
	InputValue
	// InputMalformed is anything that does not parse.
	InputMalformed
)

func (k InputKind) String() string {
	switch k {
	case InputEmpty:
		return "empty"
	case InputNegativeSign:
		return "negative-sign"
	case InputValue:
		return "value"
	case InputMalformed:
		return "malformed"
	}
	return fmt.Sprintf("InputKind(%d)", int(k))
}

// Input is a numeric field as typed by a user. Only boundary code builds one.
type Input struct {
	Kind  InputKind
	Raw   string
	value Amount
}

// ParseInput classifies raw text. It never fails: unparsable text becomes InputMalformed.
func ParseInput(raw string) Input {
	s := strings.TrimSpace(raw)
	switch s {
	case "":
		return Input{Kind: InputEmpty, Raw: raw}
	case "-":
		return Input{Kind: InputNegativeSign, Raw: raw}
	}
	a, err := Parse(s)
	if err != nil {
		return Input{Kind: InputMalformed, Raw: raw}
	}
	return Input{Kind: InputValue, Raw: raw, value: a}
}

// ValueInput wraps an already known amount.
func ValueInput(a Amount) Input {
	return Input{Kind: InputValue, Raw: a.String(), value: a}
}

// Amount returns the parsed value, or zero for any other kind.
func (in Input) Amount() Amount {
	if in.Kind != InputValue {
		return Zero
	}
	return in.value
}

// Placeholder reports whether the field is an in-progress entry ("" or "-").
func (in Input) Placeholder() bool {
	return in.Kind == InputEmpty || in.Kind == InputNegativeSign
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (in *Input) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*in = Input{Kind: InputEmpty}
	case strings.HasPrefix(s, `"`):
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*in = ParseInput(raw)
	default:
		*in = ParseInput(s)
	}
	return nil
}
