package domain

import (
	"fmt"
	"strings"
)

// Outcome is the two-valued result of evaluating a node.
type Outcome uint8

const (
	// Pass means the node succeeded.
	Pass Outcome = iota + 1
	// Fail means the node failed, was interrupted, or its external work errored.
	Fail
)

// OutcomeFromBool maps true to Pass and false to Fail.
func OutcomeFromBool(ok bool) Outcome {
	if ok {
		return Pass
	}
	return Fail
}

// Valid reports whether o is Pass or Fail.
func (o Outcome) Valid() bool {
	return o == Pass || o == Fail
}

// Passed reports whether o is Pass.
func (o Outcome) Passed() bool {
	return o == Pass
}

// Invert swaps Pass and Fail.
func (o Outcome) Invert() Outcome {
	if o == Pass {
		return Fail
	}
	return Pass
}

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// ParseOutcome parses "pass"/"fail" (case-insensitive, also "success"/"failure").
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "success", "ok", "true":
		return Pass, nil
	case "fail", "failure", "false":
		return Fail, nil
	}
	return 0, fmt.Errorf("invalid outcome %q (expected pass or fail)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", o)
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
