package types

import (
	"fmt"
	"time"
)

// ResultState is the classification of one executed case
type ResultState string

const (
	StatePass           ResultState = "PASS"
	StateFail           ResultState = "FAIL"
	StateExpectedFail   ResultState = "EXPECTED_FAIL"
	StateUnexpectedPass ResultState = "UNEXPECTED_PASS"
)

// AllResultStates lists the four states in reporting order
var AllResultStates = []ResultState{StatePass, StateFail, StateExpectedFail, StateUnexpectedPass}

// Label returns the human readable label used in reports
func (s ResultState) Label() string {
	switch s {
	case StatePass:
		return "PASS"
	case StateFail:
		return "FAIL"
	case StateExpectedFail:
		return "EXPECTED FAIL"
	case StateUnexpectedPass:
		return "UNEXPECTED PASS"
	default:
		return "UNKNOWN"
	}
}

// IsViolation reports whether the state breaks the declared expectation
func (s ResultState) IsViolation() bool {
	return s == StateFail || s == StateUnexpectedPass
}

// TestCase is an immutable descriptor of a single case in the matrix.
// Cases are created once by the registry and never mutated.
type TestCase struct {
	Name          string
	Dimension     int
	ValueClass    ValueClass
	Variant       Variant
	Surface       ApiSurface
	Operation     Operation
	ShouldSucceed bool
	Keyspace      string // passed through to setup cases, not interpreted by the runner
}

// String returns the case name
func (tc TestCase) String() string {
	return tc.Name
}

// Fixture returns a short identifier of the value class and variant, eg. "valid/very-large"
func (tc TestCase) Fixture() string {
	if tc.Variant == VariantNone {
		return string(tc.ValueClass)
	}
	return fmt.Sprintf("%s/%s", tc.ValueClass, tc.Variant)
}

// CaseResult captures the outcome of a single case execution
type CaseResult struct {
	Case     TestCase
	State    ResultState
	Outcome  Outcome
	Duration time.Duration
}
