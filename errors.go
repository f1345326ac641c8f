package acceptor

import (
	"errors"
	"fmt"

	"github.com/killrvideo/vector-acceptor/runner"
)

// Stages at which a RuntimeError can stop the acceptor
const (
	StageConfig  = "config"
	StageLock    = "lock"
	StageConnect = "connect"
	StageRun     = "run"
)

// RuntimeError is an operational problem that kept the suite from running, eg. a missing
// credential, an unreachable backend or a run lock held elsewhere
type RuntimeError struct {
	Stage string // empty when unknown
	Err   error
}

func (e *RuntimeError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("runtime error: %v", e.Err)
	}
	return fmt.Sprintf("runtime error during %s: %v", e.Stage, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

func stageError(stage string, err error) *RuntimeError {
	return &RuntimeError{Stage: stage, Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a finished run that broke its expectations or was cut short
type TestFailureError struct {
	RunID            string
	Failed           int
	UnexpectedPasses int
	Interrupted      bool
}

func NewTestFailureError(summary *runner.Summary) *TestFailureError {
	return &TestFailureError{
		RunID:            summary.RunID,
		Failed:           summary.Failed,
		UnexpectedPasses: summary.UnexpectedPasses,
		Interrupted:      summary.Interrupted,
	}
}

func (e *TestFailureError) Error() string {
	msg := fmt.Sprintf("test failure: %d failed, %d unexpected passes", e.Failed, e.UnexpectedPasses)
	if e.Interrupted {
		msg += ", run interrupted"
	}
	return msg
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
