// Package exitcodes defines the exit codes used by vector-acceptor.
package exitcodes

import "github.com/killrvideo/vector-acceptor/runner"

// Exit code constants used by vector-acceptor
//
// * Success (0): every case passed or failed as expected
// * TestFailure (1): at least one FAIL or UNEXPECTED_PASS, or the run was interrupted
// * RuntimeErr (1): pre-flight errors such as missing configuration or an unreachable backend
//
// Runtime errors share the test failure code so callers only need to check for non-zero.
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 1
)

// Decide derives the process exit code from a finished run
func Decide(summary *runner.Summary) int {
	if summary == nil {
		return RuntimeErr
	}
	if summary.Interrupted || summary.HasViolations() {
		return TestFailure
	}
	return Success
}
