package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acceptor "github.com/killrvideo/vector-acceptor"
	"github.com/killrvideo/vector-acceptor/exitcodes"
	"github.com/killrvideo/vector-acceptor/runner"
)

// TestExitCode verifies the exit codes: 0 on success, 1 for failing or interrupted runs,
// and 1 for pre-flight errors
func TestExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, exitcodes.Success},
		{"test failure", acceptor.NewTestFailureError(&runner.Summary{UnexpectedPasses: 1}), exitcodes.TestFailure},
		{"wrapped test failure", fmt.Errorf("failed to start: %w", &acceptor.TestFailureError{Interrupted: true}), exitcodes.TestFailure},
		{"runtime error", acceptor.NewRuntimeError(errors.New("missing token")), exitcodes.RuntimeErr},
		{"unclassified error", errors.New("boom"), exitcodes.RuntimeErr},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, exitCode(tc.err))
		})
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()
	require.NotNil(t, app.Action)
	assert.Equal(t, "vector-acceptor", app.Name)

	names := make(map[string]bool)
	for _, f := range app.Flags {
		names[f.Names()[0]] = true
	}
	for _, want := range []string{"api-endpoint", "token", "tables-driver", "dimensions", "list", "log.level", "metrics.enabled"} {
		assert.True(t, names[want], "missing flag %s", want)
	}
}
