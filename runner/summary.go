package runner

import (
	"time"

	"github.com/killrvideo/vector-acceptor/types"
)

// Summary accumulates the results of a run.
// Total always equals Passed + Failed + ExpectedFailures + UnexpectedPasses.
type Summary struct {
	RunID            string
	Total            int
	Passed           int
	Failed           int
	ExpectedFailures int
	UnexpectedPasses int
	Results          []types.CaseResult
	Interrupted      bool
	StartTime        time.Time
	EndTime          time.Time
}

// NewSummary returns an empty summary for the given run
func NewSummary(runID string) *Summary {
	return &Summary{RunID: runID}
}

// Add records a classified result and bumps the matching counter
func (s *Summary) Add(result types.CaseResult) {
	switch result.State {
	case types.StatePass:
		s.Passed++
	case types.StateFail:
		s.Failed++
	case types.StateExpectedFail:
		s.ExpectedFailures++
	case types.StateUnexpectedPass:
		s.UnexpectedPasses++
	default:
		// Unknown states are treated as failures so the counters stay consistent
		result.State = types.StateFail
		s.Failed++
	}
	s.Total++
	s.Results = append(s.Results, result)
}

// Consistent reports whether the counters add up to the total and to the recorded results
func (s *Summary) Consistent() bool {
	return s.Total == s.Passed+s.Failed+s.ExpectedFailures+s.UnexpectedPasses &&
		s.Total == len(s.Results)
}

// HasViolations reports whether any case failed or passed unexpectedly
func (s *Summary) HasViolations() bool {
	return s.Failed > 0 || s.UnexpectedPasses > 0
}

// Duration is the wall time of the run, zero until it has finished
func (s *Summary) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Count returns the number of results in the given state
func (s *Summary) Count(state types.ResultState) int {
	switch state {
	case types.StatePass:
		return s.Passed
	case types.StateFail:
		return s.Failed
	case types.StateExpectedFail:
		return s.ExpectedFailures
	case types.StateUnexpectedPass:
		return s.UnexpectedPasses
	}
	return 0
}

// ResultsIn returns the results in the given state, in execution order
func (s *Summary) ResultsIn(state types.ResultState) []types.CaseResult {
	var out []types.CaseResult
	for _, r := range s.Results {
		if r.State == state {
			out = append(out, r)
		}
	}
	return out
}
