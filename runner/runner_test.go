package runner

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killrvideo/vector-acceptor/backend"
	"github.com/killrvideo/vector-acceptor/types"
)

// recordingSink captures everything the runner publishes
type recordingSink struct {
	consumed  []types.CaseResult
	completed []*Summary
	err       error
}

func (s *recordingSink) Consume(result types.CaseResult) error {
	s.consumed = append(s.consumed, result)
	return s.err
}

func (s *recordingSink) Complete(summary *Summary) error {
	s.completed = append(s.completed, summary)
	return s.err
}

func tablesCase(name string, dim int, class types.ValueClass, shouldSucceed bool) types.TestCase {
	return types.TestCase{
		Name:          name,
		Dimension:     dim,
		ValueClass:    class,
		Surface:       types.SurfaceTables,
		Operation:     types.OpSingleInsert,
		ShouldSucceed: shouldSucceed,
	}
}

// scripted returns a backend adapter answering from a name -> outcome table
func scripted(outcomes map[string]types.Outcome) backend.Func {
	return func(_ context.Context, tc types.TestCase) types.Outcome {
		if o, ok := outcomes[tc.Name]; ok {
			return o
		}
		return types.Failure("unscripted case " + tc.Name)
	}
}

func newTestRunner(t *testing.T, adapters backend.Set, sinks ...ResultSink) TestRunner {
	t.Helper()
	r, err := NewTestRunner(Config{
		Adapters: adapters,
		Sinks:    sinks,
		Log:      log.NewLogger(log.DiscardHandler()),
		RunID:    "test-run",
	})
	require.NoError(t, err)
	return r
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		shouldSucceed bool
		outcome       types.Outcome
		want          types.ResultState
	}{
		{"expected success observed success", true, types.Success("ok"), types.StatePass},
		{"expected success observed failure", true, types.Failure("boom"), types.StateFail},
		{"expected failure observed failure", false, types.Failure("rejected"), types.StateExpectedFail},
		{"expected failure observed success", false, types.Success("accepted"), types.StateUnexpectedPass},
		{"zero outcome is a failure", true, types.Outcome{}, types.StateFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.shouldSucceed, tt.outcome))
		})
	}
}

func TestSummaryAdd(t *testing.T) {
	s := NewSummary("run")
	assert.True(t, s.Consistent())

	for _, state := range []types.ResultState{
		types.StatePass, types.StateFail, types.StateExpectedFail,
		types.StateUnexpectedPass, types.StatePass, types.ResultState("weird"),
	} {
		s.Add(types.CaseResult{State: state})
		require.True(t, s.Consistent(), "counters diverged after adding %s", state)
	}

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.ExpectedFailures)
	assert.Equal(t, 1, s.UnexpectedPasses)
	assert.Equal(t, types.StateFail, s.Results[5].State)
	assert.Len(t, s.ResultsIn(types.StateFail), 2)
	assert.Equal(t, 1, s.Count(types.StateUnexpectedPass))
	assert.True(t, s.HasViolations())
}

func TestNewTestRunner(t *testing.T) {
	_, err := NewTestRunner(Config{})
	require.Error(t, err)

	r, err := NewTestRunner(Config{Adapters: backend.Set{types.SurfaceTables: scripted(nil)}})
	require.NoError(t, err)
	assert.NotEmpty(t, r.(*runner).runID)
}

func TestRunScenarios(t *testing.T) {
	caseA := tablesCase("A", 8, types.ValueValid, true)
	caseB := tablesCase("B", 384, types.ValueWrongDimension, false)
	caseC := tablesCase("C", 384, types.ValueNaN, false)
	caseD := tablesCase("D", 768, types.ValueEmpty, false)

	adapter := scripted(map[string]types.Outcome{
		"A": types.Success("inserted 8-dim vector"),
		"B": types.Failure("dimension mismatch"),
		"C": types.Success("inserted"),
		"D": types.Failure("empty vector"),
	})

	tests := []struct {
		name       string
		cases      []types.TestCase
		wantStates []types.ResultState
		violations bool
	}{
		{
			name:       "valid vector passes",
			cases:      []types.TestCase{caseA},
			wantStates: []types.ResultState{types.StatePass},
		},
		{
			name:       "wrong dimension rejected",
			cases:      []types.TestCase{caseB},
			wantStates: []types.ResultState{types.StateExpectedFail},
		},
		{
			name:       "accepted NaN is an unexpected pass",
			cases:      []types.TestCase{caseC},
			wantStates: []types.ResultState{types.StateUnexpectedPass},
			violations: true,
		},
		{
			name:       "valid and empty together",
			cases:      []types.TestCase{caseA, caseD},
			wantStates: []types.ResultState{types.StatePass, types.StateExpectedFail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(t, backend.Set{types.SurfaceTables: adapter})
			summary, err := r.Run(context.Background(), tt.cases)
			require.NoError(t, err)

			require.Len(t, summary.Results, len(tt.wantStates))
			for i, want := range tt.wantStates {
				assert.Equal(t, want, summary.Results[i].State, summary.Results[i].Case.Name)
			}
			assert.True(t, summary.Consistent())
			assert.Equal(t, tt.violations, summary.HasViolations())
			assert.False(t, summary.Interrupted)
		})
	}

	t.Run("valid and empty counters", func(t *testing.T) {
		r := newTestRunner(t, backend.Set{types.SurfaceTables: adapter})
		summary, err := r.Run(context.Background(), []types.TestCase{caseA, caseD})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 1, summary.Passed)
		assert.Equal(t, 1, summary.ExpectedFailures)
		assert.Equal(t, 0, summary.Failed)
		assert.Equal(t, 0, summary.UnexpectedPasses)
	})
}

func TestRunEmptySuite(t *testing.T) {
	sink := &recordingSink{}
	r := newTestRunner(t, backend.Set{types.SurfaceTables: scripted(nil)}, sink)

	summary, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.True(t, summary.Consistent())
	assert.False(t, summary.HasViolations())
	assert.Empty(t, sink.consumed)
	require.Len(t, sink.completed, 1)
}

func TestRunIsIdempotent(t *testing.T) {
	adapter := scripted(map[string]types.Outcome{
		"A": types.Success("ok"),
		"B": types.Failure("dimension mismatch"),
		"C": types.Success("ok"),
	})
	cases := []types.TestCase{
		tablesCase("A", 8, types.ValueValid, true),
		tablesCase("B", 8, types.ValueWrongDimension, false),
		tablesCase("C", 8, types.ValueNaN, false),
	}

	r := newTestRunner(t, backend.Set{types.SurfaceTables: adapter})
	first, err := r.Run(context.Background(), cases)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), cases)
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].State, second.Results[i].State)
		assert.Equal(t, first.Results[i].Outcome, second.Results[i].Outcome)
	}
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, first.Failed, second.Failed)
	assert.Equal(t, first.ExpectedFailures, second.ExpectedFailures)
	assert.Equal(t, first.UnexpectedPasses, second.UnexpectedPasses)
	assert.True(t, first.Consistent())
	assert.True(t, second.Consistent())
}

func TestRunAppendingOneCase(t *testing.T) {
	base := []types.TestCase{
		tablesCase("A", 8, types.ValueValid, true),
		tablesCase("B", 8, types.ValueWrongDimension, false),
		tablesCase("C", 8, types.ValueValid, true),
	}
	outcomes := map[string]types.Outcome{
		"A": types.Success("ok"),
		"B": types.Failure("dimension mismatch"),
		"C": types.Failure("timeout"),
	}

	tests := []struct {
		name          string
		shouldSucceed bool
		outcome       types.Outcome
		state         types.ResultState
	}{
		{"pass", true, types.Success("ok"), types.StatePass},
		{"fail", true, types.Failure("timeout"), types.StateFail},
		{"expected failure", false, types.Failure("rejected"), types.StateExpectedFail},
		{"unexpected pass", false, types.Success("accepted"), types.StateUnexpectedPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := map[string]types.Outcome{"D": tt.outcome}
			for k, v := range outcomes {
				script[k] = v
			}
			r := newTestRunner(t, backend.Set{types.SurfaceTables: scripted(script)})

			before, err := r.Run(context.Background(), base)
			require.NoError(t, err)
			extended := append(slices.Clone(base), tablesCase("D", 8, types.ValueValid, tt.shouldSucceed))
			after, err := r.Run(context.Background(), extended)
			require.NoError(t, err)

			assert.True(t, before.Consistent())
			assert.True(t, after.Consistent())
			assert.Equal(t, before.Total+1, after.Total)
			for _, state := range types.AllResultStates {
				want := before.Count(state)
				if state == tt.state {
					want++
				}
				assert.Equal(t, want, after.Count(state), "%s counter", state)
			}
			assert.Equal(t, tt.state, after.Results[len(after.Results)-1].State)
		})
	}
}

func TestRunMonotonicInFailures(t *testing.T) {
	cases := []types.TestCase{
		tablesCase("A", 8, types.ValueValid, true),
		tablesCase("B", 8, types.ValueValid, true),
		tablesCase("C", 8, types.ValueNaN, false),
	}
	healthy := scripted(map[string]types.Outcome{
		"A": types.Success("ok"),
		"B": types.Success("ok"),
		"C": types.Failure("rejected"),
	})
	degraded := scripted(map[string]types.Outcome{
		"A": types.Success("ok"),
		"B": types.Failure("timeout"),
		"C": types.Failure("rejected"),
	})

	good, err := newTestRunner(t, backend.Set{types.SurfaceTables: healthy}).Run(context.Background(), cases)
	require.NoError(t, err)
	bad, err := newTestRunner(t, backend.Set{types.SurfaceTables: degraded}).Run(context.Background(), cases)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, bad.Failed, good.Failed)
	assert.Equal(t, good.Failed+1, bad.Failed)
	assert.False(t, good.HasViolations())
	assert.True(t, bad.HasViolations())
}

func TestRunRecoversAdapterPanic(t *testing.T) {
	adapter := backend.Func(func(_ context.Context, tc types.TestCase) types.Outcome {
		if tc.Name == "boom" {
			panic("driver exploded")
		}
		return types.Success("ok")
	})
	cases := []types.TestCase{
		tablesCase("boom", 8, types.ValueValid, true),
		tablesCase("after", 8, types.ValueValid, true),
	}

	summary, err := newTestRunner(t, backend.Set{types.SurfaceTables: adapter}).Run(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, types.StateFail, summary.Results[0].State)
	assert.Equal(t, "panic: driver exploded", summary.Results[0].Outcome.Error)
	assert.Equal(t, types.StatePass, summary.Results[1].State)
}

func TestRunMissingAdapter(t *testing.T) {
	tc := tablesCase("collections case", 8, types.ValueNaN, false)
	tc.Surface = types.SurfaceCollections

	summary, err := newTestRunner(t, backend.Set{types.SurfaceTables: scripted(nil)}).Run(context.Background(), []types.TestCase{tc})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	// a missing adapter is an observed failure like any other
	assert.Equal(t, types.StateExpectedFail, summary.Results[0].State)
	assert.Contains(t, summary.Results[0].Outcome.Error, "no adapter configured")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executed := 0
	adapter := backend.Func(func(_ context.Context, tc types.TestCase) types.Outcome {
		executed++
		if executed == 2 {
			cancel()
		}
		return types.Success("ok")
	})
	cases := []types.TestCase{
		tablesCase("one", 8, types.ValueValid, true),
		tablesCase("two", 8, types.ValueValid, true),
		tablesCase("three", 8, types.ValueValid, true),
		tablesCase("four", 8, types.ValueValid, true),
	}

	sink := &recordingSink{}
	summary, err := newTestRunner(t, backend.Set{types.SurfaceTables: adapter}, sink).Run(ctx, cases)
	require.NoError(t, err)
	assert.Equal(t, 2, executed)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 2, summary.Total)
	assert.True(t, summary.Consistent())
	assert.Len(t, sink.consumed, 2)
	require.Len(t, sink.completed, 1)
	assert.Same(t, summary, sink.completed[0])
}

func TestRunStreamsToSinksAndIgnoresSinkErrors(t *testing.T) {
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("disk full")}
	adapter := scripted(map[string]types.Outcome{"A": types.Success("ok"), "B": types.Failure("nope")})
	cases := []types.TestCase{
		tablesCase("A", 8, types.ValueValid, true),
		tablesCase("B", 8, types.ValueEmpty, false),
	}

	summary, err := newTestRunner(t, backend.Set{types.SurfaceTables: adapter}, ok, broken).Run(context.Background(), cases)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	for _, sink := range []*recordingSink{ok, broken} {
		require.Len(t, sink.consumed, 2)
		assert.Equal(t, "A", sink.consumed[0].Case.Name)
		assert.Equal(t, "B", sink.consumed[1].Case.Name)
		assert.Len(t, sink.completed, 1)
	}
}

func TestRunRejectsDuplicateNames(t *testing.T) {
	cases := []types.TestCase{
		tablesCase("same", 8, types.ValueValid, true),
		tablesCase("same", 16, types.ValueValid, true),
	}
	_, err := newTestRunner(t, backend.Set{types.SurfaceTables: scripted(nil)}).Run(context.Background(), cases)
	require.ErrorIs(t, err, ErrDuplicateCase)
}
