package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/killrvideo/vector-acceptor/backend"
	"github.com/killrvideo/vector-acceptor/metrics"
	"github.com/killrvideo/vector-acceptor/types"
)

// ErrDuplicateCase is returned when two cases in one run share a name
var ErrDuplicateCase = errors.New("duplicate case name")

// TestRunner executes a list of cases against the configured adapters
type TestRunner interface {
	Run(ctx context.Context, cases []types.TestCase) (*Summary, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Adapters backend.Set
	Sinks    []ResultSink
	Log      log.Logger
	RunID    string // generated when empty
}

type runner struct {
	adapters backend.Set
	sinks    []ResultSink
	log      log.Logger
	runID    string
	tracer   trace.Tracer
	now      func() time.Time
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("at least one adapter is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	cfg.Log.Debug("NewTestRunner()", "runID", runID, "adapters", len(cfg.Adapters), "sinks", len(cfg.Sinks))

	return &runner{
		adapters: cfg.Adapters,
		sinks:    cfg.Sinks,
		log:      cfg.Log,
		runID:    runID,
		tracer:   otel.Tracer("vector runner"),
		now:      time.Now,
	}, nil
}

// Run executes the cases strictly in order, one at a time. Every case is
// executed regardless of the state of the previous ones. If ctx is cancelled
// the run stops before the next case and the partial summary is returned
// with Interrupted set.
func (r *runner) Run(ctx context.Context, cases []types.TestCase) (*Summary, error) {
	if err := checkUniqueNames(cases); err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("run.id", r.runID),
		attribute.Int("run.cases", len(cases)),
	))
	defer span.End()

	summary := NewSummary(r.runID)
	summary.StartTime = r.now()
	r.log.Info("Starting run", "runID", r.runID, "cases", len(cases))

	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			r.log.Warn("Run interrupted", "executed", i, "remaining", len(cases)-i, "err", err)
			break
		}
		result := r.runCase(ctx, tc)
		summary.Add(result)
		metrics.RecordCase(tc.Surface, result.State, result.Duration)
		r.publish(result)
	}

	summary.EndTime = r.now()
	if summary.Interrupted {
		span.SetStatus(codes.Error, "interrupted")
	} else if summary.HasViolations() {
		span.SetStatus(codes.Error, "expectation violations")
	}
	metrics.RecordRun(r.runID, summary.Passed, summary.Failed, summary.ExpectedFailures, summary.UnexpectedPasses, summary.Duration())
	r.log.Info("Run finished", "runID", r.runID, "total", summary.Total, "passed", summary.Passed,
		"failed", summary.Failed, "expectedFailures", summary.ExpectedFailures,
		"unexpectedPasses", summary.UnexpectedPasses, "interrupted", summary.Interrupted)

	for _, sink := range r.sinks {
		if err := sink.Complete(summary); err != nil {
			r.log.Error("Result sink failed to complete", "sink", fmt.Sprintf("%T", sink), "err", err)
		}
	}
	return summary, nil
}

func (r *runner) runCase(ctx context.Context, tc types.TestCase) types.CaseResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("case %s", tc.Name), trace.WithAttributes(
		attribute.String("case.surface", string(tc.Surface)),
		attribute.Int("case.dimension", tc.Dimension),
		attribute.String("case.operation", string(tc.Operation)),
		attribute.String("case.fixture", tc.Fixture()),
		attribute.Bool("case.should_succeed", tc.ShouldSucceed),
	))
	defer span.End()

	start := r.now()
	outcome := r.execute(ctx, tc)
	state := Classify(tc.ShouldSucceed, outcome)

	span.SetAttributes(attribute.String("case.state", string(state)))
	if state.IsViolation() {
		span.SetStatus(codes.Error, outcome.Message())
	}
	r.log.Debug("Case finished", "case", tc.Name, "state", state, "message", outcome.Message())

	return types.CaseResult{
		Case:     tc,
		State:    state,
		Outcome:  outcome,
		Duration: r.now().Sub(start),
	}
}

// execute resolves the adapter for the case and runs it, turning panics into failures
func (r *runner) execute(ctx context.Context, tc types.TestCase) (outcome types.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			errMsg := fmt.Sprintf("panic: %v", rec)
			r.log.Error("Panic in adapter", "error", errMsg, "case", tc.Name)
			outcome = types.Failure(errMsg)
		}
	}()

	adapter, err := r.adapters.For(tc.Surface)
	if err != nil {
		return types.Failure(err.Error())
	}
	return adapter.Execute(ctx, tc)
}

func (r *runner) publish(result types.CaseResult) {
	for _, sink := range r.sinks {
		if err := sink.Consume(result); err != nil {
			r.log.Error("Result sink failed", "sink", fmt.Sprintf("%T", sink), "case", result.Case.Name, "err", err)
		}
	}
}

func checkUniqueNames(cases []types.TestCase) error {
	seen := make(map[string]struct{}, len(cases))
	for _, tc := range cases {
		if _, ok := seen[tc.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateCase, tc.Name)
		}
		seen[tc.Name] = struct{}{}
	}
	return nil
}
