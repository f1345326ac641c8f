package acceptor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/killrvideo/vector-acceptor/exitcodes"
	"github.com/killrvideo/vector-acceptor/fixtures"
	"github.com/killrvideo/vector-acceptor/lock"
	"github.com/killrvideo/vector-acceptor/metrics"
	"github.com/killrvideo/vector-acceptor/registry"
	"github.com/killrvideo/vector-acceptor/reporting"
	"github.com/killrvideo/vector-acceptor/runner"
	"github.com/killrvideo/vector-acceptor/types"
)

// Phases published on the healthz endpoint
const (
	PhaseConnecting = "connecting"
	PhaseRunning    = "running"
	PhaseFinished   = "finished"
	PhaseFailed     = "failed"
)

// PhaseReporter receives run phase changes, eg. the healthz server
type PhaseReporter interface {
	SetPhase(phase string)
}

// Acceptor implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Acceptor{}

// Acceptor runs the vector compatibility suite once and reports the result
type Acceptor struct {
	config      *Config
	version     string
	registry    *registry.Registry
	newAdapters AdapterFactory
	out         io.Writer
	phases      PhaseReporter
	summary     *runner.Summary

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// Option customises an Acceptor
type Option func(*Acceptor)

// WithAdapterFactory replaces the factory that opens backend sessions
func WithAdapterFactory(f AdapterFactory) Option {
	return func(a *Acceptor) { a.newAdapters = f }
}

// WithOutput redirects the banner and report, stdout by default
func WithOutput(w io.Writer) Option {
	return func(a *Acceptor) { a.out = w }
}

// WithPhaseReporter publishes run phases
func WithPhaseReporter(p PhaseReporter) Option {
	return func(a *Acceptor) { a.phases = p }
}

func New(config *Config, version string, shutdownCallback func(error), opts ...Option) (*Acceptor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
		config.Log.Error("No logger provided, using default")
	}

	config.Log.Debug("Creating acceptor with config",
		"keyspace", config.Keyspace,
		"dimensions", config.Dimensions,
		"matrix", config.MatrixFile,
		"tablesDriver", config.TablesDriver,
		"skipTables", config.SkipTables,
		"skipCollections", config.SkipCollections)

	reg, err := registry.NewRegistry(registry.Config{
		Log:        config.Log,
		Dimensions: config.Dimensions,
		Surfaces:   config.Surfaces(),
		Keyspace:   config.Keyspace,
		MatrixFile: config.MatrixFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	a := &Acceptor{
		config:           config,
		version:          version,
		registry:         reg,
		newAdapters:      NewAdapters,
		out:              os.Stdout,
		shutdownCallback: shutdownCallback,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start runs the suite to completion. Violations come back as a TestFailureError and
// problems before or around the run as a RuntimeError; on success the application is asked to shut down.
// Start implements the cliapp.Lifecycle interface.
func (a *Acceptor) Start(ctx context.Context) error {
	a.running.Store(true)
	a.config.Log.Info("Starting vector-acceptor", "version", a.version, "keyspace", a.config.Keyspace)

	if a.config.ListOnly {
		a.listCases()
		a.shutdown()
		return nil
	}

	summary, err := a.run(ctx)
	if err != nil {
		a.setPhase(PhaseFailed)
		var rt *RuntimeError
		if !errors.As(err, &rt) {
			rt = stageError(StageRun, err)
		}
		metrics.RecordErrorDetails(rt.Stage, rt.Err)
		a.config.Log.Error("Runtime error running tests", "stage", rt.Stage, "error", rt.Err)
		return rt
	}
	a.summary = summary
	a.setPhase(PhaseFinished)

	if code := exitcodes.Decide(summary); code != exitcodes.Success {
		a.config.Log.Warn("Test run completed with violations", "run_id", summary.RunID, "exit_code", code)
		return NewTestFailureError(summary)
	}

	a.config.Log.Info("Tests completed, exiting", "run_id", summary.RunID)
	a.shutdown()
	return nil
}

func (a *Acceptor) run(ctx context.Context) (*runner.Summary, error) {
	if a.config.LockRedisURL != "" {
		l, err := lock.NewFromURL(ctx, a.config.LockRedisURL, lock.Key(a.config.Keyspace), a.config.LockTTL, a.config.Log)
		if err != nil {
			return nil, stageError(StageLock, fmt.Errorf("failed to create run lock: %w", err))
		}
		defer l.Close()
		if err := l.Acquire(ctx); err != nil {
			return nil, stageError(StageLock, err)
		}
		defer func() {
			if err := l.Release(context.Background()); err != nil {
				a.config.Log.Warn("Failed to release run lock", "error", err)
			}
		}()
	}

	opts := reporting.Options{Verbose: a.config.Verbose, Color: a.config.Color}
	cases := a.registry.Cases()
	if len(cases) == 0 {
		a.config.Log.Warn("No cases to run, every surface is skipped")
		summary := runner.NewSummary(uuid.New().String())
		fmt.Fprint(a.out, reporting.FormatSummary(summary, opts))
		return summary, nil
	}

	// a matrix file can drop a surface the flags left enabled
	surfaces := a.registry.Surfaces()
	effective := *a.config
	effective.SkipTables = !slices.Contains(surfaces, types.SurfaceTables)
	effective.SkipCollections = !slices.Contains(surfaces, types.SurfaceCollections)

	a.setPhase(PhaseConnecting)
	adapters, err := a.newAdapters(ctx, &effective, fixtures.NewGenerator(a.config.Seed))
	if err != nil {
		return nil, stageError(StageConnect, fmt.Errorf("failed to create adapters: %w", err))
	}
	defer func() {
		if err := adapters.Close(context.Background()); err != nil {
			a.config.Log.Warn("Failed to close adapters", "error", err)
		}
	}()

	testRunner, err := runner.NewTestRunner(runner.Config{
		Adapters: adapters,
		Sinks:    []runner.ResultSink{reporting.NewTextSink(a.out, opts)},
		Log:      a.config.Log,
		RunID:    uuid.New().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	fmt.Fprint(a.out, reporting.Banner(reporting.BannerInfo{
		Timestamp:       time.Now(),
		Keyspace:        a.config.Keyspace,
		Dimensions:      a.registry.Dimensions(),
		TablesDriver:    tablesDriverLabel(&effective),
		SkipTables:      effective.SkipTables,
		SkipCollections: effective.SkipCollections,
		Verbose:         a.config.Verbose,
	}))

	a.setPhase(PhaseRunning)
	return testRunner.Run(ctx, cases)
}

// listCases prints the expanded matrix without contacting a backend
func (a *Acceptor) listCases() {
	cases := a.registry.Cases()
	for _, tc := range cases {
		expect := "expect failure"
		if tc.ShouldSucceed {
			expect = "expect success"
		}
		fmt.Fprintf(a.out, "%s [%s, %s]\n", tc.Name, tc.Fixture(), expect)
	}
	surfaces := make([]string, 0, 2)
	for _, s := range a.registry.Surfaces() {
		surfaces = append(surfaces, s.String())
	}
	fmt.Fprintf(a.out, "%d cases, surfaces %s, dimensions %v\n", len(cases), strings.Join(surfaces, ","), a.registry.Dimensions())
}

func tablesDriverLabel(cfg *Config) string {
	if cfg.SkipTables {
		return ""
	}
	return cfg.TablesDriver.String()
}

func (a *Acceptor) setPhase(phase string) {
	if a.phases != nil {
		a.phases.SetPhase(phase)
	}
}

func (a *Acceptor) shutdown() {
	if a.shutdownCallback == nil {
		return
	}
	go func() {
		a.shutdownCallback(nil)
	}()
}

// Summary returns the result of the last completed run, nil before Start finishes
func (a *Acceptor) Summary() *runner.Summary {
	return a.summary
}

// Cases returns the cases the acceptor will run
func (a *Acceptor) Cases() []types.TestCase {
	return a.registry.Cases()
}

// Stop implements the cliapp.Lifecycle interface.
func (a *Acceptor) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping vector-acceptor")
	a.running.Store(false)
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (a *Acceptor) Stopped() bool {
	return !a.running.Load()
}
