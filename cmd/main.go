package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	acceptor "github.com/killrvideo/vector-acceptor"
	"github.com/killrvideo/vector-acceptor/exitcodes"
	"github.com/killrvideo/vector-acceptor/flags"
	"github.com/killrvideo/vector-acceptor/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "vector-acceptor"
	app.Usage = "Vector compatibility tester for the Tables and Collections APIs"
	app.Description = "vector-acceptor checks which vector payloads a database accepts and whether that matches expectations"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps a lifecycle error onto the process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case acceptor.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case acceptor.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.RuntimeErr
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := acceptor.NewConfig(ctx, log)
	if err != nil {
		return nil, &acceptor.RuntimeError{Stage: acceptor.StageConfig, Err: err}
	}
	cfg.Log.Debug("Config", "keyspace", cfg.Keyspace, "dimensions", cfg.Dimensions,
		"tablesDriver", cfg.TablesDriver, "endpoint", cfg.APIEndpoint, "matrix", cfg.MatrixFile)

	var opts []acceptor.Option
	var svc *service.Service
	if metricsCfg := opmetrics.ReadCLIConfig(ctx); metricsCfg.Enabled && !cfg.ListOnly {
		svc = service.New(service.Config{
			HealthzAddr: cfg.HealthzAddr,
			MetricsAddr: net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort)),
		})
		svc.Start(ctx.Context)
		opts = append(opts, acceptor.WithPhaseReporter(svc.Healthz))
	}

	a, err := acceptor.New(cfg, Version, closeApp, opts...)
	if err != nil {
		if svc != nil {
			svc.Shutdown(context.Background())
		}
		return nil, &acceptor.RuntimeError{Stage: acceptor.StageConfig, Err: fmt.Errorf("failed to create acceptor: %w", err)}
	}
	return &lifecycle{Acceptor: a, svc: svc}, nil
}

// lifecycle stops the healthz and metrics servers together with the acceptor
type lifecycle struct {
	*acceptor.Acceptor
	svc *service.Service
}

func (l *lifecycle) Stop(ctx context.Context) error {
	if l.svc != nil {
		l.svc.Shutdown(ctx)
	}
	return l.Acceptor.Stop(ctx)
}
