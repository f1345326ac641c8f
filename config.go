package acceptor

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/killrvideo/vector-acceptor/backend"
	"github.com/killrvideo/vector-acceptor/flags"
	"github.com/killrvideo/vector-acceptor/registry"
	"github.com/killrvideo/vector-acceptor/types"
)

// Config holds the application configuration
type Config struct {
	Keyspace        string
	Dimensions      []int
	MatrixFile      string // optional YAML override of the case matrix
	Seed            uint64
	SkipTables      bool
	SkipCollections bool
	Verbose         bool
	Color           bool
	ListOnly        bool // print the case matrix and exit
	TablesDriver    flags.TablesDriver

	APIEndpoint string
	Token       string
	CQLHosts    []string
	CQLUsername string
	CQLPassword string
	PgURL       string

	RequestTimeout time.Duration // per round trip
	Retries        uint64

	LockRedisURL string        // run lock is disabled when empty
	LockTTL      time.Duration
	HealthzAddr  string

	Log log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	matrixFile := ctx.String(flags.Matrix.Name)
	if matrixFile != "" {
		abs, err := filepath.Abs(matrixFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for matrix file '%s': %w", matrixFile, err)
		}
		matrixFile = abs
	}

	cfg := &Config{
		Keyspace:        ctx.String(flags.Keyspace.Name),
		Dimensions:      ctx.IntSlice(flags.Dimensions.Name),
		MatrixFile:      matrixFile,
		Seed:            ctx.Uint64(flags.Seed.Name),
		SkipTables:      ctx.Bool(flags.SkipTables.Name),
		SkipCollections: ctx.Bool(flags.SkipCollections.Name),
		Verbose:         ctx.Bool(flags.Verbose.Name),
		Color:           !ctx.Bool(flags.NoColor.Name),
		ListOnly:        ctx.Bool(flags.List.Name),
		TablesDriver:    flags.TablesDriver(ctx.String(flags.TablesDriverFlag.Name)),
		APIEndpoint:     ctx.String(flags.APIEndpoint.Name),
		Token:           ctx.String(flags.Token.Name),
		CQLHosts:        ctx.StringSlice(flags.CQLHosts.Name),
		CQLUsername:     ctx.String(flags.CQLUsername.Name),
		CQLPassword:     ctx.String(flags.CQLPassword.Name),
		PgURL:           ctx.String(flags.PgURL.Name),
		RequestTimeout:  ctx.Duration(flags.RequestTimeout.Name),
		Retries:         ctx.Uint64(flags.Retries.Name),
		LockRedisURL:    ctx.String(flags.LockRedisURL.Name),
		LockTTL:         ctx.Duration(flags.LockTTL.Name),
		HealthzAddr:     ctx.String(flags.HealthzAddr.Name),
		Log:             log,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Surfaces returns the surfaces left after the skip flags, in reporting order
func (c *Config) Surfaces() []types.ApiSurface {
	var out []types.ApiSurface
	for _, s := range types.AllSurfaces {
		if s == types.SurfaceTables && c.SkipTables {
			continue
		}
		if s == types.SurfaceCollections && c.SkipCollections {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NeedsDataAPI reports whether any enabled surface is served by the Data API
func (c *Config) NeedsDataAPI() bool {
	if !c.SkipCollections {
		return true
	}
	return !c.SkipTables && c.TablesDriver == flags.DriverDataAPI
}

// Validate runs the pre-flight checks. Connection settings are only checked when a backend
// will be contacted, so list mode works without credentials.
func (c *Config) Validate() error {
	if !backend.ValidIdentifier(c.Keyspace) {
		return fmt.Errorf("invalid keyspace name %q", c.Keyspace)
	}
	dimensions := c.Dimensions
	if c.MatrixFile != "" {
		matrix, err := registry.LoadMatrix(c.MatrixFile)
		if err != nil {
			return fmt.Errorf("invalid matrix file: %w", err)
		}
		if len(matrix.Dimensions) > 0 {
			dimensions = matrix.Dimensions
		}
	}
	if err := registry.ValidateDimensions(dimensions); err != nil {
		return err
	}
	if !c.TablesDriver.IsValid() {
		return fmt.Errorf("invalid tables driver: %s", c.TablesDriver)
	}
	if c.ListOnly {
		return nil
	}

	if c.NeedsDataAPI() {
		if c.APIEndpoint == "" {
			return errors.New("api endpoint is required (--api-endpoint or ASTRA_DB_API_ENDPOINT)")
		}
		if c.Token == "" {
			return errors.New("application token is required (--token or ASTRA_DB_APPLICATION_TOKEN)")
		}
	}
	if !c.SkipTables {
		switch c.TablesDriver {
		case flags.DriverCQL:
			if len(c.CQLHosts) == 0 {
				return errors.New("cql-hosts is required with --tables-driver=cql")
			}
		case flags.DriverPgvector:
			if c.PgURL == "" {
				return errors.New("pg-url is required with --tables-driver=pgvector")
			}
		}
	}
	return nil
}
