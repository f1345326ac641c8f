package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "VECTOR_ACCEPTOR"

// TablesDriver selects the backend that serves the Tables surface
type TablesDriver string

const (
	DriverDataAPI  TablesDriver = "dataapi"
	DriverCQL      TablesDriver = "cql"
	DriverPgvector TablesDriver = "pgvector"
)

func (d TablesDriver) String() string {
	return string(d)
}

func (d TablesDriver) IsValid() bool {
	switch d {
	case DriverDataAPI, DriverCQL, DriverPgvector:
		return true
	}
	return false
}

func ValidTablesDrivers() []TablesDriver {
	return []TablesDriver{DriverDataAPI, DriverCQL, DriverPgvector}
}

func validateTablesDriver(value string) error {
	if !TablesDriver(value).IsValid() {
		names := make([]string, 0, 3)
		for _, d := range ValidTablesDrivers() {
			names = append(names, d.String())
		}
		return fmt.Errorf("tables-driver must be one of %s, got %q", strings.Join(names, ", "), value)
	}
	return nil
}

var (
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Print one labeled line per case including the backend detail or error",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VERBOSE"),
	}
	SkipTables = &cli.BoolFlag{
		Name:    "skip-tables",
		Usage:   "Do not run cases against the Tables API",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SKIP_TABLES"),
	}
	SkipCollections = &cli.BoolFlag{
		Name:    "skip-collections",
		Usage:   "Do not run cases against the Collections API",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SKIP_COLLECTIONS"),
	}
	Keyspace = &cli.StringFlag{
		Name:    "keyspace",
		Value:   "default_keyspace",
		Usage:   "Keyspace (or PostgreSQL schema) that holds the test tables and collections",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "KEYSPACE"),
	}
	Dimensions = &cli.IntSliceFlag{
		Name:    "dimensions",
		Value:   cli.NewIntSlice(384, 768, 1024),
		Usage:   "Vector dimensions to test",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DIMENSIONS"),
	}
	Matrix = &cli.StringFlag{
		Name:    "matrix",
		Usage:   "Path to a YAML file overriding dimensions, surfaces and per value class expectations",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MATRIX"),
	}
	Seed = &cli.Uint64Flag{
		Name:    "seed",
		Value:   42,
		Usage:   "Seed for the generated vectors",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SEED"),
	}
	TablesDriverFlag = &cli.StringFlag{
		Name:    "tables-driver",
		Value:   string(DriverDataAPI),
		Usage:   "Backend for the Tables surface: dataapi, cql or pgvector",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TABLES_DRIVER"),
		Action: func(ctx *cli.Context, value string) error {
			return validateTablesDriver(value)
		},
	}
	APIEndpoint = &cli.StringFlag{
		Name:    "api-endpoint",
		Usage:   "Data API endpoint, eg. https://<db>-<region>.apps.astra.datastax.com",
		EnvVars: []string{"ASTRA_DB_API_ENDPOINT"},
	}
	Token = &cli.StringFlag{
		Name:    "token",
		Usage:   "Data API application token",
		EnvVars: []string{"ASTRA_DB_APPLICATION_TOKEN"},
	}
	CQLHosts = &cli.StringSliceFlag{
		Name:    "cql-hosts",
		Usage:   "CQL contact points, used with --tables-driver=cql",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CQL_HOSTS"),
	}
	CQLUsername = &cli.StringFlag{
		Name:    "cql-username",
		Usage:   "CQL username",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CQL_USERNAME"),
	}
	CQLPassword = &cli.StringFlag{
		Name:    "cql-password",
		Usage:   "CQL password",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CQL_PASSWORD"),
	}
	PgURL = &cli.StringFlag{
		Name:    "pg-url",
		Usage:   "PostgreSQL connection string, used with --tables-driver=pgvector",
		EnvVars: []string{"DATABASE_URL"},
	}
	RequestTimeout = &cli.DurationFlag{
		Name:    "request-timeout",
		Value:   30 * time.Second,
		Usage:   "Timeout for a single backend round trip",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REQUEST_TIMEOUT"),
	}
	Retries = &cli.Uint64Flag{
		Name:    "retries",
		Value:   3,
		Usage:   "Retries for throttled or failed Data API requests",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RETRIES"),
	}
	NoColor = &cli.BoolFlag{
		Name:    "no-color",
		Usage:   "Strip ANSI colors from the summary table",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_COLOR"),
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Usage:   "Print the expanded case matrix and exit without contacting a backend",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST"),
	}
	LockRedisURL = &cli.StringFlag{
		Name:    "lock-redis-url",
		Usage:   "Redis URL used to keep concurrent runs off the same keyspace, disabled when empty",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOCK_REDIS_URL"),
	}
	LockTTL = &cli.DurationFlag{
		Name:    "lock-ttl",
		Value:   30 * time.Minute,
		Usage:   "Expiry of the run lock",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOCK_TTL"),
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "0.0.0.0:8080",
		Usage:   "Listen address of the healthz server, started together with metrics",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Verbose,
	SkipTables,
	SkipCollections,
	Keyspace,
	Dimensions,
	Matrix,
	Seed,
	TablesDriverFlag,
	APIEndpoint,
	Token,
	CQLHosts,
	CQLUsername,
	CQLPassword,
	PgURL,
	RequestTimeout,
	Retries,
	NoColor,
	List,
	LockRedisURL,
	LockTTL,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
