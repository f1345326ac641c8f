package acceptor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/killrvideo/vector-acceptor/flags"
	"github.com/killrvideo/vector-acceptor/runner"
	"github.com/killrvideo/vector-acceptor/types"
)

// parseConfig runs NewConfig behind a cli.App carrying the real flag set
func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	for _, env := range []string{"ASTRA_DB_API_ENDPOINT", "ASTRA_DB_APPLICATION_TOKEN", "DATABASE_URL"} {
		t.Setenv(env, "")
	}

	var cfg *Config
	var cfgErr error
	app := &cli.App{
		Flags: flags.Flags,
		Action: func(ctx *cli.Context) error {
			cfg, cfgErr = NewConfig(ctx, log.NewLogger(log.DiscardHandler()))
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"vector-acceptor"}, args...)))
	return cfg, cfgErr
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(t, "--api-endpoint", "https://db.example.com", "--token", "AstraCS:x")
	require.NoError(t, err)

	assert.Equal(t, "default_keyspace", cfg.Keyspace)
	assert.Equal(t, []int{384, 768, 1024}, cfg.Dimensions)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, flags.DriverDataAPI, cfg.TablesDriver)
	assert.True(t, cfg.Color)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.LockRedisURL)
	assert.Equal(t, []types.ApiSurface{types.SurfaceTables, types.SurfaceCollections}, cfg.Surfaces())
	assert.True(t, cfg.NeedsDataAPI())
}

func TestNewConfigFlags(t *testing.T) {
	cfg, err := parseConfig(t,
		"--verbose", "--no-color", "--skip-collections",
		"--keyspace", "vectors", "--dimensions", "2,8",
		"--tables-driver", "cql", "--cql-hosts", "10.0.0.1,10.0.0.2",
		"--seed", "7",
	)
	require.NoError(t, err)

	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.Color)
	assert.Equal(t, "vectors", cfg.Keyspace)
	assert.Equal(t, []int{2, 8}, cfg.Dimensions)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.CQLHosts)
	assert.Equal(t, []types.ApiSurface{types.SurfaceTables}, cfg.Surfaces())
	assert.False(t, cfg.NeedsDataAPI(), "cql tables without collections must not need the data api")
}

func TestNewConfigPreflight(t *testing.T) {
	creds := []string{"--api-endpoint", "https://db.example.com", "--token", "t"}

	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing endpoint", []string{"--token", "t"}, "api endpoint is required"},
		{"missing token", []string{"--api-endpoint", "https://db.example.com"}, "application token is required"},
		{"collections need data api with cql tables", []string{"--tables-driver", "cql", "--cql-hosts", "h"}, "api endpoint is required"},
		{"cql without hosts", append([]string{"--tables-driver", "cql"}, creds...), "cql-hosts is required"},
		{"pgvector without url", append([]string{"--tables-driver", "pgvector"}, creds...), "pg-url is required"},
		{"duplicate dimension", append([]string{"--dimensions", "4,4"}, creds...), "duplicate dimension"},
		{"zero dimension", append([]string{"--dimensions", "0"}, creds...), "invalid dimension"},
		{"bad keyspace", append([]string{"--keyspace", "1bad-name"}, creds...), "invalid keyspace name"},
		{"missing matrix", append([]string{"--matrix", "does-not-exist.yaml"}, creds...), "invalid matrix file"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseConfig(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("skipping everything needs no credentials", func(t *testing.T) {
		_, err := parseConfig(t, "--skip-tables", "--skip-collections")
		require.NoError(t, err)
	})
	t.Run("pgvector with url and skipped collections", func(t *testing.T) {
		_, err := parseConfig(t, "--tables-driver", "pgvector", "--pg-url", "postgres://localhost/db", "--skip-collections")
		require.NoError(t, err)
	})
	t.Run("list mode needs no credentials", func(t *testing.T) {
		cfg, err := parseConfig(t, "--list")
		require.NoError(t, err)
		assert.True(t, cfg.ListOnly)
	})
}

func TestNewConfigMatrixFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	good := write("good.yaml", "dimensions: [2, 3]\nexpectations:\n  nan: true\n")
	cfg, err := parseConfig(t, "--list", "--matrix", good)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.MatrixFile))

	// dimensions in the file replace the flag values
	cfg, err = parseConfig(t, "--list", "--matrix", good, "--dimensions", "4,4")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, cfg.Dimensions)

	dup := write("dup.yaml", "dimensions: [3, 3]\n")
	_, err = parseConfig(t, "--list", "--matrix", dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid matrix file")

	unknown := write("unknown.yaml", "colour: blue\n")
	_, err = parseConfig(t, "--list", "--matrix", unknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid matrix file")
}

func TestErrorTypes(t *testing.T) {
	base := fmt.Errorf("connect: %w", os.ErrDeadlineExceeded)

	rt := NewRuntimeError(base)
	assert.True(t, IsRuntimeError(rt))
	assert.True(t, IsRuntimeError(fmt.Errorf("failed to start: %w", rt)))
	assert.False(t, IsTestFailureError(rt))
	assert.ErrorIs(t, rt, os.ErrDeadlineExceeded)
	assert.Equal(t, "runtime error: connect: i/o timeout", rt.Error())
	assert.Equal(t, "runtime error during lock: connect: i/o timeout", stageError(StageLock, base).Error())

	tf := NewTestFailureError(&runner.Summary{RunID: "r1", Failed: 2, UnexpectedPasses: 1})
	assert.True(t, IsTestFailureError(fmt.Errorf("wrapped: %w", tf)))
	assert.False(t, IsRuntimeError(tf))
	assert.Equal(t, "r1", tf.RunID)
	assert.Equal(t, "test failure: 2 failed, 1 unexpected passes", tf.Error())
	tf.Interrupted = true
	assert.Equal(t, "test failure: 2 failed, 1 unexpected passes, run interrupted", tf.Error())

	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsTestFailureError(nil))
}
