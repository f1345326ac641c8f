// Package cql implements the Tables adapter over the native CQL protocol using vector<float, N> columns.
package cql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/killrvideo/vector-acceptor/backend"
	"github.com/killrvideo/vector-acceptor/fixtures"
	"github.com/killrvideo/vector-acceptor/types"
)

// Config contains configuration for connecting to a Cassandra compatible cluster
type Config struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Timeout     time.Duration
	Consistency gocql.Consistency
	Log         log.Logger
}

// Validate checks the configuration without contacting the cluster
func (c Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New("at least one CQL host is required")
	}
	if !backend.ValidIdentifier(c.Keyspace) {
		return fmt.Errorf("invalid keyspace name %q", c.Keyspace)
	}
	return nil
}

// TablesAdapter executes Tables cases through CQL
type TablesAdapter struct {
	session  *gocql.Session
	keyspace string
	gen      *fixtures.Generator
	log      log.Logger
}

var _ backend.Adapter = (*TablesAdapter)(nil)

// NewTablesAdapter opens a session to the cluster
func NewTablesAdapter(cfg Config, gen *fixtures.Generator) (*TablesAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	if cfg.Consistency == gocql.Any {
		cfg.Consistency = gocql.LocalQuorum
	}
	cluster.Consistency = cfg.Consistency
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %v: %w", cfg.Hosts, err)
	}
	cfg.Log.Info("Connected to CQL cluster", "hosts", cfg.Hosts, "keyspace", cfg.Keyspace)

	return &TablesAdapter{
		session:  session,
		keyspace: cfg.Keyspace,
		gen:      gen,
		log:      cfg.Log,
	}, nil
}

// Execute implements backend.Adapter
func (a *TablesAdapter) Execute(ctx context.Context, tc types.TestCase) types.Outcome {
	switch tc.Operation {
	case types.OpSchemaSetup:
		return types.OutcomeOf(a.setup(ctx, tc.Dimension))
	case types.OpSingleInsert:
		return types.OutcomeOf(a.insert(ctx, tc))
	case types.OpBatchInsert:
		return types.OutcomeOf(a.batch(ctx, tc.Dimension))
	case types.OpSimilaritySearch:
		return types.OutcomeOf(a.search(ctx, tc.Dimension))
	}
	return types.Failure(fmt.Sprintf("unsupported operation %q", tc.Operation))
}

// Close implements backend.Adapter
func (a *TablesAdapter) Close(context.Context) error {
	if !a.session.Closed() {
		a.session.Close()
	}
	return nil
}

func (a *TablesAdapter) exec(ctx context.Context, stmt string, values ...any) error {
	return a.session.Query(stmt, values...).WithContext(ctx).Exec()
}

func (a *TablesAdapter) setup(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	if err := a.exec(ctx, dropTableStmt(a.keyspace, table)); err != nil {
		a.log.Warn("Could not drop table", "table", table, "err", err)
	}
	if err := a.exec(ctx, createTableStmt(a.keyspace, table, dimension)); err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", table, err)
	}
	if err := a.exec(ctx, createIndexStmt(a.keyspace, table)); err != nil {
		return "", fmt.Errorf("failed to create vector index on %s: %w", table, err)
	}
	return fmt.Sprintf("Created table %s with vector<float, %d>", table, dimension), nil
}

func (a *TablesAdapter) insert(ctx context.Context, tc types.TestCase) (string, error) {
	table := backend.TableName(tc.Dimension)
	payload := a.gen.Generate(tc.Dimension, tc.ValueClass, tc.Variant)
	id := gocql.UUID(uuid.New())

	if err := a.exec(ctx, insertStmt(a.keyspace, table, payload), id, tc.Fixture()); err != nil {
		return "", err
	}

	var name string
	if err := a.session.Query(selectNameStmt(a.keyspace, table), id).WithContext(ctx).Scan(&name); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return "", errors.New("row not found after insert")
		}
		return "", fmt.Errorf("inserted row could not be read back: %w", err)
	}
	if name != tc.Fixture() {
		return "", fmt.Errorf("read back name %q, want %q", name, tc.Fixture())
	}
	return backend.DescribeInsert(payload), nil
}

func (a *TablesAdapter) batch(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	vectors := a.gen.Batch(dimension, backend.TableBatchSize)

	batch := a.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for i, v := range vectors {
		stmt := insertStmt(a.keyspace, table, fixtures.Payload{Kind: fixtures.KindVector, Values: v})
		batch.Query(stmt, gocql.UUID(uuid.New()), fmt.Sprintf("batch_test_%d", i))
	}
	if err := a.session.ExecuteBatch(batch); err != nil {
		return "", err
	}
	return fmt.Sprintf("Batch inserted %d rows", len(vectors)), nil
}

func (a *TablesAdapter) search(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	ref := a.gen.Vector(dimension, a.gen.Seed+backend.ReferenceSeedOffset)
	vectors := append([][]float64{ref}, a.gen.Neighbors(ref, backend.TableNeighbors, backend.NeighborNoise)...)
	for i, v := range vectors {
		stmt := insertStmt(a.keyspace, table, fixtures.Payload{Kind: fixtures.KindVector, Values: v})
		if err := a.exec(ctx, stmt, gocql.UUID(uuid.New()), fmt.Sprintf("similar_%d", i)); err != nil {
			return "", fmt.Errorf("failed to insert search fixtures: %w", err)
		}
	}

	iter := a.session.Query(annStmt(a.keyspace, table, ref, backend.SearchLimit)).WithContext(ctx).Iter()
	var (
		id    gocql.UUID
		name  string
		found int
	)
	for iter.Scan(&id, &name) {
		found++
	}
	if err := iter.Close(); err != nil {
		return "", err
	}
	if found == 0 {
		return "", errors.New("no results from similarity search")
	}
	return fmt.Sprintf("Found %d similar vectors", found), nil
}
