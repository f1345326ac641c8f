// Package pgvector implements the Tables adapter on PostgreSQL with the pgvector extension.
// The keyspace maps onto a PostgreSQL schema.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/killrvideo/vector-acceptor/backend"
	"github.com/killrvideo/vector-acceptor/fixtures"
	"github.com/killrvideo/vector-acceptor/types"
)

// Config contains the connection settings
type Config struct {
	URL    string
	Schema string
	Log    log.Logger
}

// Validate checks the configuration without connecting
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("database url is required")
	}
	if !backend.ValidIdentifier(c.Schema) {
		return fmt.Errorf("invalid schema name %q", c.Schema)
	}
	return nil
}

// TablesAdapter executes Tables cases against a pgvector database
type TablesAdapter struct {
	conn   *pgx.Conn
	schema string
	gen    *fixtures.Generator
	log    log.Logger
}

var _ backend.Adapter = (*TablesAdapter)(nil)

// NewTablesAdapter connects to the database and makes sure the extension and schema exist
func NewTablesAdapter(ctx context.Context, cfg Config, gen *fixtures.Generator) (*TablesAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	conn, err := pgx.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, stmt := range []string{extensionStmt, createSchemaStmt(cfg.Schema)} {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			_ = conn.Close(ctx)
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
	}
	cfg.Log.Info("Connected to pgvector database", "schema", cfg.Schema)

	return &TablesAdapter{conn: conn, schema: cfg.Schema, gen: gen, log: cfg.Log}, nil
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
func (a *TablesAdapter) Close(ctx context.Context) error {
	if a.conn.IsClosed() {
		return nil
	}
	return a.conn.Close(ctx)
}

func (a *TablesAdapter) setup(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	if _, err := a.conn.Exec(ctx, dropTableStmt(a.schema, table)); err != nil {
		a.log.Warn("Could not drop table", "table", table, "err", err)
	}
	if _, err := a.conn.Exec(ctx, createTableStmt(a.schema, table, dimension)); err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", table, err)
	}
	if _, err := a.conn.Exec(ctx, createIndexStmt(a.schema, table)); err != nil {
		return "", fmt.Errorf("failed to create vector index on %s: %w", table, err)
	}
	return fmt.Sprintf("Created table %s with vector(%d)", table, dimension), nil
}

func (a *TablesAdapter) insert(ctx context.Context, tc types.TestCase) (string, error) {
	table := backend.TableName(tc.Dimension)
	payload := a.gen.Generate(tc.Dimension, tc.ValueClass, tc.Variant)
	id := uuid.New()

	if _, err := a.conn.Exec(ctx, insertStmt(a.schema, table, payload.Kind), id, tc.Fixture(), param(payload)); err != nil {
		return "", err
	}

	var name string
	if err := a.conn.QueryRow(ctx, selectNameStmt(a.schema, table), id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	stmt := insertStmt(a.schema, table, fixtures.KindVector)

	b := &pgx.Batch{}
	for i, v := range vectors {
		b.Queue(stmt, uuid.New(), fmt.Sprintf("batch_test_%d", i), fixtures.FormatVector(v))
	}
	br := a.conn.SendBatch(ctx, b)
	for range vectors {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return "", err
		}
	}
	if err := br.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Batch inserted %d rows", len(vectors)), nil
}

func (a *TablesAdapter) search(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	ref := a.gen.Vector(dimension, a.gen.Seed+backend.ReferenceSeedOffset)
	stmt := insertStmt(a.schema, table, fixtures.KindVector)
	vectors := append([][]float64{ref}, a.gen.Neighbors(ref, backend.TableNeighbors, backend.NeighborNoise)...)
	for i, v := range vectors {
		if _, err := a.conn.Exec(ctx, stmt, uuid.New(), fmt.Sprintf("similar_%d", i), fixtures.FormatVector(v)); err != nil {
			return "", fmt.Errorf("failed to insert search fixtures: %w", err)
		}
	}

	rows, err := a.conn.Query(ctx, annStmt(a.schema, table), fixtures.FormatVector(ref), backend.SearchLimit)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	found := 0
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return "", err
		}
		found++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if found == 0 {
		return "", errors.New("no results from similarity search")
	}
	return fmt.Sprintf("Found %d similar vectors", found), nil
}
