package dataapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/killrvideo/vector-acceptor/backend"
	"github.com/killrvideo/vector-acceptor/fixtures"
	"github.com/killrvideo/vector-acceptor/types"
)

// TablesAdapter executes cases against the Tables API. Each dimension gets its own
// table with an id, a name and a vector<float, N> column.
type TablesAdapter struct {
	client *Client
	gen    *fixtures.Generator
	log    log.Logger
}

var _ backend.Adapter = (*TablesAdapter)(nil)

// NewTablesAdapter creates a Tables adapter on top of client
func NewTablesAdapter(client *Client, gen *fixtures.Generator, logger log.Logger) *TablesAdapter {
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	return &TablesAdapter{client: client, gen: gen, log: logger}
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
	a.client.Close()
	return nil
}

func (a *TablesAdapter) setup(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	if _, err := a.client.KeyspaceCommand(ctx, "dropTable", Doc{
		"name":    table,
		"options": Doc{"ifExists": true},
	}); err != nil {
		// a failed drop surfaces again in createTable
		a.log.Warn("Could not drop table", "table", table, "err", err)
	}

	if _, err := a.client.KeyspaceCommand(ctx, "createTable", Doc{
		"name": table,
		"definition": Doc{
			"columns": Doc{
				"id":        Doc{"type": "uuid"},
				"name":      Doc{"type": "text"},
				"embedding": Doc{"type": "vector", "dimension": dimension},
			},
			"primaryKey": "id",
		},
	}); err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", table, err)
	}

	if _, err := a.client.Command(ctx, table, "createVectorIndex", Doc{
		"name": table + "_embedding_idx",
		"definition": Doc{
			"column":  "embedding",
			"options": Doc{"metric": "cosine"},
		},
	}); err != nil {
		return "", fmt.Errorf("failed to create vector index on %s: %w", table, err)
	}
	return fmt.Sprintf("Created table %s with vector<float, %d>", table, dimension), nil
}

func (a *TablesAdapter) insert(ctx context.Context, tc types.TestCase) (string, error) {
	table := backend.TableName(tc.Dimension)
	payload := a.gen.Generate(tc.Dimension, tc.ValueClass, tc.Variant)
	id := uuid.New().String()

	if _, err := a.client.Command(ctx, table, "insertOne", Doc{
		"document": Doc{
			"id":        id,
			"name":      tc.Fixture(),
			"embedding": vectorValue(payload),
		},
	}); err != nil {
		return "", err
	}

	res, err := a.client.Command(ctx, table, "findOne", Doc{
		"filter": Doc{"id": id},
	})
	if err != nil {
		return "", fmt.Errorf("inserted row could not be read back: %w", err)
	}
	row := res.Document()
	if row == nil {
		return "", errors.New("row not found after insert")
	}
	if name, _ := row["name"].(string); name != tc.Fixture() {
		return "", fmt.Errorf("read back name %q, want %q", name, tc.Fixture())
	}
	return backend.DescribeInsert(payload), nil
}

func (a *TablesAdapter) batch(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	vectors := a.gen.Batch(dimension, backend.TableBatchSize)
	rows := make([]Doc, len(vectors))
	for i, v := range vectors {
		rows[i] = Doc{
			"id":        uuid.New().String(),
			"name":      fmt.Sprintf("batch_test_%d", i),
			"embedding": v,
		}
	}

	res, err := a.client.Command(ctx, table, "insertMany", Doc{
		"documents": rows,
		"options":   Doc{"ordered": false},
	})
	if err != nil {
		return "", err
	}
	if n := res.InsertedIDs(); n != len(rows) {
		return "", fmt.Errorf("batch reported %d inserted rows, want %d", n, len(rows))
	}
	return fmt.Sprintf("Batch inserted %d rows", len(rows)), nil
}

func (a *TablesAdapter) search(ctx context.Context, dimension int) (string, error) {
	table := backend.TableName(dimension)
	ref := a.gen.Vector(dimension, a.gen.Seed+backend.ReferenceSeedOffset)
	rows := []Doc{{
		"id":        uuid.New().String(),
		"name":      "similarity_reference",
		"embedding": ref,
	}}
	for i, v := range a.gen.Neighbors(ref, backend.TableNeighbors, backend.NeighborNoise) {
		rows = append(rows, Doc{
			"id":        uuid.New().String(),
			"name":      fmt.Sprintf("similar_%d", i),
			"embedding": v,
		})
	}
	if _, err := a.client.Command(ctx, table, "insertMany", Doc{"documents": rows}); err != nil {
		return "", fmt.Errorf("failed to insert search fixtures: %w", err)
	}

	res, err := a.client.Command(ctx, table, "find", Doc{
		"sort":    Doc{"embedding": ref},
		"options": Doc{"limit": backend.SearchLimit},
	})
	if err != nil {
		return "", err
	}
	found := len(res.Documents())
	if found == 0 {
		return "", errors.New("no results from similarity search")
	}
	return fmt.Sprintf("Found %d similar vectors", found), nil
}
