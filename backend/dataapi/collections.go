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

// CollectionsAdapter executes cases against the Collections API, storing vectors in the
// reserved $vector field of a cosine collection per dimension
type CollectionsAdapter struct {
	client *Client
	gen    *fixtures.Generator
	log    log.Logger
}

var _ backend.Adapter = (*CollectionsAdapter)(nil)

// NewCollectionsAdapter creates a Collections adapter on top of client
func NewCollectionsAdapter(client *Client, gen *fixtures.Generator, logger log.Logger) *CollectionsAdapter {
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	return &CollectionsAdapter{client: client, gen: gen, log: logger}
}

// Execute implements backend.Adapter
func (a *CollectionsAdapter) Execute(ctx context.Context, tc types.TestCase) types.Outcome {
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
func (a *CollectionsAdapter) Close(context.Context) error {
	a.client.Close()
	return nil
}

func (a *CollectionsAdapter) setup(ctx context.Context, dimension int) (string, error) {
	name := backend.CollectionName(dimension)
	if _, err := a.client.KeyspaceCommand(ctx, "deleteCollection", Doc{"name": name}); err != nil {
		a.log.Warn("Could not drop collection", "collection", name, "err", err)
	}

	if _, err := a.client.KeyspaceCommand(ctx, "createCollection", Doc{
		"name": name,
		"options": Doc{
			"vector": Doc{"dimension": dimension, "metric": "cosine"},
		},
	}); err != nil {
		return "", fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return fmt.Sprintf("Created collection %s with %d-dimensional vectors", name, dimension), nil
}

// document builds a collection document; a nil vector leaves $vector out entirely
func document(id, name string, vector any, kind string) Doc {
	doc := Doc{
		"_id":      id,
		"name":     name,
		"metadata": Doc{"type": kind},
	}
	if vector != nil {
		doc["$vector"] = vector
	}
	return doc
}

func (a *CollectionsAdapter) insert(ctx context.Context, tc types.TestCase) (string, error) {
	name := backend.CollectionName(tc.Dimension)
	payload := a.gen.Generate(tc.Dimension, tc.ValueClass, tc.Variant)
	id := uuid.New().String()

	res, err := a.client.Command(ctx, name, "insertOne", Doc{
		"document": document(id, tc.Fixture(), vectorValue(payload), "test"),
	})
	if err != nil {
		return "", err
	}
	if res.InsertedIDs() != 1 {
		return "", errors.New("insertOne did not report an inserted id")
	}

	res, err = a.client.Command(ctx, name, "findOne", Doc{"filter": Doc{"_id": id}})
	if err != nil {
		return "", fmt.Errorf("inserted document could not be read back: %w", err)
	}
	if res.Document() == nil {
		return "", errors.New("document not found after insert")
	}
	if payload.Kind == fixtures.KindNull {
		return "Inserted and verified document without $vector", nil
	}
	return backend.DescribeInsert(payload), nil
}

func (a *CollectionsAdapter) batch(ctx context.Context, dimension int) (string, error) {
	name := backend.CollectionName(dimension)
	vectors := a.gen.Batch(dimension, backend.CollectionBatchSize)
	docs := make([]Doc, len(vectors))
	for i, v := range vectors {
		docs[i] = document(uuid.New().String(), fmt.Sprintf("batch_test_%d", i), v, "batch")
	}

	res, err := a.client.Command(ctx, name, "insertMany", Doc{
		"documents": docs,
		"options":   Doc{"ordered": false},
	})
	if err != nil {
		return "", err
	}
	if n := res.InsertedIDs(); n != len(docs) {
		return "", fmt.Errorf("batch reported %d inserted documents, want %d", n, len(docs))
	}
	return fmt.Sprintf("Batch inserted %d documents", len(docs)), nil
}

func (a *CollectionsAdapter) search(ctx context.Context, dimension int) (string, error) {
	name := backend.CollectionName(dimension)
	ref := a.gen.Vector(dimension, a.gen.Seed)
	docs := []Doc{document(uuid.New().String(), "search_reference", ref, "reference")}
	for i, v := range a.gen.Neighbors(ref, backend.CollectionNeighbors, backend.NeighborNoise) {
		docs = append(docs, document(uuid.New().String(), fmt.Sprintf("search_similar_%d", i), v, "similar"))
	}
	if _, err := a.client.Command(ctx, name, "insertMany", Doc{"documents": docs}); err != nil {
		return "", fmt.Errorf("failed to insert search fixtures: %w", err)
	}

	res, err := a.client.Command(ctx, name, "find", Doc{
		"sort":    Doc{"$vector": ref},
		"options": Doc{"limit": backend.SearchLimit},
	})
	if err != nil {
		return "", err
	}
	found := len(res.Documents())
	if found == 0 {
		return "", errors.New("no results from vector search")
	}
	return fmt.Sprintf("Found %d similar documents", found), nil
}
