package acceptor

import (
	"context"
	"fmt"

	"github.com/killrvideo/vector-acceptor/backend"
	"github.com/killrvideo/vector-acceptor/backend/cql"
	"github.com/killrvideo/vector-acceptor/backend/dataapi"
	"github.com/killrvideo/vector-acceptor/backend/pgvector"
	"github.com/killrvideo/vector-acceptor/fixtures"
	"github.com/killrvideo/vector-acceptor/flags"
	"github.com/killrvideo/vector-acceptor/types"
)

// AdapterFactory opens the sessions for every enabled surface
type AdapterFactory func(ctx context.Context, cfg *Config, gen *fixtures.Generator) (backend.Set, error)

// NewAdapters is the default AdapterFactory. Both Data API adapters share one client.
func NewAdapters(ctx context.Context, cfg *Config, gen *fixtures.Generator) (backend.Set, error) {
	set := backend.Set{}

	var client *dataapi.Client
	if cfg.NeedsDataAPI() {
		var err error
		client, err = dataapi.NewClient(dataapi.Config{
			Endpoint: cfg.APIEndpoint,
			Token:    cfg.Token,
			Keyspace: cfg.Keyspace,
			Timeout:  cfg.RequestTimeout,
			Retries:  cfg.Retries,
			Log:      cfg.Log.New("component", "dataapi"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create data api client: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, err
		}
	}

	if !cfg.SkipTables {
		tables, err := newTablesAdapter(ctx, cfg, client, gen)
		if err != nil {
			if client != nil {
				client.Close()
			}
			return nil, err
		}
		set[types.SurfaceTables] = tables
	}
	if !cfg.SkipCollections {
		set[types.SurfaceCollections] = dataapi.NewCollectionsAdapter(client, gen, cfg.Log.New("surface", types.SurfaceCollections))
	}
	return set, nil
}

func newTablesAdapter(ctx context.Context, cfg *Config, client *dataapi.Client, gen *fixtures.Generator) (backend.Adapter, error) {
	logger := cfg.Log.New("surface", types.SurfaceTables, "driver", cfg.TablesDriver)
	switch cfg.TablesDriver {
	case flags.DriverDataAPI:
		return dataapi.NewTablesAdapter(client, gen, logger), nil
	case flags.DriverCQL:
		a, err := cql.NewTablesAdapter(cql.Config{
			Hosts:    cfg.CQLHosts,
			Keyspace: cfg.Keyspace,
			Username: cfg.CQLUsername,
			Password: cfg.CQLPassword,
			Timeout:  cfg.RequestTimeout,
			Log:      logger,
		}, gen)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to cql cluster: %w", err)
		}
		return a, nil
	case flags.DriverPgvector:
		a, err := pgvector.NewTablesAdapter(ctx, pgvector.Config{
			URL:    cfg.PgURL,
			Schema: cfg.Keyspace,
			Log:    logger,
		}, gen)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("invalid tables driver: %s", cfg.TablesDriver)
}

