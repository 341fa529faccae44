package config

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/app/store"
	"taskboard/app/store/graph"
	"taskboard/app/store/memory"
	"taskboard/app/store/postgres"
	"taskboard/app/store/rest"
)

// Migrator is implemented by backends that own their schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// InitPostgres opens a connection pool and checks it is reachable.
func InitPostgres(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

// OpenBackend constructs the backend selected by cfg. The caller owns it and
// must Close it.
func OpenBackend(ctx context.Context, cfg *Config) (store.Backend, error) {
	switch cfg.Backend {
	case BackendREST:
		return rest.New(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	case BackendPostgres:
		pool, err := InitPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return postgres.New(pool), nil
	case BackendNeo4j:
		driver, err := InitNeo4j(cfg.Neo4j)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Neo4j connection: %w", err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			driver.Close(ctx)
			return nil, fmt.Errorf("failed to reach neo4j: %w", err)
		}
		return graph.New(driver), nil
	case BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
