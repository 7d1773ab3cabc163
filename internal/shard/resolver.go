package shard

import (
	"context"
	"fmt"

	"contextengine/internal/apperr"
	"contextengine/internal/db"
)

// Resolver maps (embedder, model_id[, dim]) to a physical shard table,
// creating the table, its HNSW index, and its registry row, in that
// order and outside any transaction, the first time a triple is seen.
// Each step is idempotent, so a call that fails part-way is completed
// by the next call for the same triple.
type Resolver struct {
	conn       db.DB
	dialect    db.DatabaseType
	registry   *db.RegistryRepo
	vectors    db.VectorDB
	policy     TableNamePolicy
	metric     db.DistanceMetric
}

// NewResolver returns a Resolver backed by conn. vectors drives the
// physical index/search operations: a *db.PgVectorDB for a Postgres
// connection, a *db.SQLiteVectorDB for an embedded SQLite one.
func NewResolver(conn db.DB, dialect db.DatabaseType, vectors db.VectorDB) *Resolver {
	return &Resolver{
		conn:     conn,
		dialect:  dialect,
		registry: db.NewRegistryRepo(conn, dialect),
		vectors:  vectors,
		metric:   db.DistanceCosine,
	}
}

// Resolve returns the registered table name for (embedder, modelID), or
// apperr.ErrLookup if unregistered.
func (r *Resolver) Resolve(embedder, modelID string) (tableName string, dim int, err error) {
	entry, err := r.registry.Get(embedder, modelID)
	if err != nil {
		return "", 0, err
	}
	if entry == nil {
		return "", 0, fmt.Errorf("%w: no registered shard for embedder %q model %q", apperr.ErrLookup, embedder, modelID)
	}
	return entry.TableName, entry.Dim, nil
}

// ResolveOrCreate returns the table name for (embedder, modelID, dim),
// creating the shard table, HNSW index, and registry row if this is
// the first time the triple is seen. If the pair is already registered
// under a different dimension, it fails with apperr.ErrValidation.
//
// Repeated calls with the same arguments are a no-op: exactly one
// registry row and one physical table ever exist for a given pair.
func (r *Resolver) ResolveOrCreate(ctx context.Context, embedder, modelID string, dim int) (string, error) {
	entry, err := r.registry.Get(embedder, modelID)
	if err != nil {
		return "", err
	}
	if entry != nil {
		if entry.Dim != dim {
			return "", fmt.Errorf("%w: shard for embedder %q model %q already registered with dim %d, got %d",
				apperr.ErrValidation, embedder, modelID, entry.Dim, dim)
		}
		return entry.TableName, nil
	}

	tableName, err := r.policy.Build(embedder, modelID, dim)
	if err != nil {
		return "", err
	}

	if err := r.createShardTable(ctx, tableName, dim); err != nil {
		return "", fmt.Errorf("creating shard table %q: %w", tableName, err)
	}
	if err := r.vectors.CreateVectorIndex(ctx, tableName, dim, r.metric); err != nil {
		return "", fmt.Errorf("creating HNSW index on %q: %w", tableName, err)
	}
	if _, err := r.registry.Create(embedder, modelID, dim, tableName); err != nil {
		return "", err
	}
	return tableName, nil
}

// createShardTable creates table with columns (id, embedding,
// created_at): id references chunk(chunk_id); embedding holds the
// dim-dimension vector (native `vector(dim)` on Postgres, TEXT-encoded
// JSON on SQLite, since the embedded backend has no native vector
// column type).
func (r *Resolver) createShardTable(ctx context.Context, table string, dim int) error {
	var ddl string
	if r.dialect == db.DatabasePostgres {
		ddl = fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				id BIGINT PRIMARY KEY REFERENCES chunk(chunk_id),
				embedding vector(%d),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, table, dim)
	} else {
		ddl = fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY REFERENCES chunk(chunk_id),
				embedding TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, table)
	}
	_, err := r.conn.ExecContext(ctx, ddl)
	return err
}
