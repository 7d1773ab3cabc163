package db

import (
	"database/sql"
	"fmt"
	"time"
)

// ModelRegistryEntry maps an (embedder, model_id) pair to its physical
// shard table and declared dimension.
type ModelRegistryEntry struct {
	Embedder  string
	ModelID   string
	Dim       int
	TableName string
	CreatedAt time.Time
}

// RegistryRepo persists embedding_model_registry rows. It never
// interpolates TableName without validating it first (§4.2 "defense in
// depth"); that validation lives in internal/shard, which is the only
// caller that constructs new table names.
type RegistryRepo struct {
	conn    Execer
	dialect Dialect
}

// NewRegistryRepo returns a repository bound to conn.
func NewRegistryRepo(conn Execer, dialectType DatabaseType) *RegistryRepo {
	return &RegistryRepo{conn: conn, dialect: GetDialect(dialectType)}
}

// Get returns the registry row for (embedder, modelID), or (nil, nil)
// if unregistered.
func (r *RegistryRepo) Get(embedder, modelID string) (*ModelRegistryEntry, error) {
	querySQL := fmt.Sprintf(
		"SELECT embedder, model_id, dim, table_name, created_at FROM embedding_model_registry WHERE embedder = %s AND model_id = %s",
		r.dialect.Placeholder(1), r.dialect.Placeholder(2),
	)
	row := r.conn.QueryRow(querySQL, embedder, modelID)
	e := &ModelRegistryEntry{}
	if err := row.Scan(&e.Embedder, &e.ModelID, &e.Dim, &e.TableName, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up registry for (%s, %s): %w", embedder, modelID, err)
	}
	return e, nil
}

// Create inserts a new registry row. Callers must have already created
// the physical shard table and its HNSW index in the same logical
// operation (internal/shard.Resolver enforces this ordering).
func (r *RegistryRepo) Create(embedder, modelID string, dim int, tableName string) (*ModelRegistryEntry, error) {
	insertSQL := fmt.Sprintf(
		"INSERT INTO embedding_model_registry (embedder, model_id, dim, table_name) VALUES (%s)",
		r.dialect.Placeholders(4),
	)
	if _, err := r.conn.Exec(insertSQL, embedder, modelID, dim, tableName); err != nil {
		return nil, fmt.Errorf("registering shard %q: %w", tableName, err)
	}
	return &ModelRegistryEntry{Embedder: embedder, ModelID: modelID, Dim: dim, TableName: tableName, CreatedAt: time.Now().UTC()}, nil
}

// List returns all registered shards.
func (r *RegistryRepo) List() ([]ModelRegistryEntry, error) {
	rows, err := r.conn.Query("SELECT embedder, model_id, dim, table_name, created_at FROM embedding_model_registry ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("listing registry: %w", err)
	}
	defer rows.Close()

	var out []ModelRegistryEntry
	for rows.Next() {
		e := ModelRegistryEntry{}
		if err := rows.Scan(&e.Embedder, &e.ModelID, &e.Dim, &e.TableName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning registry row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
