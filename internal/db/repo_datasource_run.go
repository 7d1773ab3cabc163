package db

import (
	"database/sql"
	"fmt"
	"time"

	"contextengine/internal/apperr"
)

// DatasourceRun records one successfully dispatched source within a Run.
// SourceID is stable across runs (a relative path), enabling override
// semantics on re-ingest.
type DatasourceRun struct {
	DatasourceRunID  int64
	RunID            int64
	Plugin           string
	FullType         string
	SourceID         string
	StorageDirectory string
	CreatedAt        time.Time
}

// DatasourceRunRepo persists DatasourceRun rows.
type DatasourceRunRepo struct {
	conn    Execer
	dialect Dialect
}

// NewDatasourceRunRepo returns a repository bound to conn.
func NewDatasourceRunRepo(conn Execer, dialectType DatabaseType) *DatasourceRunRepo {
	return &DatasourceRunRepo{conn: conn, dialect: GetDialect(dialectType)}
}

// Create inserts a new datasource_run row.
func (r *DatasourceRunRepo) Create(runID int64, plugin, fullType, sourceID, storageDirectory string) (*DatasourceRun, error) {
	insertSQL := fmt.Sprintf(
		"INSERT INTO datasource_run (run_id, plugin, full_type, source_id, storage_directory) VALUES (%s)",
		r.dialect.Placeholders(5),
	)
	dr := &DatasourceRun{
		RunID: runID, Plugin: plugin, FullType: fullType,
		SourceID: sourceID, StorageDirectory: storageDirectory,
	}

	if r.dialect.SupportsReturning() {
		row := r.conn.QueryRow(insertSQL+" RETURNING datasource_run_id, created_at", runID, plugin, fullType, sourceID, storageDirectory)
		if err := row.Scan(&dr.DatasourceRunID, &dr.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: creating datasource_run for %q: %v", apperr.ErrIntegrity, sourceID, err)
		}
		return dr, nil
	}

	res, err := r.conn.Exec(insertSQL, runID, plugin, fullType, sourceID, storageDirectory)
	if err != nil {
		return nil, fmt.Errorf("%w: creating datasource_run for %q: %v", apperr.ErrIntegrity, sourceID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted datasource_run id: %w", err)
	}
	dr.DatasourceRunID = id
	dr.CreatedAt = time.Now().UTC()
	return dr, nil
}

// ListByRun returns all datasource_run rows for a run, most recent first.
func (r *DatasourceRunRepo) ListByRun(runID int64) ([]DatasourceRun, error) {
	querySQL := fmt.Sprintf(
		"SELECT datasource_run_id, run_id, plugin, full_type, source_id, storage_directory, created_at FROM datasource_run WHERE run_id = %s ORDER BY datasource_run_id DESC",
		r.dialect.Placeholder(1),
	)
	rows, err := r.conn.Query(querySQL, runID)
	if err != nil {
		return nil, fmt.Errorf("listing datasource_run for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []DatasourceRun
	for rows.Next() {
		dr := DatasourceRun{}
		if err := rows.Scan(&dr.DatasourceRunID, &dr.RunID, &dr.Plugin, &dr.FullType, &dr.SourceID, &dr.StorageDirectory, &dr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning datasource_run row: %w", err)
		}
		out = append(out, dr)
	}
	return out, rows.Err()
}

// GetLatestBySource returns the most recent datasource_run for sourceID
// across any run, or (nil, nil) if none exists.
func (r *DatasourceRunRepo) GetLatestBySource(sourceID string) (*DatasourceRun, error) {
	querySQL := fmt.Sprintf(
		"SELECT datasource_run_id, run_id, plugin, full_type, source_id, storage_directory, created_at FROM datasource_run WHERE source_id = %s ORDER BY datasource_run_id DESC LIMIT 1",
		r.dialect.Placeholder(1),
	)
	row := r.conn.QueryRow(querySQL, sourceID)
	dr := &DatasourceRun{}
	if err := row.Scan(&dr.DatasourceRunID, &dr.RunID, &dr.Plugin, &dr.FullType, &dr.SourceID, &dr.StorageDirectory, &dr.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest datasource_run for %q: %w", sourceID, err)
	}
	return dr, nil
}
