package db

import (
	"database/sql"
	"fmt"
	"time"

	"contextengine/internal/apperr"
)

// Chunk is a unit of text emitted by a plugin for embedding. It is
// immutable after creation except via full re-ingest (override).
type Chunk struct {
	ChunkID        int64
	FullType       string
	DatasourceID   string
	DisplayText    *string
	EmbeddableText string
	CreatedAt      time.Time
}

// ChunkRepo persists Chunk rows.
type ChunkRepo struct {
	conn    Execer
	dialect Dialect
}

// NewChunkRepo returns a repository bound to conn.
func NewChunkRepo(conn Execer, dialectType DatabaseType) *ChunkRepo {
	return &ChunkRepo{conn: conn, dialect: GetDialect(dialectType)}
}

// CreateBatch inserts chunks in the given order and returns their
// allocated chunk_id's in the same order. Must be called within the
// transaction that will also insert the paired shard rows (§4.3).
func (r *ChunkRepo) CreateBatch(chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))
	insertSQL := fmt.Sprintf(
		"INSERT INTO chunk (full_type, datasource_id, display_text, embeddable_text) VALUES (%s)",
		r.dialect.Placeholders(4),
	)

	for i, c := range chunks {
		if r.dialect.SupportsReturning() {
			row := r.conn.QueryRow(insertSQL+" RETURNING chunk_id", c.FullType, c.DatasourceID, c.DisplayText, c.EmbeddableText)
			var id int64
			if err := row.Scan(&id); err != nil {
				return nil, fmt.Errorf("%w: inserting chunk %d: %v", apperr.ErrIntegrity, i, err)
			}
			ids[i] = id
			continue
		}

		res, err := r.conn.Exec(insertSQL, c.FullType, c.DatasourceID, c.DisplayText, c.EmbeddableText)
		if err != nil {
			return nil, fmt.Errorf("%w: inserting chunk %d: %v", apperr.ErrIntegrity, i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading inserted chunk id: %w", err)
		}
		ids[i] = id
	}
	return ids, nil
}

// DeleteByDatasource deletes all chunk rows for datasourceID. Must be
// called only after the referencing shard rows have been deleted
// (embedding -> chunk FK direction, §4.3).
func (r *ChunkRepo) DeleteByDatasource(datasourceID string) (int64, error) {
	deleteSQL := fmt.Sprintf("DELETE FROM chunk WHERE datasource_id = %s", r.dialect.Placeholder(1))
	res, err := r.conn.Exec(deleteSQL, datasourceID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for %q: %w", datasourceID, err)
	}
	return res.RowsAffected()
}

// GetByIDs returns the chunks for the given chunk_id's, in no
// particular order; callers needing a specific order (e.g. by
// ascending vector distance) must re-order the result themselves.
// Missing ids are silently omitted.
func (r *ChunkRepo) GetByIDs(ids []int64) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	querySQL := fmt.Sprintf(
		"SELECT chunk_id, full_type, datasource_id, display_text, embeddable_text, created_at FROM chunk WHERE chunk_id IN (%s)",
		r.dialect.Placeholders(len(ids)),
	)
	rows, err := r.conn.Query(querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("getting chunks by id: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		c := Chunk{}
		var displayText sql.NullString
		if err := rows.Scan(&c.ChunkID, &c.FullType, &c.DatasourceID, &displayText, &c.EmbeddableText, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		if displayText.Valid {
			c.DisplayText = &displayText.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListByDatasource returns all chunks for datasourceID.
func (r *ChunkRepo) ListByDatasource(datasourceID string) ([]Chunk, error) {
	querySQL := fmt.Sprintf(
		"SELECT chunk_id, full_type, datasource_id, display_text, embeddable_text, created_at FROM chunk WHERE datasource_id = %s ORDER BY chunk_id",
		r.dialect.Placeholder(1),
	)
	rows, err := r.conn.Query(querySQL, datasourceID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks for %q: %w", datasourceID, err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		c := Chunk{}
		var displayText sql.NullString
		if err := rows.Scan(&c.ChunkID, &c.FullType, &c.DatasourceID, &displayText, &c.EmbeddableText, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		if displayText.Valid {
			c.DisplayText = &displayText.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
