// Package persistence implements the two-phase write protocol for
// chunk/embedding pairs described in spec.md §4.3: a non-transactional
// purge of a datasource's prior rows (on override), followed by a
// single transaction that inserts the new chunks and their vectors.
package persistence

import (
	"context"
	"fmt"

	"contextengine/internal/apperr"
	"contextengine/internal/db"
)

// ChunkEmbedding pairs one chunk with its computed vector. Vectors must
// all share the same length (the shard's declared dimension).
type ChunkEmbedding struct {
	Chunk  db.Chunk
	Vector []float32
}

// Writer writes chunk/embedding batches into a shard.
type Writer struct {
	conn    db.DB
	dialect db.DatabaseType
	vectors db.VectorDB
}

// NewWriter returns a Writer bound to conn, using vectors for the
// physical embedding table operations.
func NewWriter(conn db.DB, dialect db.DatabaseType, vectors db.VectorDB) *Writer {
	return &Writer{conn: conn, dialect: dialect, vectors: vectors}
}

// WriteChunksAndEmbeddings implements the protocol of spec.md §4.3.
//
// Preconditions: chunkEmbeddings is non-empty; all vectors have equal
// length. tableName must already be registered (callers resolve it via
// internal/shard before calling this).
//
// If override is set, step 1 (delete shard rows then chunk rows for
// datasourceID) runs outside any transaction: the embedded store's FK
// enforcement behaves inconsistently when deleting and re-inserting
// related rows within a single transaction, so re-ingesting a
// datasource is a deliberate two-phase purge-then-write rather than one
// atomic operation end to end. Steps 2-4 (insert chunks, insert
// vectors, commit) run in one transaction; any failure there rolls
// back to the pre-insert state, leaving the purge (if any) already
// applied but no partial new rows.
func (w *Writer) WriteChunksAndEmbeddings(ctx context.Context, chunkEmbeddings []ChunkEmbedding, tableName, datasourceID string, override bool) error {
	if len(chunkEmbeddings) == 0 {
		return fmt.Errorf("%w: chunkEmbeddings must be non-empty", apperr.ErrValidation)
	}
	dim := len(chunkEmbeddings[0].Vector)
	for i, ce := range chunkEmbeddings {
		if len(ce.Vector) != dim {
			return fmt.Errorf("%w: vector %d has length %d, want %d", apperr.ErrValidation, i, len(ce.Vector), dim)
		}
	}

	if override {
		if err := w.purge(ctx, tableName, datasourceID); err != nil {
			return fmt.Errorf("purging prior rows for %q: %w", datasourceID, err)
		}
	}

	chunks := make([]db.Chunk, len(chunkEmbeddings))
	for i, ce := range chunkEmbeddings {
		chunks[i] = ce.Chunk
	}

	return db.WithTransaction(w.conn, func(tx db.Tx) error {
		chunkRepo := db.NewChunkRepo(tx, w.dialect)
		ids, err := chunkRepo.CreateBatch(chunks)
		if err != nil {
			return err
		}

		vectors := make([][]float32, len(chunkEmbeddings))
		for i, ce := range chunkEmbeddings {
			vectors[i] = ce.Vector
		}
		if err := w.vectors.InsertVectors(ctx, tableName, ids, vectors); err != nil {
			return fmt.Errorf("inserting vectors into %q: %w", tableName, err)
		}
		return nil
	})
}

// purge deletes all shard rows referencing datasourceID's chunks, then
// the chunk rows themselves — embedding before chunk, matching the FK
// direction (embedding.id -> chunk.chunk_id) since cascading delete is
// not relied upon.
func (w *Writer) purge(ctx context.Context, tableName, datasourceID string) error {
	chunkRepo := db.NewChunkRepo(w.conn, w.dialect)
	chunks, err := chunkRepo.ListByDatasource(datasourceID)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if err := w.vectors.PurgeRow(ctx, tableName, c.ChunkID); err != nil {
			return fmt.Errorf("deleting shard row for chunk %d: %w", c.ChunkID, err)
		}
	}
	if _, err := chunkRepo.DeleteByDatasource(datasourceID); err != nil {
		return err
	}
	return nil
}
