package db

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// shardTablePattern mirrors internal/shard's table name policy. db
// can't import shard (shard already imports db), so every repository
// here that interpolates a table name into SQL re-checks it against
// this pattern rather than trusting the caller, in case the name came
// from a stale or tampered registry row instead of shard.Build.
var shardTablePattern = regexp.MustCompile(`^embedding_[a-z0-9_]+$`)

func validateShardTable(table string) error {
	if !shardTablePattern.MatchString(table) {
		return fmt.Errorf("invalid shard table name %q", table)
	}
	return nil
}

// DistanceMetric identifies how similarity between two vectors is
// measured. The zero value is DistanceCosine.
type DistanceMetric int

const (
	DistanceCosine DistanceMetric = iota
	DistanceEuclidean
	DistanceDotProduct
)

// String returns the metric's canonical name.
func (m DistanceMetric) String() string {
	switch m {
	case DistanceEuclidean:
		return "euclidean"
	case DistanceDotProduct:
		return "dot"
	default:
		return "cosine"
	}
}

// pgOperator returns the pgvector distance operator for this metric.
func (m DistanceMetric) pgOperator() string {
	switch m {
	case DistanceEuclidean:
		return "<->"
	case DistanceDotProduct:
		return "<#>"
	default:
		return "<=>"
	}
}

// pgOpsClass returns the pgvector index operator class for this metric.
func (m DistanceMetric) pgOpsClass() string {
	switch m {
	case DistanceEuclidean:
		return "vector_l2_ops"
	case DistanceDotProduct:
		return "vector_ip_ops"
	default:
		return "vector_cosine_ops"
	}
}

// VectorSearchResult is one row of a k-NN search, ordered by ascending
// distance (closest first).
type VectorSearchResult struct {
	ID       int64
	Distance float32
}

// VectorDB is implemented by every vector search backend: a native
// pgvector-backed store (PgVectorDB), an application-side scan over
// the embedded SQLite shard table (SQLiteVectorDB), and a brute-force
// in-memory store (BruteForceVectorDB) used by tests comparing result
// quality.
type VectorDB interface {
	// SupportsNativeSearch reports whether the backend pushes k-NN
	// search down to the database engine (true for pgvector) or
	// computes it in the application (false for brute force).
	SupportsNativeSearch() bool

	// CreateVectorIndex builds (or rebuilds) an index accelerating
	// SearchKNN against table for the given dimensionality and metric.
	CreateVectorIndex(ctx context.Context, table string, dimensions int, metric DistanceMetric) error

	// InsertVector inserts the shard row for id with vector, or replaces
	// its embedding if the row already exists.
	InsertVector(ctx context.Context, table string, id int64, vector []float32) error

	// InsertVectors is the batch form of InsertVector.
	InsertVectors(ctx context.Context, table string, ids []int64, vectors [][]float32) error

	// SearchKNN returns the k nearest rows to query, closest first.
	SearchKNN(ctx context.Context, table string, query []float32, k int) ([]VectorSearchResult, error)

	// DeleteVector removes the embedding (not necessarily the row) for id.
	DeleteVector(ctx context.Context, table string, id int64) error

	// PurgeRow permanently deletes the shard row for id, unlike
	// DeleteVector which only clears the embedding. Used by the
	// persistence layer's override purge, which must remove the row
	// entirely before its referenced chunk can be deleted.
	PurgeRow(ctx context.Context, table string, id int64) error
}

// PgVectorDB implements VectorDB against a PostgreSQL database with the
// pgvector extension enabled. Tables must already have a `vector(N)`
// column named `embedding`.
type PgVectorDB struct {
	db         DB
	dimensions int
	metric     DistanceMetric
}

var _ VectorDB = (*PgVectorDB)(nil)

// NewPgVectorDB wraps database for vector operations at the given
// dimensionality and metric.
func NewPgVectorDB(database DB, dimensions int, metric DistanceMetric) (*PgVectorDB, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &PgVectorDB{db: database, dimensions: dimensions, metric: metric}, nil
}

func (v *PgVectorDB) SupportsNativeSearch() bool { return true }

func (v *PgVectorDB) CreateVectorIndex(ctx context.Context, table string, dimensions int, metric DistanceMetric) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	indexName := fmt.Sprintf("%s_embedding_idx", table)
	sql := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding %s)",
		indexName, table, metric.pgOpsClass(),
	)
	_, err := v.db.ExecContext(ctx, sql)
	if err != nil {
		return fmt.Errorf("creating vector index on %s: %w", table, err)
	}
	return nil
}

func (v *PgVectorDB) InsertVector(ctx context.Context, table string, id int64, vector []float32) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (id, embedding) VALUES ($2, $1) ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding",
		table)
	_, err := v.db.ExecContext(ctx, sql, vectorLiteral(vector), id)
	if err != nil {
		return fmt.Errorf("inserting vector into %s: %w", table, err)
	}
	return nil
}

func (v *PgVectorDB) InsertVectors(ctx context.Context, table string, ids []int64, vectors [][]float32) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (id, embedding) VALUES ($2, $1) ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding",
		table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing batch insert statement: %w", err)
	}

	for i := range ids {
		if _, err := stmt.Exec(vectorLiteral(vectors[i]), ids[i]); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("batch inserting vector %d: %w", ids[i], err)
		}
	}
	stmt.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch insert: %w", err)
	}
	return nil
}

func (v *PgVectorDB) SearchKNN(ctx context.Context, table string, query []float32, k int) ([]VectorSearchResult, error) {
	if err := validateShardTable(table); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(
		"SELECT id, embedding %s $1 AS distance FROM %s WHERE embedding IS NOT NULL ORDER BY distance LIMIT $2",
		v.metric.pgOperator(), table,
	)
	rows, err := v.db.QueryContext(ctx, sql, vectorLiteral(query), k)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", table, err)
	}
	defer rows.Close()

	var results []VectorSearchResult
	for rows.Next() {
		var r VectorSearchResult
		if err := rows.Scan(&r.ID, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (v *PgVectorDB) DeleteVector(ctx context.Context, table string, id int64) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	_, err := v.db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET embedding = NULL WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("deleting vector from %s: %w", table, err)
	}
	return nil
}

func (v *PgVectorDB) PurgeRow(ctx context.Context, table string, id int64) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	_, err := v.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("purging row from %s: %w", table, err)
	}
	return nil
}

// vectorLiteral renders a vector in pgvector's text input format:
// "[1,2,3]".
func vectorLiteral(vector []float32) string {
	parts := make([]string, len(vector))
	for i, f := range vector {
		parts[i] = strconvFloat(f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func strconvFloat(f float32) string {
	return fmt.Sprintf("%g", f)
}

// SQLiteVectorDB implements VectorDB against an embedded SQLite shard
// table by storing each vector as JSON text in an `embedding` column
// and computing k-NN distance in the application, since the pure-Go
// modernc.org/sqlite driver has no native vector extension. Unlike
// BruteForceVectorDB it writes through to the real table, so FK
// integrity between the shard and `chunk` holds without an in-memory
// side-channel.
type SQLiteVectorDB struct {
	db     DB
	metric DistanceMetric
}

var _ VectorDB = (*SQLiteVectorDB)(nil)

// NewSQLiteVectorDB wraps database for vector operations using metric
// as the distance function applied at query time.
func NewSQLiteVectorDB(database DB, metric DistanceMetric) *SQLiteVectorDB {
	return &SQLiteVectorDB{db: database, metric: metric}
}

func (v *SQLiteVectorDB) SupportsNativeSearch() bool { return false }

// CreateVectorIndex is a no-op: SQLite has no native vector index type,
// so search always falls back to the application-side brute force scan
// in SearchKNN.
func (v *SQLiteVectorDB) CreateVectorIndex(_ context.Context, _ string, _ int, metric DistanceMetric) error {
	v.metric = metric
	return nil
}

func (v *SQLiteVectorDB) InsertVector(ctx context.Context, table string, id int64, vector []float32) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (id, embedding) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding",
		table)
	_, err := v.db.ExecContext(ctx, sql, id, jsonVector(vector))
	if err != nil {
		return fmt.Errorf("inserting vector into %s: %w", table, err)
	}
	return nil
}

func (v *SQLiteVectorDB) InsertVectors(ctx context.Context, table string, ids []int64, vectors [][]float32) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch insert transaction: %w", err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (id, embedding) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding",
		table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing batch insert statement: %w", err)
	}
	for i := range ids {
		if _, err := stmt.Exec(ids[i], jsonVector(vectors[i])); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("batch inserting vector %d: %w", ids[i], err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

func (v *SQLiteVectorDB) SearchKNN(ctx context.Context, table string, query []float32, k int) ([]VectorSearchResult, error) {
	if err := validateShardTable(table); err != nil {
		return nil, err
	}
	rows, err := v.db.QueryContext(ctx, fmt.Sprintf("SELECT id, embedding FROM %s WHERE embedding IS NOT NULL", table))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", table, err)
	}
	defer rows.Close()

	var results []VectorSearchResult
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		vec, err := parseJSONVector(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing stored vector for id %d: %w", id, err)
		}
		results = append(results, VectorSearchResult{ID: id, Distance: distance(v.metric, query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if k >= 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (v *SQLiteVectorDB) DeleteVector(ctx context.Context, table string, id int64) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	_, err := v.db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET embedding = NULL WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("deleting vector from %s: %w", table, err)
	}
	return nil
}

func (v *SQLiteVectorDB) PurgeRow(ctx context.Context, table string, id int64) error {
	if err := validateShardTable(table); err != nil {
		return err
	}
	_, err := v.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("purging row from %s: %w", table, err)
	}
	return nil
}

func jsonVector(vector []float32) string {
	parts := make([]string, len(vector))
	for i, f := range vector {
		parts[i] = strconvFloat(f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func parseJSONVector(raw string) ([]float32, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &f); err != nil {
			return nil, fmt.Errorf("parsing component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// BruteForceVectorDB is an in-memory VectorDB used by tests that
// measure search quality against a ground truth; the embedded SQLite
// shard path uses SQLiteVectorDB instead. It is safe for concurrent
// use.
type BruteForceVectorDB struct {
	mu      sync.RWMutex
	metric  DistanceMetric
	vectors map[string]map[int64][]float32
}

var _ VectorDB = (*BruteForceVectorDB)(nil)

// NewBruteForceVectorDB returns an empty brute-force index.
func NewBruteForceVectorDB() *BruteForceVectorDB {
	return &BruteForceVectorDB{vectors: make(map[string]map[int64][]float32)}
}

func (v *BruteForceVectorDB) SupportsNativeSearch() bool { return false }

func (v *BruteForceVectorDB) CreateVectorIndex(_ context.Context, table string, _ int, metric DistanceMetric) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.metric = metric
	if _, ok := v.vectors[table]; !ok {
		v.vectors[table] = make(map[int64][]float32)
	}
	return nil
}

func (v *BruteForceVectorDB) InsertVector(_ context.Context, table string, id int64, vector []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.vectors[table]; !ok {
		v.vectors[table] = make(map[int64][]float32)
	}
	v.vectors[table][id] = vector
	return nil
}

func (v *BruteForceVectorDB) InsertVectors(ctx context.Context, table string, ids []int64, vectors [][]float32) error {
	for i := range ids {
		if err := v.InsertVector(ctx, table, ids[i], vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *BruteForceVectorDB) SearchKNN(_ context.Context, table string, query []float32, k int) ([]VectorSearchResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	bucket := v.vectors[table]
	results := make([]VectorSearchResult, 0, len(bucket))
	for id, vec := range bucket {
		results = append(results, VectorSearchResult{ID: id, Distance: distance(v.metric, query, vec)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if k >= 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (v *BruteForceVectorDB) DeleteVector(_ context.Context, table string, id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if bucket, ok := v.vectors[table]; ok {
		delete(bucket, id)
	}
	return nil
}

func (v *BruteForceVectorDB) PurgeRow(ctx context.Context, table string, id int64) error {
	return v.DeleteVector(ctx, table, id)
}

// distance computes the configured metric between a and b. For cosine
// it returns 1 - cosine_similarity, so identical vectors score 0 and
// results sort ascending by "more similar first", matching pgvector's
// <=> operator.
func distance(metric DistanceMetric, a, b []float32) float32 {
	switch metric {
	case DistanceEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return float32(math.Sqrt(sum))
	case DistanceDotProduct:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return float32(-dot)
	default:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		for _, v := range a {
			na += float64(v) * float64(v)
		}
		for _, v := range b {
			nb += float64(v) * float64(v)
		}
		if na == 0 || nb == 0 {
			return 1
		}
		cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
		return float32(1 - cos)
	}
}
