package retrieval

import (
	"context"
	"testing"

	"contextengine/internal/chunkembed"
	"contextengine/internal/db"
	"contextengine/internal/persistence"
	"contextengine/internal/pluginlib"
	"contextengine/internal/shard"
)

type stubEmbedder struct {
	dim     int
	modelID string
	vector  func(text string) []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector(text), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vector(t)
	}
	return out, nil
}

func (s *stubEmbedder) Dim() int        { return s.dim }
func (s *stubEmbedder) ModelID() string { return s.modelID }

func setup(t *testing.T) (db.DB, *shard.Resolver, *stubEmbedder) {
	t.Helper()
	conn, err := db.OpenAndMigrate(db.Config{Type: db.DatabaseSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	vectors := db.NewSQLiteVectorDB(conn, db.DistanceCosine)
	resolver := shard.NewResolver(conn, db.DatabaseSQLite, vectors)

	embedder := &stubEmbedder{
		dim:     3,
		modelID: "stub-model",
		vector: func(text string) []float32 {
			switch text {
			case "apple pie recipe":
				return []float32{1, 0, 0}
			case "banana bread recipe":
				return []float32{0.9, 0.1, 0}
			case "unrelated legal contract":
				return []float32{0, 0, 1}
			case "query about apples":
				return []float32{1, 0, 0}
			default:
				return []float32{0, 1, 0}
			}
		},
	}

	writer := persistence.NewWriter(conn, db.DatabaseSQLite, vectors)
	svc := chunkembed.New("stub", embedder, nil, resolver, writer, chunkembed.EmbeddableTextOnly)

	ctx := context.Background()
	err = svc.EmbedAndPersist(ctx, "files/txt", "files/apple.md", "",
		[]pluginlib.EmbeddableChunk{{EmbeddableText: "apple pie recipe", Content: "apple pie recipe"}})
	if err != nil {
		t.Fatalf("seeding apple chunk: %v", err)
	}
	err = svc.EmbedAndPersist(ctx, "files/txt", "files/banana.md", "",
		[]pluginlib.EmbeddableChunk{{EmbeddableText: "banana bread recipe", Content: "banana bread recipe"}})
	if err != nil {
		t.Fatalf("seeding banana chunk: %v", err)
	}
	err = svc.EmbedAndPersist(ctx, "files/txt", "files/legal.md", "",
		[]pluginlib.EmbeddableChunk{{EmbeddableText: "unrelated legal contract", Content: "unrelated legal contract"}})
	if err != nil {
		t.Fatalf("seeding legal chunk: %v", err)
	}

	return conn, resolver, embedder
}

func TestPipeline_Retrieve_ReturnsClosestFirst(t *testing.T) {
	conn, resolver, embedder := setup(t)
	chunks := db.NewChunkRepo(conn, db.DatabaseSQLite)
	vectors := db.NewSQLiteVectorDB(conn, db.DistanceCosine)

	p := New("stub", embedder, nil, resolver, vectors, chunks)

	results, err := p.Retrieve(context.Background(), "query about apples", 10, nil, DirectQuery)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].DatasourceID != "files/apple.md" {
		t.Errorf("closest result = %q, want files/apple.md", results[0].DatasourceID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not sorted ascending by distance at index %d", i)
		}
	}
}

func TestPipeline_Retrieve_DatasourceFilter(t *testing.T) {
	conn, resolver, embedder := setup(t)
	chunks := db.NewChunkRepo(conn, db.DatabaseSQLite)
	vectors := db.NewSQLiteVectorDB(conn, db.DistanceCosine)

	p := New("stub", embedder, nil, resolver, vectors, chunks)

	results, err := p.Retrieve(context.Background(), "query about apples", 10, []string{"files/banana.md"}, DirectQuery)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, r := range results {
		if r.DatasourceID != "files/banana.md" {
			t.Errorf("result datasource = %q, want only files/banana.md", r.DatasourceID)
		}
	}
}

func TestPipeline_Retrieve_Limit(t *testing.T) {
	conn, resolver, embedder := setup(t)
	chunks := db.NewChunkRepo(conn, db.DatabaseSQLite)
	vectors := db.NewSQLiteVectorDB(conn, db.DistanceCosine)

	p := New("stub", embedder, nil, resolver, vectors, chunks)

	results, err := p.Retrieve(context.Background(), "query about apples", 1, nil, DirectQuery)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
}

func TestPipeline_Retrieve_UnregisteredShardFails(t *testing.T) {
	conn, err := db.OpenAndMigrate(db.Config{Type: db.DatabaseSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	defer conn.Close()

	vectors := db.NewSQLiteVectorDB(conn, db.DistanceCosine)
	resolver := shard.NewResolver(conn, db.DatabaseSQLite, vectors)
	chunks := db.NewChunkRepo(conn, db.DatabaseSQLite)
	embedder := &stubEmbedder{dim: 3, modelID: "stub-model", vector: func(string) []float32 { return []float32{1, 0, 0} }}

	p := New("stub", embedder, nil, resolver, vectors, chunks)
	_, err = p.Retrieve(context.Background(), "anything", 10, nil, DirectQuery)
	if err == nil {
		t.Fatal("expected error for unregistered shard")
	}
}
