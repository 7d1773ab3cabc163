package chunkembed

import (
	"context"
	"testing"

	"contextengine/internal/db"
	"contextengine/internal/persistence"
	"contextengine/internal/pluginlib"
	"contextengine/internal/provider"
	"contextengine/internal/shard"
)

type fakeEmbedder struct {
	dim     int
	modelID string
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 10
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dim() int        { return f.dim }
func (f *fakeEmbedder) ModelID() string { return f.modelID }

type fakeDescriber struct{}

func (fakeDescriber) Describe(ctx context.Context, text, contextYAML string) (string, error) {
	return "description of: " + text, nil
}
func (fakeDescriber) ModelID() string { return "fake-describer" }

func newTestService(t *testing.T, mode Mode, describer *fakeDescriber) (*Service, db.DB) {
	t.Helper()
	conn, err := db.OpenAndMigrate(db.Config{Type: db.DatabaseSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	vectors := db.NewSQLiteVectorDB(conn, db.DistanceCosine)
	resolver := shard.NewResolver(conn, db.DatabaseSQLite, vectors)
	writer := persistence.NewWriter(conn, db.DatabaseSQLite, vectors)

	embedder := &fakeEmbedder{dim: 4, modelID: "fake-model"}

	var dp provider.DescriptionProvider
	if describer != nil {
		dp = describer
	}

	svc := New("fake", embedder, dp, resolver, writer, mode)
	return svc, conn
}

func TestService_EmbedAndPersist_EmbeddableTextOnly(t *testing.T) {
	svc, _ := newTestService(t, EmbeddableTextOnly, nil)

	chunks := []pluginlib.EmbeddableChunk{
		{EmbeddableText: "hello world", Content: "hello world"},
		{EmbeddableText: "second chunk", Content: "second chunk"},
	}

	err := svc.EmbedAndPersist(context.Background(), "files/txt", "files/readme.md", "", chunks)
	if err != nil {
		t.Fatalf("EmbedAndPersist() error = %v", err)
	}
}

func TestService_EmbedAndPersist_EmptyChunksIsNoOp(t *testing.T) {
	svc, _ := newTestService(t, EmbeddableTextOnly, nil)

	err := svc.EmbedAndPersist(context.Background(), "files/txt", "files/readme.md", "", nil)
	if err != nil {
		t.Fatalf("EmbedAndPersist() error = %v", err)
	}
}

func TestService_EmbedAndPersist_GeneratedDescriptionRequiresDescriber(t *testing.T) {
	svc, _ := newTestService(t, GeneratedDescriptionOnly, nil)

	chunks := []pluginlib.EmbeddableChunk{{EmbeddableText: "x", Content: "x"}}
	err := svc.EmbedAndPersist(context.Background(), "files/txt", "files/a.md", "", chunks)
	if err == nil {
		t.Fatal("expected error when GeneratedDescriptionOnly mode has no describer")
	}
}

func TestService_EmbedAndPersist_GeneratedDescription(t *testing.T) {
	d := &fakeDescriber{}
	svc, _ := newTestService(t, GeneratedDescriptionOnly, d)

	chunks := []pluginlib.EmbeddableChunk{{EmbeddableText: "raw text", Content: "raw text"}}
	err := svc.EmbedAndPersist(context.Background(), "files/txt", "files/a.md", "ctx: yaml\n", chunks)
	if err != nil {
		t.Fatalf("EmbedAndPersist() error = %v", err)
	}
}

func TestService_EmbedAndPersist_NonStringContentIsYAMLEncoded(t *testing.T) {
	svc, _ := newTestService(t, EmbeddableTextOnly, nil)

	type row struct {
		Schema string
		Table  string
	}
	chunks := []pluginlib.EmbeddableChunk{
		{EmbeddableText: "table info", Content: row{Schema: "public", Table: "orders"}},
	}

	err := svc.EmbedAndPersist(context.Background(), "databases/postgres", "databases/orders.yaml", "", chunks)
	if err != nil {
		t.Fatalf("EmbedAndPersist() error = %v", err)
	}
}

func TestService_Rerun_Overrides(t *testing.T) {
	svc, _ := newTestService(t, EmbeddableTextOnly, nil)

	chunks := []pluginlib.EmbeddableChunk{{EmbeddableText: "v1", Content: "v1"}}
	if err := svc.EmbedAndPersist(context.Background(), "files/txt", "files/a.md", "", chunks); err != nil {
		t.Fatalf("first EmbedAndPersist() error = %v", err)
	}

	chunks2 := []pluginlib.EmbeddableChunk{{EmbeddableText: "v2", Content: "v2"}}
	if err := svc.EmbedAndPersist(context.Background(), "files/txt", "files/a.md", "", chunks2); err != nil {
		t.Fatalf("second EmbedAndPersist() error = %v", err)
	}
}
