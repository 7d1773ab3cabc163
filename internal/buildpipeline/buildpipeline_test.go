package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"contextengine/internal/chunkembed"
	"contextengine/internal/db"
	"contextengine/internal/persistence"
	"contextengine/internal/plugin"
	"contextengine/internal/plugin/textfile"
	"contextengine/internal/progress"
	"contextengine/internal/project"
	"contextengine/internal/shard"
)

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(len(text) + i)
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
func (f *fakeEmbedder) ModelID() string { return "fake-model" }

func newPipeline(t *testing.T, srcDir string) (*Pipeline, *db.RunRepo, *db.DatasourceRunRepo) {
	t.Helper()

	conn, err := db.OpenAndMigrate(db.Config{Type: db.DatabaseSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	vectors := db.NewSQLiteVectorDB(conn, db.DistanceCosine)
	resolver := shard.NewResolver(conn, db.DatabaseSQLite, vectors)
	writer := persistence.NewWriter(conn, db.DatabaseSQLite, vectors)

	embedding := chunkembed.New("fake", &fakeEmbedder{dim: 3}, nil, resolver, writer, chunkembed.EmbeddableTextOnly)

	registry := plugin.NewRegistry()
	if err := registry.RegisterAll(textfile.New()); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}

	runs := db.NewRunRepo(conn, db.DatabaseSQLite)
	datasourceRuns := db.NewDatasourceRunRepo(conn, db.DatabaseSQLite)

	return New(registry, embedding, nil, runs, datasourceRuns, "proj-1", "v-test", t.TempDir(), srcDir), runs, datasourceRuns
}

func writeSrcFile(t *testing.T, srcDir, relPath, content string) {
	t.Helper()
	full := filepath.Join(srcDir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestPipeline_Build_EmptySrcEmitsStartAndFinish(t *testing.T) {
	srcDir := t.TempDir()
	p, _, _ := newPipeline(t, srcDir)

	var events []progress.Event
	results, tally, err := p.Build(context.Background(), func(e progress.Event) { events = append(events, e) })
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
	if tally.OK != 0 || tally.Failed != 0 || tally.Skipped != 0 {
		t.Errorf("tally = %+v, want zero", tally)
	}
	if len(events) != 2 || events[0].Kind != progress.TaskStarted || events[1].Kind != progress.TaskFinished {
		t.Fatalf("events = %+v, want [TaskStarted, TaskFinished]", events)
	}
}

func TestPipeline_Build_ProcessesFileDatasource(t *testing.T) {
	srcDir := t.TempDir()
	writeSrcFile(t, srcDir, "files/intro.md", "# hello\nworld\nmore text here for chunking\n")

	p, _, _ := newPipeline(t, srcDir)

	var events []progress.Event
	results, tally, err := p.Build(context.Background(), func(e progress.Event) { events = append(events, e) })
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Status != progress.StatusOK {
		t.Errorf("results[0] = %+v, want OK", results[0])
	}
	if tally.OK != 1 {
		t.Errorf("tally = %+v, want OK=1", tally)
	}

	var sawStarted, sawFinished bool
	for _, e := range events {
		if e.Kind == progress.DatasourceStarted {
			sawStarted = true
		}
		if e.Kind == progress.DatasourceFinished {
			sawFinished = true
			if e.Status != progress.StatusOK {
				t.Errorf("DatasourceFinished status = %v, want OK", e.Status)
			}
		}
	}
	if !sawStarted || !sawFinished {
		t.Errorf("missing DatasourceStarted/Finished events: %+v", events)
	}
}

func TestPipeline_Build_UnregisteredTypeIsSkipped(t *testing.T) {
	srcDir := t.TempDir()
	writeSrcFile(t, srcDir, "files/diagram.svg", "<svg></svg>")

	p, _, _ := newPipeline(t, srcDir)

	results, tally, err := p.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(results) != 1 || results[0].Status != progress.StatusSkipped {
		t.Fatalf("results = %+v, want one SKIPPED", results)
	}
	if tally.Skipped != 1 {
		t.Errorf("tally = %+v, want Skipped=1", tally)
	}
}

func TestPipeline_Build_BadConfigFileIsFailedNotFatal(t *testing.T) {
	srcDir := t.TempDir()
	// A CONFIG-kind descriptor (under a "databases"-style main type,
	// non-files subdirectory, .yaml extension) with unparsable YAML.
	writeSrcFile(t, srcDir, "databases/broken.yaml", ": : not valid yaml : :")
	writeSrcFile(t, srcDir, "files/ok.md", "fine content here\nmore lines\n")

	p, _, _ := newPipeline(t, srcDir)

	results, tally, err := p.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if tally.Failed != 1 || tally.OK != 1 {
		t.Errorf("tally = %+v, want Failed=1 OK=1", tally)
	}
}

func TestPipeline_Build_RecordsRunAndDatasourceRun(t *testing.T) {
	srcDir := t.TempDir()
	writeSrcFile(t, srcDir, "files/intro.md", "line one\nline two\nline three\n")

	p, runs, datasourceRuns := newPipeline(t, srcDir)

	if _, _, err := p.Build(context.Background(), nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	runList, err := runs.List("proj-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runList) != 1 {
		t.Fatalf("len(runList) = %d, want 1", len(runList))
	}
	if runList[0].EndedAt == nil {
		t.Errorf("run.EndedAt is nil, want set after Build finishes")
	}

	dsRuns, err := datasourceRuns.ListByRun(runList[0].RunID)
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(dsRuns) != 1 || dsRuns[0].SourceID != "files/intro.md" {
		t.Fatalf("dsRuns = %+v, want one row for files/intro.md", dsRuns)
	}
}

func TestPipeline_BuildLocked_AcquiresAndReleases(t *testing.T) {
	srcDir := t.TempDir()
	writeSrcFile(t, srcDir, "files/intro.md", "line one\nline two\nline three\n")

	p, _, _ := newPipeline(t, srcDir)
	layout := project.NewLayout(t.TempDir())

	if _, _, err := p.BuildLocked(context.Background(), layout, nil); err != nil {
		t.Fatalf("BuildLocked() error = %v", err)
	}

	// The lock must be released: acquiring it again must not block.
	lock := layout.NewBuildLock()
	if err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("re-acquiring lock after BuildLocked() returned: %v", err)
	}
	lock.Release()
}
