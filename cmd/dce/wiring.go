package main

import (
	"fmt"

	"contextengine/internal/buildpipeline"
	"contextengine/internal/chunkembed"
	"contextengine/internal/config"
	"contextengine/internal/db"
	"contextengine/internal/embedding"
	"contextengine/internal/export"
	"contextengine/internal/persistence"
	"contextengine/internal/plugin"
	"contextengine/internal/plugin/sqldb"
	"contextengine/internal/plugin/textfile"
	"contextengine/internal/pluginlib"
	"contextengine/internal/project"
	"contextengine/internal/provider"
	"contextengine/internal/retrieval"
	"contextengine/internal/shard"
)

// engine bundles the wiring a CLI command needs against one project,
// holding the underlying DB connection so callers can defer Close.
type engine struct {
	Layout   project.Layout
	Config   *project.Config
	Conn     db.DB
	Registry *plugin.Registry
	Embedder provider.EmbeddingProvider
	Resolver *shard.Resolver
	Writer   *persistence.Writer
	Vectors  db.VectorDB
	Chunks   *db.ChunkRepo
	Runs     *db.RunRepo
	DSRuns   *db.DatasourceRunRepo
}

func (e *engine) Close() error {
	if e.Conn == nil {
		return nil
	}
	return e.Conn.Close()
}

// builtinPlugins lists every datasource plugin shipped with the
// engine itself, in registration order.
func builtinPlugins() []pluginlib.Plugin {
	return []pluginlib.Plugin{textfile.New(), sqldb.New()}
}

// openEngine loads an existing project's config, opens its database,
// and builds the shared registry/embedder/persistence wiring every
// subcommand besides init needs.
func openEngine(dir string) (*engine, error) {
	layout := project.NewLayout(dir)
	if !layout.Exists() {
		return nil, fmt.Errorf("no project found at %s: run 'dce init' first", dir)
	}
	cfg, err := project.LoadConfig(layout.AnyConfigPath())
	if err != nil {
		return nil, err
	}

	storageCfg := config.LoadStorageConfigFromEnv()
	if storageCfg.Path == "" {
		storageCfg.Path = layout.DatabasePath()
	}
	dialect := storageCfg.Type

	conn, err := db.OpenAndMigrate(storageCfg.ToDBConfig())
	if err != nil {
		return nil, fmt.Errorf("opening project database: %w", err)
	}

	registry := plugin.NewRegistry()
	if err := registry.RegisterAll(builtinPlugins()...); err != nil {
		conn.Close()
		return nil, err
	}

	embedder := buildEmbedder(cfg)

	vectors, err := newVectorDB(conn, dialect, embedder.Dim())
	if err != nil {
		conn.Close()
		return nil, err
	}
	resolver := shard.NewResolver(conn, dialect, vectors)
	writer := persistence.NewWriter(conn, dialect, vectors)
	chunks := db.NewChunkRepo(conn, dialect)
	runs := db.NewRunRepo(conn, dialect)
	dsRuns := db.NewDatasourceRunRepo(conn, dialect)

	return &engine{
		Layout:   layout,
		Config:   cfg,
		Conn:     conn,
		Registry: registry,
		Embedder: embedder,
		Resolver: resolver,
		Writer:   writer,
		Vectors:  vectors,
		Chunks:   chunks,
		Runs:     runs,
		DSRuns:   dsRuns,
	}, nil
}

// newVectorDB picks the VectorDB implementation matching dialect: the
// SQLite-backed index for an embedded project, or pgvector for a
// project pointed at PostgreSQL via CONTEXTENGINE_DB_TYPE/DSN.
func newVectorDB(conn db.DB, dialect db.DatabaseType, dim int) (db.VectorDB, error) {
	if dialect == db.DatabasePostgres {
		return db.NewPgVectorDB(conn, dim, db.DistanceCosine)
	}
	return db.NewSQLiteVectorDB(conn, db.DistanceCosine), nil
}

// buildEmbedder constructs an Ollama EmbeddingProvider at the local
// daemon's default address, using cfg's embedding model or, when the
// project hasn't recorded one yet (e.g. right after init, before the
// first build), the default embedding model. cfg.EmbedderName is not
// consulted here; it only names the shard (see embedderName).
func buildEmbedder(cfg *project.Config) provider.EmbeddingProvider {
	model := cfg.EmbeddingModelID
	if model == "" {
		model = embedding.DefaultModel
	}
	return provider.NewOllamaEmbeddingProvider(embedding.DefaultOllamaURL, model, embedding.DefaultDimensions)
}

func (e *engine) embedderName() string {
	if e.Config.EmbedderName != "" {
		return e.Config.EmbedderName
	}
	return "ollama"
}

func (e *engine) newBuildPipeline(exportWriter *export.Writer) *buildpipeline.Pipeline {
	svc := chunkembed.New(e.embedderName(), e.Embedder, nil, e.Resolver, e.Writer, chunkembed.EmbeddableTextOnly)
	return buildpipeline.New(e.Registry, svc, exportWriter, e.Runs, e.DSRuns, e.Config.ProjectID, project.ToolVersion, e.Layout.Dir, e.Layout.SrcDir())
}

func (e *engine) newRetrievalPipeline() *retrieval.Pipeline {
	return retrieval.New(e.embedderName(), e.Embedder, nil, e.Resolver, e.Vectors, e.Chunks)
}
