// Package pluginlib declares the capability interfaces every datasource
// plugin implements, and the value types that cross the plugin
// boundary (spec.md §4.4). It has no dependency on the rest of the
// engine so plugins can be built against it in isolation.
package pluginlib

import (
	"context"
	"io"
)

// EmbeddableChunk is one unit of text a plugin emits for embedding.
// Content is YAML-serialisable and becomes the chunk's display value.
type EmbeddableChunk struct {
	EmbeddableText string
	Content        any
}

// ResultSet is the tabular result of Plugin.RunSQL.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Plugin is the identity every datasource plugin shares, regardless of
// whether it handles config-based or file-based sources.
type Plugin interface {
	ID() string
	Name() string
	// SupportedTypes returns the full_type keys this plugin routes.
	SupportedTypes() []string
}

// BuildDatasourcePlugin handles config-declared datasources (§4.5
// CONFIG kind): databases, dbt projects, and similar.
type BuildDatasourcePlugin interface {
	Plugin

	// ConfigSchema returns a pointer to a zero-value struct describing
	// the expected config shape; the dispatcher validates raw config
	// against it (via struct tags) before calling BuildContext.
	ConfigSchema() any

	// BuildContext produces the structured context for a prepared,
	// schema-validated config.
	BuildContext(ctx context.Context, fullType, name string, validatedConfig any) (any, error)

	// DivideContextIntoChunks splits a built context into embeddable
	// chunks. An empty result is valid (no embedding work follows).
	DivideContextIntoChunks(built any) ([]EmbeddableChunk, error)
}

// ConnectionChecker is optionally implemented by a BuildDatasourcePlugin
// to validate connectivity independent of a full build.
type ConnectionChecker interface {
	CheckConnection(ctx context.Context, validatedConfig any) error
}

// SQLRunner is optionally implemented by a BuildDatasourcePlugin that
// can execute ad hoc SQL against its backing store. Callers must gate
// calls through internal/sqlsafety before invoking RunSQL with
// readOnly=true from an untrusted caller.
type SQLRunner interface {
	RunSQL(ctx context.Context, validatedConfig any, sql string, params []any, readOnly bool) (ResultSet, error)
}

// ContextUnmarshaler is optionally implemented by a plugin that can
// reconstruct its typed built-context value from previously exported
// YAML (see internal/export), so a read-back re-embed (§4.12) can
// re-chunk without rebuilding the context from the original source.
type ContextUnmarshaler interface {
	UnmarshalContext(data []byte) (any, error)
}

// BuildFilePlugin handles file datasources (§4.5 FILE kind): free-form
// text, PDFs, and similar.
type BuildFilePlugin interface {
	Plugin

	// BuildFileContext produces the structured context for one file.
	BuildFileContext(ctx context.Context, fullType, fileName string, content io.Reader) (any, error)

	// DivideContextIntoChunks splits a built context into embeddable
	// chunks, the same contract as BuildDatasourcePlugin's method.
	DivideContextIntoChunks(built any) ([]EmbeddableChunk, error)
}
