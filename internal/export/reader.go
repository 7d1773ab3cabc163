package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"contextengine/internal/chunkembed"
	"contextengine/internal/discovery"
	"contextengine/internal/plugin"
	"contextengine/internal/pluginlib"
)

// Reader re-embeds previously exported context without rebuilding it
// from the original source (spec.md §4.12's "read them back on
// retrieval"). It still walks src/ to recover each descriptor's
// full_type/datasource_id/plugin binding (cheap and local — no network
// calls), but loads the built context from the exported YAML under
// output/ instead of re-running BuildContext/BuildFileContext.
type Reader struct {
	Registry   *plugin.Registry
	Embedding  *chunkembed.Service
	ProjectDir string
	SrcDir     string
	OutputDir  string
}

// NewReader returns a Reader.
func NewReader(registry *plugin.Registry, embedding *chunkembed.Service, projectDir, srcDir, outputDir string) *Reader {
	return &Reader{Registry: registry, Embedding: embedding, ProjectDir: projectDir, SrcDir: srcDir, OutputDir: outputDir}
}

// ReembedAll re-chunks and re-embeds every previously exported
// datasource. Datasources with no exported YAML, no registered
// plugin, or a plugin that does not implement ContextUnmarshaler are
// skipped rather than failing the whole pass. Any other error
// (reading, unmarshalling, chunking or embedding one datasource) stops
// the pass and is returned with the datasources re-embedded so far.
func (r *Reader) ReembedAll(ctx context.Context) ([]string, error) {
	descriptors, err := discovery.Discover(r.SrcDir)
	if err != nil {
		return nil, fmt.Errorf("discovering sources: %w", err)
	}

	var reembedded []string
	for _, d := range descriptors {
		ok, err := r.reembedOne(ctx, d)
		if err != nil {
			return reembedded, fmt.Errorf("re-embedding %s: %w", d.RelPath, err)
		}
		if ok {
			reembedded = append(reembedded, d.RelPath)
		}
	}
	return reembedded, nil
}

func (r *Reader) reembedOne(ctx context.Context, d discovery.Descriptor) (bool, error) {
	prepared, err := discovery.Prepare(d, r.ProjectDir, r.SrcDir)
	if err != nil {
		return false, nil
	}

	var fullType, datasourceID string
	switch {
	case prepared.File != nil:
		fullType, datasourceID = prepared.File.DatasourceType, prepared.File.DatasourceID
	case prepared.Config != nil:
		fullType, datasourceID = prepared.Config.DatasourceType, prepared.Config.DatasourceID
	}

	rawPlugin, ok := r.Registry.Lookup(fullType)
	if !ok {
		return false, nil
	}
	unmarshaler, ok := rawPlugin.(pluginlib.ContextUnmarshaler)
	if !ok {
		return false, nil
	}

	exportedPath := filepath.Join(r.OutputDir, filepath.FromSlash(datasourceID))
	data, err := os.ReadFile(exportedPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading exported context %s: %w", exportedPath, err)
	}

	built, err := unmarshaler.UnmarshalContext(data)
	if err != nil {
		return false, err
	}

	chunker, ok := rawPlugin.(interface {
		DivideContextIntoChunks(any) ([]pluginlib.EmbeddableChunk, error)
	})
	if !ok {
		return false, nil
	}
	chunks, err := chunker.DivideContextIntoChunks(built)
	if err != nil {
		return false, err
	}
	if len(chunks) == 0 {
		return false, nil
	}

	contextYAML := string(data)
	if err := r.Embedding.EmbedAndPersist(ctx, fullType, datasourceID, contextYAML, chunks); err != nil {
		return false, err
	}
	return true, nil
}
