// Package buildpipeline implements the Build Pipeline (spec.md §4.6):
// discovers sources, dispatches each to its registered plugin, divides
// its context into chunks, hands off to C7 for embedding/persistence,
// and emits typed progress for the whole run.
package buildpipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"contextengine/internal/apperr"
	"contextengine/internal/chunkembed"
	"contextengine/internal/db"
	"contextengine/internal/discovery"
	"contextengine/internal/export"
	"contextengine/internal/plugin"
	"contextengine/internal/pluginlib"
	"contextengine/internal/progress"
	"contextengine/internal/project"
)

// SourceResult is the outcome of processing one discovered descriptor.
type SourceResult struct {
	DatasourceID string
	Status       progress.Status
	Error        error
}

// Pipeline orchestrates one build run over a project's src/ tree.
type Pipeline struct {
	Registry       *plugin.Registry
	Embedding      *chunkembed.Service
	Export         *export.Writer
	Runs           *db.RunRepo
	DatasourceRuns *db.DatasourceRunRepo
	ProjectID      string
	ToolVersion    string
	ProjectDir     string
	SrcDir         string
}

// New builds a Pipeline. export, runs, and datasourceRuns may all be
// nil, in which case the corresponding side effect (writing to
// output/, recording run/datasource_run rows) is skipped.
func New(registry *plugin.Registry, embedding *chunkembed.Service, exportWriter *export.Writer, runs *db.RunRepo, datasourceRuns *db.DatasourceRunRepo, projectID, toolVersion, projectDir, srcDir string) *Pipeline {
	return &Pipeline{
		Registry:       registry,
		Embedding:      embedding,
		Export:         exportWriter,
		Runs:           runs,
		DatasourceRuns: datasourceRuns,
		ProjectID:      projectID,
		ToolVersion:    toolVersion,
		ProjectDir:     projectDir,
		SrcDir:         srcDir,
	}
}

// BuildLocked wraps Build with the project's single-writer build lock
// (§5's "single-threaded cooperative within a build" scheduling model
// depends on no concurrent build touching the same project): it
// acquires layout's BuildLock, runs Build, and releases the lock
// whether or not Build succeeded.
func (p *Pipeline) BuildLocked(ctx context.Context, layout project.Layout, cb progress.Callback) ([]SourceResult, progress.Tally, error) {
	lock := layout.NewBuildLock()
	if err := lock.Acquire(ctx); err != nil {
		return nil, progress.Tally{}, err
	}
	defer lock.Release()

	return p.Build(ctx, cb)
}

// Build runs the pipeline described by spec.md §4.6, emitting progress
// through cb (nil is a valid no-op callback) and returning one
// SourceResult per discovered descriptor plus the overall tally.
func (p *Pipeline) Build(ctx context.Context, cb progress.Callback) ([]SourceResult, progress.Tally, error) {
	var tally progress.Tally

	descriptors, err := discovery.Discover(p.SrcDir)
	if err != nil {
		return nil, tally, fmt.Errorf("discovering sources: %w", err)
	}

	if len(descriptors) == 0 {
		progress.Emit(cb, progress.Event{Kind: progress.TaskStarted, DatasourceTotal: 0})
		progress.Emit(cb, progress.Event{Kind: progress.TaskFinished})
		return nil, tally, nil
	}

	if p.Export != nil {
		if err := p.Export.Reset(); err != nil {
			return nil, tally, fmt.Errorf("resetting aggregate export: %w", err)
		}
	}

	var runID int64
	if p.Runs != nil {
		runName := fmt.Sprintf("run-%s", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
		run, err := p.Runs.Create(runName, p.ProjectID, p.ToolVersion)
		if err != nil {
			return nil, tally, fmt.Errorf("creating run: %w", err)
		}
		runID = run.RunID
		defer p.Runs.Finish(runID)
	}

	progress.Emit(cb, progress.Event{Kind: progress.TaskStarted, DatasourceTotal: len(descriptors)})

	results := make([]SourceResult, 0, len(descriptors))

	for i, d := range descriptors {
		progress.Emit(cb, progress.Event{
			Kind:            progress.DatasourceStarted,
			DatasourceID:    d.RelPath,
			DatasourceIndex: i,
			DatasourceTotal: len(descriptors),
		})

		status, procErr := p.processOne(ctx, runID, d)
		tally.Record(status)
		results = append(results, SourceResult{DatasourceID: d.RelPath, Status: status, Error: procErr})

		event := progress.Event{
			Kind:            progress.DatasourceFinished,
			DatasourceID:    d.RelPath,
			DatasourceIndex: i,
			DatasourceTotal: len(descriptors),
			Status:          status,
		}
		if procErr != nil {
			event.Error = procErr.Error()
		}
		progress.Emit(cb, event)
	}

	progress.Emit(cb, progress.Event{
		Kind:    progress.TaskFinished,
		Message: fmt.Sprintf("ok=%d failed=%d skipped=%d", tally.OK, tally.Failed, tally.Skipped),
	})

	return results, tally, nil
}

// processOne prepares, dispatches, chunks, and embeds one descriptor.
// Per spec.md §4.6's "per-source isolation" invariant, any failure
// here is captured as a status rather than propagated, so one bad
// source never aborts the run.
func (p *Pipeline) processOne(ctx context.Context, runID int64, d discovery.Descriptor) (progress.Status, error) {
	prepared, err := discovery.Prepare(d, p.ProjectDir, p.SrcDir)
	if err != nil {
		return progress.StatusFailed, err
	}

	var fullType, datasourceID string
	var chunks []pluginlib.EmbeddableChunk
	var contextYAML string

	switch {
	case prepared.File != nil:
		fullType = prepared.File.DatasourceType
		datasourceID = prepared.File.DatasourceID

		rawPlugin, ok := p.Registry.Lookup(fullType)
		if !ok {
			return progress.StatusSkipped, nil
		}
		filePlugin, ok := rawPlugin.(pluginlib.BuildFilePlugin)
		if !ok {
			return progress.StatusSkipped, nil
		}

		if err := p.recordDispatch(runID, rawPlugin.ID(), fullType, datasourceID); err != nil {
			return progress.StatusFailed, err
		}

		f, err := os.Open(prepared.File.Path)
		if err != nil {
			return progress.StatusFailed, fmt.Errorf("opening %s: %w", prepared.File.Path, err)
		}
		defer f.Close()

		built, err := buildFileContext(ctx, filePlugin, fullType, prepared.File.DatasourceName, f)
		if err != nil {
			return progress.StatusFailed, err
		}

		chunks, err = filePlugin.DivideContextIntoChunks(built)
		if err != nil {
			return progress.StatusFailed, err
		}

		contextYAML, err = yamlOf(built)
		if err != nil {
			return progress.StatusFailed, err
		}

	case prepared.Config != nil:
		fullType = prepared.Config.DatasourceType
		datasourceID = prepared.Config.DatasourceID

		rawPlugin, ok := p.Registry.Lookup(fullType)
		if !ok {
			return progress.StatusSkipped, nil
		}
		dsPlugin, ok := rawPlugin.(pluginlib.BuildDatasourcePlugin)
		if !ok {
			return progress.StatusSkipped, nil
		}

		if err := p.recordDispatch(runID, rawPlugin.ID(), fullType, datasourceID); err != nil {
			return progress.StatusFailed, err
		}

		validatedConfig, err := decodeConfig(dsPlugin, prepared.Config.Raw)
		if err != nil {
			return progress.StatusFailed, err
		}
		if err := p.Registry.ValidateConfig(dsPlugin, validatedConfig); err != nil {
			return progress.StatusFailed, err
		}

		built, err := dsPlugin.BuildContext(ctx, fullType, prepared.Config.DatasourceName, validatedConfig)
		if err != nil {
			return progress.StatusFailed, err
		}

		chunks, err = dsPlugin.DivideContextIntoChunks(built)
		if err != nil {
			return progress.StatusFailed, err
		}

		contextYAML, err = yamlOf(built)
		if err != nil {
			return progress.StatusFailed, err
		}

	default:
		return progress.StatusFailed, fmt.Errorf("%w: prepared descriptor has neither File nor Config", apperr.ErrValidation)
	}

	if len(chunks) > 0 {
		if err := p.Embedding.EmbedAndPersist(ctx, fullType, datasourceID, contextYAML, chunks); err != nil {
			return progress.StatusFailed, err
		}
	}

	if p.Export != nil {
		if err := p.Export.WriteDatasource(datasourceID, contextYAML); err != nil {
			return progress.StatusFailed, err
		}
	}

	return progress.StatusOK, nil
}

// recordDispatch creates a datasource_run row the moment a source is
// successfully dispatched to its plugin (spec.md §3's "created per
// successfully dispatched source"), regardless of whether the build
// itself later succeeds. storage_directory is the source_id's parent
// directory under output/, matching where Export.Writer will place
// its exported YAML.
func (p *Pipeline) recordDispatch(runID int64, pluginID, fullType, datasourceID string) error {
	if p.DatasourceRuns == nil {
		return nil
	}
	storageDirectory := path.Dir(datasourceID)
	_, err := p.DatasourceRuns.Create(runID, pluginID, fullType, datasourceID, storageDirectory)
	return err
}

func buildFileContext(ctx context.Context, p pluginlib.BuildFilePlugin, fullType, name string, content io.Reader) (any, error) {
	return p.BuildFileContext(ctx, fullType, name, content)
}

// decodeConfig maps the raw YAML-decoded document onto the plugin's
// declared config shape by round-tripping through YAML, since the
// plugin boundary already treats config as YAML-serialisable
// (pluginlib's EmbeddableChunk.Content contract) and gopkg.in/yaml.v3
// is the library already wired for every other YAML boundary in this
// codebase (C5, C12).
func decodeConfig(p pluginlib.BuildDatasourcePlugin, raw map[string]any) (any, error) {
	schema := p.ConfigSchema()

	out, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: re-marshaling config: %v", apperr.ErrValidation, err)
	}
	if err := yaml.Unmarshal(out, schema); err != nil {
		return nil, fmt.Errorf("%w: decoding config for plugin %q: %v", apperr.ErrValidation, p.ID(), err)
	}
	return schema, nil
}

func yamlOf(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
