// Package export writes per-datasource context YAML and the
// aggregated all_results.yaml file, and reads them back for a
// re-embed without rebuilding from the original source (spec.md
// §4.12, §6).
package export

import (
	"fmt"
	"os"
	"path/filepath"
)

const aggregateFileName = "all_results.yaml"

// Writer persists built context YAML under a project's output
// directory.
type Writer struct {
	outputDir string
	agg       *os.File
}

// NewWriter returns a Writer rooted at outputDir. outputDir is created
// if missing.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// Reset deletes any previous all_results.yaml, per spec.md §4.6 step 3
// ("delete any previous all_results.yaml") run at the start of a
// build, before any per-datasource YAML is written for the new run.
func (w *Writer) Reset() error {
	path := filepath.Join(w.outputDir, aggregateFileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing previous %s: %w", aggregateFileName, err)
	}
	return nil
}

// WriteDatasource writes yamlContent to
// <output_dir>/<datasourceID>, creating parent directories, and
// appends "# ===== <datasourceID> =====\n<yaml>\n" to
// <output_dir>/all_results.yaml.
func (w *Writer) WriteDatasource(datasourceID, yamlContent string) error {
	path := filepath.Join(w.outputDir, filepath.FromSlash(datasourceID))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory for %s: %w", datasourceID, err)
	}
	if err := os.WriteFile(path, []byte(yamlContent+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return w.appendAggregate(datasourceID, yamlContent)
}

func (w *Writer) appendAggregate(datasourceID, yamlContent string) error {
	if w.agg == nil {
		f, err := os.OpenFile(filepath.Join(w.outputDir, aggregateFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening %s: %w", aggregateFileName, err)
		}
		w.agg = f
	}

	header := fmt.Sprintf("# ===== %s =====\n%s\n", datasourceID, yamlContent)
	_, err := w.agg.WriteString(header)
	return err
}

// Close releases the held aggregate file handle, if any.
func (w *Writer) Close() error {
	if w.agg == nil {
		return nil
	}
	return w.agg.Close()
}
