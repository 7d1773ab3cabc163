package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Journal appends Records as newline-delimited JSON to a single file
// at the path given to OpenJournal, per spec.md §4.14. Writes are
// serialized with a mutex so one Journal can be shared by several
// callers in a process.
type Journal struct {
	mu          sync.Mutex
	f           *os.File
	projectID   string
	toolVersion string
}

// OpenJournal opens (creating if necessary) the NDJSON journal file at
// path, appending to any existing content.
func OpenJournal(path, projectID, toolVersion string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	return &Journal{f: f, projectID: projectID, toolVersion: toolVersion}, nil
}

// Append writes e as one journal Record.
func (j *Journal) Append(e Event) error {
	rec := Record{
		ID:              uuid.NewString(),
		ProjectID:       j.projectID,
		ToolVersion:     j.toolVersion,
		Timestamp:       time.Now().UTC(),
		Type:            e.Kind,
		DatasourceID:    e.DatasourceID,
		DatasourceIndex: e.DatasourceIndex,
		DatasourceTotal: e.DatasourceTotal,
		Percent:         e.Percent,
		Status:          e.Status,
		Error:           e.Error,
		Message:         e.Message,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling journal record: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.f.Write(line)
	return err
}

// Callback returns a progress.Callback that appends every event to
// the journal, swallowing write errors (the journal is diagnostic,
// never load-bearing for the build itself) except for logging them to
// stderr, matching the teacher's "best effort, never fail the primary
// operation" idiom for side-channel writes (see BeadsLog's
// audit.Append call sites).
func (j *Journal) Callback() Callback {
	return func(e Event) {
		if err := j.Append(e); err != nil {
			fmt.Fprintf(os.Stderr, "warning: writing progress journal entry: %v\n", err)
		}
	}
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	return j.f.Close()
}
