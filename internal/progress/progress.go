// Package progress implements typed build progress events and the
// append-only event journal (spec.md §4.14).
package progress

import "time"

// Kind is the type of a ProgressEvent.
type Kind string

const (
	TaskStarted        Kind = "TASK_STARTED"
	TaskFinished       Kind = "TASK_FINISHED"
	DatasourceStarted  Kind = "DATASOURCE_STARTED"
	DatasourceFinished Kind = "DATASOURCE_FINISHED"
	DatasourceProgress Kind = "DATASOURCE_PROGRESS"
)

// Status is the terminal outcome recorded on a DATASOURCE_FINISHED
// event.
type Status string

const (
	StatusOK      Status = "OK"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Event is one progress notification emitted during a build.
type Event struct {
	Kind Kind

	DatasourceID    string
	DatasourceIndex int
	DatasourceTotal int

	// Percent is clamped to [0, 100] by NewDatasourceProgress.
	Percent int

	Status  Status
	Error   string
	Message string
}

// Callback receives Events during a build. nil is a valid, no-op
// callback.
type Callback func(Event)

// Emit calls cb if non-nil, so callers never need a nil check.
func Emit(cb Callback, e Event) {
	if cb != nil {
		cb(e)
	}
}

// NewDatasourceProgress builds a DATASOURCE_PROGRESS event with
// percent clamped to [0, 100], per spec.md §4.14.
func NewDatasourceProgress(datasourceID string, percent int, message string) Event {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return Event{Kind: DatasourceProgress, DatasourceID: datasourceID, Percent: percent, Message: message}
}

// Tally accumulates DATASOURCE_FINISHED outcomes across a build.
type Tally struct {
	OK      int
	Failed  int
	Skipped int
}

// Record updates the tally for one datasource's terminal status.
func (t *Tally) Record(status Status) {
	switch status {
	case StatusOK:
		t.OK++
	case StatusFailed:
		t.Failed++
	case StatusSkipped:
		t.Skipped++
	}
}

// Record is one append-only journal entry (spec.md §4.14's literal
// shape: `{id, project_id, tool_version, timestamp, type, ...}`).
type Record struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	ToolVersion string    `json:"tool_version"`
	Timestamp   time.Time `json:"timestamp"`
	Type        Kind      `json:"type"`

	DatasourceID    string `json:"datasource_id,omitempty"`
	DatasourceIndex int    `json:"datasource_index,omitempty"`
	DatasourceTotal int    `json:"datasource_total,omitempty"`
	Percent         int    `json:"percent,omitempty"`
	Status          Status `json:"status,omitempty"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message,omitempty"`
}
