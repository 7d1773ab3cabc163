package db

import (
	"database/sql"
	"fmt"
	"time"

	"contextengine/internal/apperr"
)

// Execer is the subset of query/exec methods shared by DB and Tx,
// letting repositories run either inside or outside a transaction.
type Execer interface {
	Query(query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	Exec(query string, args ...any) (Result, error)
}

// Run is one invocation of the build pipeline over all discovered
// sources.
type Run struct {
	RunID       int64
	RunName     string
	ProjectID   string
	ToolVersion string
	StartedAt   time.Time
	EndedAt     *time.Time
}

// RunRepo persists Run rows.
type RunRepo struct {
	conn     Execer
	dialect  Dialect
	dialectT DatabaseType
}

// NewRunRepo returns a repository bound to conn, using placeholder
// syntax for dialectType.
func NewRunRepo(conn Execer, dialectType DatabaseType) *RunRepo {
	return &RunRepo{conn: conn, dialect: GetDialect(dialectType), dialectT: dialectType}
}

// Create inserts a new run row. Returns apperr.ErrIntegrity if run_name
// already exists for projectID (run-name uniqueness per project).
func (r *RunRepo) Create(runName, projectID, toolVersion string) (*Run, error) {
	insertSQL := fmt.Sprintf(
		"INSERT INTO run (run_name, project_id, tool_version) VALUES (%s)",
		r.dialect.Placeholders(3),
	)
	if r.dialect.SupportsReturning() {
		insertSQL += " RETURNING run_id, started_at"
	}

	run := &Run{RunName: runName, ProjectID: projectID, ToolVersion: toolVersion}

	if r.dialect.SupportsReturning() {
		row := r.conn.QueryRow(insertSQL, runName, projectID, toolVersion)
		if err := row.Scan(&run.RunID, &run.StartedAt); err != nil {
			return nil, fmt.Errorf("%w: creating run %q: %v", apperr.ErrIntegrity, runName, err)
		}
		return run, nil
	}

	res, err := r.conn.Exec(insertSQL, runName, projectID, toolVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: creating run %q: %v", apperr.ErrIntegrity, runName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted run id: %w", err)
	}
	run.RunID = id
	run.StartedAt = time.Now().UTC()
	return run, nil
}

// Get returns the run with the given id, or (nil, nil) if absent.
func (r *RunRepo) Get(runID int64) (*Run, error) {
	querySQL := fmt.Sprintf(
		"SELECT run_id, run_name, project_id, tool_version, started_at, ended_at FROM run WHERE run_id = %s",
		r.dialect.Placeholder(1),
	)
	row := r.conn.QueryRow(querySQL, runID)
	run := &Run{}
	var endedAt sql.NullTime
	if err := row.Scan(&run.RunID, &run.RunName, &run.ProjectID, &run.ToolVersion, &run.StartedAt, &endedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting run %d: %w", runID, err)
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	return run, nil
}

// Finish stamps ended_at on the run, marking it terminal.
func (r *RunRepo) Finish(runID int64) error {
	updateSQL := fmt.Sprintf(
		"UPDATE run SET ended_at = %s WHERE run_id = %s",
		nowExpr(r.dialectT), r.dialect.Placeholder(1),
	)
	_, err := r.conn.Exec(updateSQL, runID)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", runID, err)
	}
	return nil
}

// List returns all runs for projectID, most recent first.
func (r *RunRepo) List(projectID string) ([]Run, error) {
	querySQL := fmt.Sprintf(
		"SELECT run_id, run_name, project_id, tool_version, started_at, ended_at FROM run WHERE project_id = %s ORDER BY run_id DESC",
		r.dialect.Placeholder(1),
	)
	rows, err := r.conn.Query(querySQL, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run := Run{}
		var endedAt sql.NullTime
		if err := rows.Scan(&run.RunID, &run.RunName, &run.ProjectID, &run.ToolVersion, &run.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nowExpr(t DatabaseType) string {
	if t == DatabasePostgres {
		return "now()"
	}
	return "CURRENT_TIMESTAMP"
}
