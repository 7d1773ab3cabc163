// Package sqldb implements the builtin BuildDatasourcePlugin for
// relational database sources (spec.md §4.4/§4.5): connects via DSN,
// introspects catalog -> schema -> table structure filtered through an
// internal/scope.Matcher, and exposes internal/sqlsafety-gated ad hoc
// SQL execution.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gopkg.in/yaml.v3"

	"contextengine/internal/pluginlib"
	"contextengine/internal/scope"
	"contextengine/internal/sqlsafety"
)

// Config is the YAML-decoded config for a databases/postgres source.
type Config struct {
	Type              string   `yaml:"type" validate:"required,eq=postgres"`
	DSN               string   `yaml:"dsn" validate:"required"`
	IncludeSchemas    []string `yaml:"include_schemas"`
	ExcludeSchemas    []string `yaml:"exclude_schemas"`
	ExceptSchemas     []string `yaml:"except_schemas"`
	IgnoredSchemas    []string `yaml:"ignored_schemas"`
}

// TableInfo is one introspected table within the scope.
type TableInfo struct {
	Schema  string   `yaml:"schema"`
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
}

// Context is the structured output of BuildContext: the scoped set of
// tables found in the database.
type Context struct {
	Name   string      `yaml:"name"`
	Tables []TableInfo `yaml:"tables"`
}

// Plugin handles PostgreSQL datasources.
type Plugin struct{}

// New returns the builtin PostgreSQL plugin.
func New() *Plugin { return &Plugin{} }

var _ pluginlib.BuildDatasourcePlugin = (*Plugin)(nil)
var _ pluginlib.ConnectionChecker = (*Plugin)(nil)
var _ pluginlib.SQLRunner = (*Plugin)(nil)
var _ pluginlib.ContextUnmarshaler = (*Plugin)(nil)

func (p *Plugin) ID() string   { return "builtin.sqldb.postgres" }
func (p *Plugin) Name() string { return "PostgreSQL" }

func (p *Plugin) SupportedTypes() []string { return []string{"databases/postgres"} }

func (p *Plugin) ConfigSchema() any { return &Config{} }

func (p *Plugin) CheckConnection(ctx context.Context, validatedConfig any) error {
	cfg := validatedConfig.(*Config)
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("opening connection: %w", err)
	}
	defer conn.Close()
	return conn.PingContext(ctx)
}

// BuildContext introspects information_schema for tables within the
// configured scope.
func (p *Plugin) BuildContext(ctx context.Context, fullType, name string, validatedConfig any) (any, error) {
	cfg := validatedConfig.(*Config)

	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer conn.Close()

	matcher := scope.Matcher{
		Include: cfg.IncludeSchemas,
		Exclude: cfg.ExcludeSchemas,
		Except:  cfg.ExceptSchemas,
		Ignored: cfg.IgnoredSchemas,
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT table_schema, table_name, column_name
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name, ordinal_position
	`)
	if err != nil {
		return nil, fmt.Errorf("introspecting schema: %w", err)
	}
	defer rows.Close()

	tablesBySchema := make(map[string]map[string][]string)
	var tableOrder []string
	tableKey := func(schema, table string) string { return schema + "." + table }
	seenTable := make(map[string]bool)

	for rows.Next() {
		var schema, table, column string
		if err := rows.Scan(&schema, &table, &column); err != nil {
			return nil, fmt.Errorf("scanning introspection row: %w", err)
		}
		if !matcher.AllowsSchema(schema) {
			continue
		}
		if _, ok := tablesBySchema[schema]; !ok {
			tablesBySchema[schema] = make(map[string][]string)
		}
		key := tableKey(schema, table)
		if !seenTable[key] {
			seenTable[key] = true
			tableOrder = append(tableOrder, key)
		}
		tablesBySchema[schema][table] = append(tablesBySchema[schema][table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]TableInfo, 0, len(tableOrder))
	for _, key := range tableOrder {
		for schema, byTable := range tablesBySchema {
			for table, cols := range byTable {
				if tableKey(schema, table) == key {
					tables = append(tables, TableInfo{Schema: schema, Table: table, Columns: cols})
				}
			}
		}
	}

	return &Context{Name: name, Tables: tables}, nil
}

// UnmarshalContext reconstructs a Context from a previously exported
// YAML document.
func (p *Plugin) UnmarshalContext(data []byte) (any, error) {
	var ctx Context
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("sqldb plugin: unmarshaling context: %w", err)
	}
	return &ctx, nil
}

// DivideContextIntoChunks emits one chunk per table: its qualified name
// and column list.
func (p *Plugin) DivideContextIntoChunks(built any) ([]pluginlib.EmbeddableChunk, error) {
	ctx, ok := built.(*Context)
	if !ok {
		return nil, fmt.Errorf("sqldb plugin: unexpected context type %T", built)
	}
	chunks := make([]pluginlib.EmbeddableChunk, 0, len(ctx.Tables))
	for _, t := range ctx.Tables {
		text := fmt.Sprintf("table %s.%s (%v)", t.Schema, t.Table, t.Columns)
		chunks = append(chunks, pluginlib.EmbeddableChunk{EmbeddableText: text, Content: t})
	}
	return chunks, nil
}

// RunSQL executes ad hoc SQL, rejecting anything that is not read-only
// when readOnly is requested by the caller.
func (p *Plugin) RunSQL(ctx context.Context, validatedConfig any, query string, params []any, readOnly bool) (pluginlib.ResultSet, error) {
	if readOnly {
		class := sqlsafety.Classify(query)
		if class.Status != sqlsafety.ReadOnly {
			return pluginlib.ResultSet{}, fmt.Errorf("rejecting non-read-only SQL: %s", class.Reason)
		}
	}

	cfg := validatedConfig.(*Config)
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return pluginlib.ResultSet{}, fmt.Errorf("opening connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, params...)
	if err != nil {
		return pluginlib.ResultSet{}, fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return pluginlib.ResultSet{}, err
	}

	var result pluginlib.ResultSet
	result.Columns = cols
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return pluginlib.ResultSet{}, fmt.Errorf("scanning row: %w", err)
		}
		result.Rows = append(result.Rows, vals)
	}
	return result, rows.Err()
}
