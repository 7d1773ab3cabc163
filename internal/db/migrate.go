package db

import (
	"crypto/md5"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"contextengine/internal/apperr"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Migration is one versioned schema change, named V<NN>__<name>.sql.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

var migrationFilePattern = regexp.MustCompile(`^V(\d+)__(.+)\.sql$`)

// LoadMigrations reads the embedded *.sql files for the given dialect
// name, ordered by version ascending.
func LoadMigrations(dialectName string) ([]Migration, error) {
	fsys, dir := sqliteMigrations, "migrations/sqlite"
	if dialectName == string(DatabasePostgres) {
		fsys, dir = postgresMigrations, "migrations/postgres"
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("parsing migration version from %s: %w", e.Name(), err)
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", e.Name(), err)
		}
		sum := md5.Sum(content)
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     strings.ReplaceAll(m[2], "_", " "),
			Filename: e.Name(),
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

type appliedMigration struct {
	version  int
	checksum string
}

// Migrate brings the schema at conn up to date against the embedded
// migration set for dialectName. It creates migration_history if
// missing, rejects a pending version that was already applied under a
// different checksum, and applies each pending migration in its own
// transaction.
func Migrate(conn DB, dialectName string) error {
	if err := ensureMigrationHistory(conn, dialectName); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMigration, err)
	}

	migrations, err := LoadMigrations(dialectName)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMigration, err)
	}

	applied, err := loadAppliedMigrations(conn)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMigration, err)
	}

	for _, m := range migrations {
		if prior, ok := applied[m.Version]; ok {
			if prior.checksum != m.Checksum {
				return fmt.Errorf("%w: migration V%02d checksum mismatch (recorded %s, file %s)",
					apperr.ErrMigration, m.Version, prior.checksum, m.Checksum)
			}
			continue // already applied, unchanged
		}
		if err := applyMigration(conn, m, dialectName); err != nil {
			return fmt.Errorf("%w: applying V%02d__%s: %v", apperr.ErrMigration, m.Version, m.Name, err)
		}
	}
	return nil
}

func ensureMigrationHistory(conn DB, dialectName string) error {
	var createSQL string
	if dialectName == string(DatabasePostgres) {
		createSQL = `CREATE TABLE IF NOT EXISTS migration_history (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	} else {
		createSQL = `CREATE TABLE IF NOT EXISTS migration_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}
	_, err := conn.Exec(createSQL)
	return err
}

func loadAppliedMigrations(conn DB) (map[int]appliedMigration, error) {
	rows, err := conn.Query("SELECT version, checksum FROM migration_history")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]appliedMigration)
	for rows.Next() {
		var a appliedMigration
		if err := rows.Scan(&a.version, &a.checksum); err != nil {
			return nil, err
		}
		applied[a.version] = a
	}
	return applied, rows.Err()
}

func applyMigration(conn DB, m Migration, dialectName string) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration statement: %w", err)
		}
	}

	ph := GetDialect(DatabaseType(dialectName))
	insertSQL := fmt.Sprintf(
		"INSERT INTO migration_history (name, version, checksum) VALUES (%s)",
		ph.Placeholders(3),
	)
	if _, err := tx.Exec(insertSQL, m.Name, m.Version, m.Checksum); err != nil {
		return fmt.Errorf("recording migration history: %w", err)
	}

	return tx.Commit()
}

// splitStatements breaks a migration file into individual statements on
// every ";", wherever it appears. Migration SQL is authored one statement per
// line-group and never contains a semicolon inside a string literal.
func splitStatements(sql string) []string {
	var out []string
	for _, raw := range strings.Split(sql, ";") {
		s := strings.TrimSpace(raw)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
