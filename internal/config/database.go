// Package config loads the storage backend configuration (which
// database engine and connection details to use) from the process
// environment. Project-level configuration (project id, model
// defaults) lives in internal/project instead.
package config

import (
	"fmt"
	"os"
	"strings"

	"contextengine/internal/db"
)

// StorageConfig holds the backend selection for opening the column
// store.
type StorageConfig struct {
	// Type is the database type (sqlite, postgres).
	Type db.DatabaseType

	// Path is the SQLite database file path (for SQLite).
	Path string

	// DSN is the connection string (for PostgreSQL).
	DSN string
}

// LoadStorageConfigFromEnv loads storage configuration from environment
// variables:
//   - CONTEXTENGINE_DB_TYPE: "sqlite" or "postgres"
//   - CONTEXTENGINE_DB_DSN: connection string for PostgreSQL
//   - CONTEXTENGINE_DB_PATH: database file path for SQLite
//
// Defaults to SQLite with the project-standard output path.
func LoadStorageConfigFromEnv() StorageConfig {
	cfg := StorageConfig{Type: db.DatabaseSQLite}

	if dbType := os.Getenv("CONTEXTENGINE_DB_TYPE"); dbType != "" {
		switch strings.ToLower(dbType) {
		case "postgres", "postgresql":
			cfg.Type = db.DatabasePostgres
		case "sqlite", "sqlite3":
			cfg.Type = db.DatabaseSQLite
		default:
			fmt.Fprintf(os.Stderr, "Warning: Unknown database type %q, using SQLite\n", dbType)
			cfg.Type = db.DatabaseSQLite
		}
	}

	if dsn := os.Getenv("CONTEXTENGINE_DB_DSN"); dsn != "" {
		cfg.DSN = dsn
		if cfg.Type == db.DatabaseSQLite && strings.HasPrefix(dsn, "postgres://") {
			cfg.Type = db.DatabasePostgres
		}
	}

	if path := os.Getenv("CONTEXTENGINE_DB_PATH"); path != "" {
		cfg.Path = path
	}

	return cfg
}

// ToDBConfig converts StorageConfig to db.Config for opening a database.
func (c StorageConfig) ToDBConfig() db.Config {
	switch c.Type {
	case db.DatabasePostgres:
		return db.PostgresConfig(c.DSN)
	default:
		path := c.Path
		if path == "" {
			path = "output/dce.duckdb"
		}
		return db.DefaultConfig(path)
	}
}

// String returns a human-readable description, masking any password in
// a postgres DSN.
func (c StorageConfig) String() string {
	switch c.Type {
	case db.DatabasePostgres:
		dsn := c.DSN
		if strings.Contains(dsn, "@") {
			parts := strings.Split(dsn, "@")
			if len(parts) == 2 {
				userPart := strings.Split(parts[0], ":")
				if len(userPart) >= 2 {
					dsn = userPart[0] + ":***@" + parts[1]
				}
			}
		}
		return fmt.Sprintf("PostgreSQL (%s)", dsn)
	default:
		return fmt.Sprintf("SQLite (%s)", c.Path)
	}
}
