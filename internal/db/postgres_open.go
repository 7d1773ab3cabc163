package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver as "pgx"
)

// openPostgres opens a PostgreSQL connection pool via pgx's stdlib
// adapter and applies the pool settings from cfg.
func openPostgres(cfg Config) (DB, error) {
	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	wrapped := WrapSQL(sqlDB)

	dialect := GetDialect(DatabasePostgres)
	for _, stmt := range dialect.InitStatements() {
		if _, err := wrapped.Exec(stmt); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("running postgres init statement %q: %w", stmt, err)
		}
	}

	return wrapped, nil
}
