// Package apperr defines the sentinel error kinds shared across the
// engine so callers can use errors.Is instead of string matching.
package apperr

import "errors"

var (
	// ErrIntegrity signals a constraint violation in the storage layer.
	ErrIntegrity = errors.New("integrity error")

	// ErrMigration signals a migration apply or checksum conflict.
	ErrMigration = errors.New("migration error")

	// ErrValidation signals bad input: schema mismatch, dimension
	// mismatch, an invalid shard name, and similar caller mistakes.
	ErrValidation = errors.New("validation error")

	// ErrPermission signals a rejected non-read-only SQL statement.
	ErrPermission = errors.New("permission error")

	// ErrNotSupported signals a plugin lacking a requested capability.
	ErrNotSupported = errors.New("not supported")

	// ErrDuplicatePlugin signals two plugins claiming the same type.
	ErrDuplicatePlugin = errors.New("duplicate plugin type")

	// ErrEmbeddingTransient signals a transport/timeout failure talking
	// to an embedding provider; callers may retry.
	ErrEmbeddingTransient = errors.New("embedding provider transient error")

	// ErrEmbeddingPermanent signals a 4xx, schema mismatch, or wrong
	// dimension from an embedding provider; retrying will not help.
	ErrEmbeddingPermanent = errors.New("embedding provider permanent error")

	// ErrTimeout signals the local LLM daemon failed to become healthy
	// within the bounded wait.
	ErrTimeout = errors.New("timeout waiting for daemon")

	// ErrLookup signals a missing run, datasource, or shard.
	ErrLookup = errors.New("not found")
)
