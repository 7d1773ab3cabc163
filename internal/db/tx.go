package db

import "fmt"

// WithTransaction runs fn inside a transaction on conn, committing on a
// nil return and rolling back otherwise. Nested use is not supported:
// fn must not itself call WithTransaction on the same conn.
func WithTransaction(conn DB, fn func(tx Tx) error) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
