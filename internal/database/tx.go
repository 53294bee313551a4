package database

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx runs fn inside a single transaction.  The transaction commits
// only when fn returns nil; an error or a panic from fn rolls it back, so
// no partial writes survive.  fn's error is returned unchanged so callers
// can still match their own sentinel values.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
