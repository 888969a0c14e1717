package postgres

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// withTx stores a SQL transaction in context so nested store methods
// reuse the caller's transaction instead of opening their own.
func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// txFromContext extracts a SQL transaction from context if present.
func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// runInTx begins one transaction, runs fn with it injected into ctx, and
// commits on success or rolls back on error or panic. Every mutating
// Store method funnels through this so a multi-statement edit (a field
// change plus its automatic journal entry, an attach plus its two-sided
// update) is never observable half-done.
func runInTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(withTx(ctx, tx), tx)
	return err
}
