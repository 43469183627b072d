package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Transaction wraps a *sql.Tx opened by BeginTx
type Transaction struct {
	tx *sql.Tx
	db *Database
}

// Execute runs a statement inside the transaction
func (tx *Transaction) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	return execOn(ctx, tx.tx, query, args)
}

func (tx *Transaction) Commit() error   { return tx.tx.Commit() }
func (tx *Transaction) Rollback() error { return tx.tx.Rollback() }

// WithTransaction runs fn in a transaction. It commits when fn returns nil and
// rolls back on error or panic.
func (db *Database) WithTransaction(ctx context.Context, fn func(*Transaction) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
