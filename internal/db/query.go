package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Result reports the effect of a statement that returns no rows
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// runner is the part of *sql.DB and *sql.Tx the helpers below need
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func execOn(ctx context.Context, r runner, query string, args []any) (*Result, error) {
	res, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// some drivers cannot report these; zero is fine for our callers
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	return &Result{RowsAffected: affected, LastInsertID: lastID}, nil
}

func queryOn(ctx context.Context, r runner, query string, args []any) (*ResultSet, error) {
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ScanResultSet(rows)
}

// Execute runs a statement that returns no rows
func (db *Database) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	return execOn(ctx, db.db, query, args)
}

// Query runs a statement and buffers every row it returns
func (db *Database) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	return queryOn(ctx, db.db, query, args)
}

// TableColumns returns a table's column names in declaration order
func (db *Database) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", db.QuoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows.Columns()
}
