package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnhealthyTable is returned when a freshly loaded table has no rows
var ErrUnhealthyTable = errors.New("table is not healthy, something went wrong during DB creation")

// PingTable fetches at most one row from table and fails if there is none
func PingTable(ctx context.Context, database *Database, table string) error {
	rs, err := database.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1", database.QuoteIdent(table)))
	if err != nil {
		return fmt.Errorf("ping table %s: %w", table, err)
	}
	if rs.RowCount != 1 {
		return fmt.Errorf("%w: %s", ErrUnhealthyTable, table)
	}
	return nil
}
