package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrEmptyCSV is returned for a CSV file without a header row
var ErrEmptyCSV = errors.New("csv file has no header")

// maxBindParams stays under SQLite's historical 999 variable limit
const maxBindParams = 900

// TableLoad describes the outcome of loading one CSV file
type TableLoad struct {
	Table   string
	Columns []ColumnDef
	Rows    int
}

// ColumnDef is a column name with its inferred storage type
type ColumnDef struct {
	Name string
	Type string
}

// IngestCSV replaces table with the contents of the CSV file at path
func IngestCSV(ctx context.Context, database *Database, table, path string) (*TableLoad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	load, err := IngestReader(ctx, database, table, f)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	return load, nil
}

// IngestReader replaces table with headered CSV data read from r. Header
// names are kept verbatim, empty cells become NULL and every column gets
// INTEGER, REAL or TEXT depending on what all of its cells parse as.
func IngestReader(ctx context.Context, database *Database, table string, r io.Reader) (*TableLoad, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyCSV
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
	}

	body := records[1:]
	for i, record := range body {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+2, len(record), len(header))
		}
	}

	columns := make([]ColumnDef, len(header))
	for i, name := range header {
		columns[i] = ColumnDef{Name: name, Type: inferColumnType(body, i)}
	}

	err = database.WithTransaction(ctx, func(tx *Transaction) error {
		if _, err := tx.Execute(ctx, "DROP TABLE IF EXISTS "+database.QuoteIdent(table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		if _, err := tx.Execute(ctx, createTableStatement(database, table, columns)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}

		rows := make([][]interface{}, len(body))
		for i, record := range body {
			rows[i] = convertRecord(record, columns)
		}
		return tx.BatchInsert(ctx, table, header, rows)
	})
	if err != nil {
		return nil, err
	}

	return &TableLoad{Table: table, Columns: columns, Rows: len(body)}, nil
}

// BatchInsert inserts rows in chunks that fit the bind parameter limit
func (tx *Transaction) BatchInsert(ctx context.Context, table string, columns []string, rows [][]interface{}) error {
	if len(rows) == 0 || len(columns) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = tx.db.QuoteIdent(col)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tx.db.QuoteIdent(table), strings.Join(quoted, ", "))

	perBatch := maxBindParams / len(columns)
	if perBatch < 1 {
		perBatch = 1
	}

	for start := 0; start < len(rows); start += perBatch {
		end := start + perBatch
		if end > len(rows) {
			end = len(rows)
		}

		valueStrings := make([]string, 0, end-start)
		valueArgs := make([]interface{}, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			valueStrings = append(valueStrings, "("+strings.Join(tx.db.placeholders(len(row), i*len(row)+1), ", ")+")")
			valueArgs = append(valueArgs, row...)
		}

		if _, err := tx.Execute(ctx, prefix+strings.Join(valueStrings, ", "), valueArgs...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

// placeholders generates count bind parameters starting at start
func (db *Database) placeholders(count, start int) []string {
	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = db.placeholder(start + i)
	}
	return out
}

func createTableStatement(database *Database, table string, columns []ColumnDef) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = database.QuoteIdent(col.Name) + " " + database.storageType(col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", database.QuoteIdent(table), strings.Join(defs, ", "))
}

// storageType maps an inferred affinity onto the dialect's column type
func (db *Database) storageType(affinity string) string {
	if !db.postgres() {
		return affinity
	}
	switch affinity {
	case "INTEGER":
		return "BIGINT"
	case "REAL":
		return "DOUBLE PRECISION"
	default:
		return affinity
	}
}

func inferColumnType(records [][]string, col int) string {
	isInt, isFloat, seen := true, true, false
	for _, record := range records {
		cell := strings.TrimSpace(record[col])
		if cell == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			isFloat = false
		}
	}

	switch {
	case !seen:
		return "TEXT"
	case isInt:
		return "INTEGER"
	case isFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func convertRecord(record []string, columns []ColumnDef) []interface{} {
	out := make([]interface{}, len(record))
	for i, cell := range record {
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			out[i] = nil
			continue
		}

		switch columns[i].Type {
		case "INTEGER":
			v, _ := strconv.ParseInt(trimmed, 10, 64)
			out[i] = v
		case "REAL":
			v, _ := strconv.ParseFloat(trimmed, 64)
			out[i] = v
		default:
			out[i] = cell
		}
	}
	return out
}
