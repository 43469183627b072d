package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DatabaseType names a supported driver family
type DatabaseType string

const (
	DatabaseTypePostgreSQL DatabaseType = "postgresql"
	DatabaseTypeMySQL      DatabaseType = "mysql"
	DatabaseTypeSQLite     DatabaseType = "sqlite"
)

// Kind is the coarse type of a scanned cell
type Kind string

const (
	KindNull      Kind = "null"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindText      Kind = "text"
	KindBoolean   Kind = "boolean"
	KindBinary    Kind = "binary"
	KindTimestamp Kind = "timestamp"
)

// Value is one scanned cell. A zero Value is SQL NULL.
type Value struct {
	Kind Kind
	Data any
}

// Null is the SQL NULL cell
var Null = Value{Kind: KindNull}

func cell(kind Kind, data any) Value {
	return Value{Kind: kind, Data: data}
}

// IsNull reports whether the cell holds SQL NULL
func (v Value) IsNull() bool {
	return v.Data == nil || v.Kind == KindNull || v.Kind == ""
}

// Interface returns the plain Go value, or nil for SQL NULL. Binary data is
// returned as a string so results stay printable and JSON friendly.
func (v Value) Interface() any {
	if v.IsNull() {
		return nil
	}
	switch data := v.Data.(type) {
	case []byte:
		return string(data)
	case time.Time:
		return data.Format(time.RFC3339)
	default:
		return data
	}
}

// Column describes one output column as the driver reported it
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// ResultSet holds every row of a query in driver order
type ResultSet struct {
	Columns  []Column
	Rows     [][]Value
	RowCount int
}

// ColumnNames returns the names the driver reported, in order
func (rs *ResultSet) ColumnNames() []string {
	names := make([]string, 0, len(rs.Columns))
	for _, col := range rs.Columns {
		names = append(names, col.Name)
	}
	return names
}

// Values flattens the result into rows of plain values with nil for NULL
func (rs *ResultSet) Values() [][]any {
	out := make([][]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		plain := make([]any, len(row))
		for i, v := range row {
			plain[i] = v.Interface()
		}
		out = append(out, plain)
	}
	return out
}

// ScanResultSet drains rows into a ResultSet. The caller still owns rows.
func ScanResultSet(rows *sql.Rows) (*ResultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	rs := &ResultSet{Columns: make([]Column, len(types))}
	for i, ct := range types {
		nullable, known := ct.Nullable()
		rs.Columns[i] = Column{
			Name:     ct.Name(),
			Kind:     kindOf(ct.DatabaseTypeName()),
			Nullable: nullable || !known,
		}
	}

	dest := make([]any, len(types))
	for rows.Next() {
		raw := make([]any, len(types))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(rs.Rows)+1, err)
		}

		row := make([]Value, len(raw))
		for i, v := range raw {
			row[i] = toValue(v, rs.Columns[i].Kind)
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rs.RowCount = len(rs.Rows)
	return rs, nil
}

// kindHints is checked in order; the first matching fragment wins
var kindHints = []struct {
	kind      Kind
	fragments []string
}{
	{KindInteger, []string{"int", "serial"}},
	{KindFloat, []string{"real", "float", "double", "decimal", "numeric"}},
	{KindBoolean, []string{"bool"}},
	{KindTimestamp, []string{"timestamp", "date", "time"}},
	{KindBinary, []string{"blob", "binary", "bytea"}},
}

// kindOf maps a driver type name to a Kind. Unknown or empty names are text,
// which is what SQLite reports for expression columns.
func kindOf(typeName string) Kind {
	name := strings.ToLower(typeName)
	for _, hint := range kindHints {
		for _, f := range hint.fragments {
			if strings.Contains(name, f) {
				return hint.kind
			}
		}
	}
	return KindText
}

func toValue(raw any, want Kind) Value {
	switch v := raw.(type) {
	case nil:
		return Null
	case int64:
		if want == KindBoolean {
			return cell(KindBoolean, v != 0)
		}
		return cell(KindInteger, v)
	case float64:
		return cell(KindFloat, v)
	case float32:
		return cell(KindFloat, float64(v))
	case bool:
		return cell(KindBoolean, v)
	case string:
		return cell(KindText, v)
	case []byte:
		if want == KindBinary {
			return cell(KindBinary, append([]byte(nil), v...))
		}
		return cell(KindText, string(v))
	case time.Time:
		if v.IsZero() {
			return Null
		}
		return cell(KindTimestamp, v)
	default:
		return cell(KindText, fmt.Sprint(v))
	}
}
