package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Known tables loaded from the advisory dataset
const (
	TableAllocations     = "allocations"
	TableAdvisorsClients = "advisors_clients"
)

// KnownTables lists the tables the assistant is allowed to query, in load order
var KnownTables = []string{TableAllocations, TableAdvisorsClients}

var (
	ErrUnknownTable   = errors.New("unknown table")
	ErrDuplicateTable = errors.New("duplicate table")
	ErrNoColumns      = errors.New("table has no columns")
)

// TableSchema is a table name with its ordered column list
type TableSchema struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
}

// ColumnSource reads the ordered column names of a table from a live store
type ColumnSource interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// Registry maps table names to their column order. It is built once and
// never mutated; every accessor hands out copies.
type Registry struct {
	tables map[string]TableSchema
	order  []string
}

// NewRegistry builds a registry from the given tables
func NewRegistry(tables ...TableSchema) (*Registry, error) {
	r := &Registry{
		tables: make(map[string]TableSchema, len(tables)),
	}

	for _, t := range tables {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrUnknownTable)
		}
		if _, exists := r.tables[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, name)
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoColumns, name)
		}

		r.tables[name] = TableSchema{Name: name, Columns: append([]string(nil), t.Columns...)}
		r.order = append(r.order, name)
	}

	return r, nil
}

// Load reads the column order of each named table from src
func Load(ctx context.Context, src ColumnSource, names ...string) (*Registry, error) {
	if len(names) == 0 {
		names = KnownTables
	}

	tables := make([]TableSchema, 0, len(names))
	for _, name := range names {
		cols, err := src.TableColumns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load columns for %s: %w", name, err)
		}
		tables = append(tables, TableSchema{Name: name, Columns: cols})
	}

	return NewRegistry(tables...)
}

// Lookup returns the schema registered under name
func (r *Registry) Lookup(name string) (TableSchema, bool) {
	t, ok := r.tables[name]
	if !ok {
		return TableSchema{}, false
	}
	return TableSchema{Name: t.Name, Columns: append([]string(nil), t.Columns...)}, true
}

// Columns returns the ordered columns of a table, or nil if it is not registered
func (r *Registry) Columns(name string) []string {
	t, ok := r.Lookup(name)
	if !ok {
		return nil
	}
	return t.Columns
}

// Names returns the registered table names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Tables returns every registered schema in registration order
func (r *Registry) Tables() []TableSchema {
	out := make([]TableSchema, 0, len(r.order))
	for _, name := range r.order {
		t, _ := r.Lookup(name)
		out = append(out, t)
	}
	return out
}

// Text renders the registry for inclusion in a prompt
func (r *Registry) Text() string {
	if len(r.order) == 0 {
		return "(no tables registered)"
	}

	var sb strings.Builder
	for i, name := range r.order {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("TABLE: `%s`\n", name))
		for _, col := range r.tables[name].Columns {
			sb.WriteString(fmt.Sprintf("  - `%s`\n", col))
		}
	}
	return sb.String()
}
