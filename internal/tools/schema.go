package tools

import (
	"context"
	"fmt"

	"advisorsql-backend/internal/schema"
)

// SchemaTool describes the queryable tables
type SchemaTool struct {
	registry *schema.Registry
}

// NewSchemaTool creates a schema tool over reg
func NewSchemaTool(reg *schema.Registry) *SchemaTool {
	return &SchemaTool{registry: reg}
}

// Name returns tool name
func (t *SchemaTool) Name() string {
	return "describe_tables"
}

// Description returns tool description
func (t *SchemaTool) Description() string {
	return "Lists the tables available to the SQL tool with their columns in order. Pass a table name to describe just that table."
}

// Parameters returns tool parameters
func (t *SchemaTool) Parameters() map[string]ToolParameter {
	return map[string]ToolParameter{
		"table": {
			Type:        "string",
			Description: "Optional table name to describe",
			Required:    false,
		},
	}
}

// Execute runs the schema tool
func (t *SchemaTool) Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error) {
	reg := t.registry
	if name, ok := params["table"].(string); ok && name != "" {
		table, found := t.registry.Lookup(name)
		if !found {
			return nil, fmt.Errorf("%w: %s", schema.ErrUnknownTable, name)
		}
		single, err := schema.NewRegistry(table)
		if err != nil {
			return nil, err
		}
		reg = single
	}

	return NewToolSuccess(map[string]interface{}{
		"tables": reg.Tables(),
		"output": reg.Text(),
	}, 0), nil
}

// GetCategory returns tool category
func (t *SchemaTool) GetCategory() string {
	return "schema"
}
