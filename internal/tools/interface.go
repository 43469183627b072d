package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ToolParameter is one argument in a tool's JSON schema
type ToolParameter struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolResult is what a tool call produced. Data["output"] holds the text the
// model sees; other keys are for HTTP and CLI callers.
type ToolResult struct {
	Status string                 `json:"status"`
	Data   map[string]interface{} `json:"data,omitempty"`
	Error  string                 `json:"error,omitempty"`
	TimeMs int                    `json:"time_ms,omitempty"`
}

// Tool is an action the agent can take against the advisor store
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]ToolParameter
	Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error)

	// GetCategory groups tools for listings (database, schema)
	GetCategory() string
}

// ToolRegistry resolves tool calls by name
type ToolRegistry interface {
	RegisterTool(tool Tool) error
	GetTool(name string) (Tool, bool)

	// ExecuteTool returns an error only when the call never reached the
	// tool. Failures inside the tool come back as a failed ToolResult.
	ExecuteTool(ctx context.Context, toolName string, params map[string]interface{}) (*ToolResult, error)

	// ListTools returns tools sorted by name
	ListTools() []Tool
}

var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrInvalidParameters = errors.New("invalid tool parameters")
	ErrQueryFailed       = errors.New("query failed")
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// NewToolError builds a failed result whose text is message, or message: err
func NewToolError(message string, err error) *ToolResult {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &ToolResult{Status: StatusFailed, Error: message}
}

// NewToolSuccess builds a completed result
func NewToolSuccess(data map[string]interface{}, timeMs int) *ToolResult {
	return &ToolResult{Status: StatusCompleted, Data: data, TimeMs: timeMs}
}

// Output is the text handed back to the model for this result
func (r *ToolResult) Output() string {
	if r.Status != StatusCompleted {
		return r.Error
	}
	if out, ok := r.Data["output"].(string); ok {
		return out
	}
	return ""
}

// ValidateToolParameters checks params against a tool's declared arguments.
// Missing required arguments are reported before type mismatches, each in
// name order.
func ValidateToolParameters(params map[string]interface{}, toolParams map[string]ToolParameter) error {
	names := make([]string, 0, len(toolParams))
	for name := range toolParams {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := params[name]; !ok && toolParams[name].Required {
			return fmt.Errorf("%w: missing required parameter: %s", ErrInvalidParameters, name)
		}
	}
	for _, name := range names {
		value, ok := params[name]
		if !ok || toolParams[name].Type != "string" {
			continue
		}
		if _, isString := value.(string); !isString {
			return fmt.Errorf("%w: parameter %s must be a string", ErrInvalidParameters, name)
		}
	}
	return nil
}

// JSONSchema renders tool parameters as a JSON schema object
func JSONSchema(toolParams map[string]ToolParameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(toolParams))
	required := make([]string, 0, len(toolParams))

	for name, param := range toolParams {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[name] = prop
		if param.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
