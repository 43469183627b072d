package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultToolRegistry is the in-process ToolRegistry. It is safe for
// concurrent use; sessions share one registry.
type DefaultToolRegistry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *zap.Logger
}

// NewDefaultToolRegistry creates a registry holding the given tools
func NewDefaultToolRegistry(logger *zap.Logger, tools ...Tool) (*DefaultToolRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := &DefaultToolRegistry{
		tools:  make(map[string]Tool),
		logger: logger,
	}

	for _, tool := range tools {
		if err := registry.RegisterTool(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// RegisterTool adds tool under its name. Names are unique.
func (r *DefaultToolRegistry) RegisterTool(tool Tool) error {
	name := tool.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool %q is already registered", name)
	}
	r.tools[name] = tool

	r.logger.Debug("registered tool", zap.String("tool", name), zap.String("category", tool.GetCategory()))
	return nil
}

func (r *DefaultToolRegistry) GetTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// ExecuteTool implements ToolRegistry. The result's TimeMs is set to the wall
// time of the call.
func (r *DefaultToolRegistry) ExecuteTool(ctx context.Context, toolName string, params map[string]interface{}) (*ToolResult, error) {
	tool, ok := r.GetTool(toolName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
	}
	if err := ValidateToolParameters(params, tool.Parameters()); err != nil {
		return nil, fmt.Errorf("tool %s: %w", toolName, err)
	}

	log := r.logger.With(zap.String("tool", toolName))
	start := time.Now()
	result, err := tool.Execute(ctx, params)
	if err != nil {
		log.Warn("tool failed", zap.Error(err))
		result = NewToolError(fmt.Sprintf("Tool %s failed", toolName), err)
	}
	result.TimeMs = int(time.Since(start).Milliseconds())

	log.Info("tool finished", zap.String("status", result.Status), zap.Int("time_ms", result.TimeMs))
	return result, nil
}

func (r *DefaultToolRegistry) ListTools() []Tool {
	r.mu.RLock()
	list := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}
