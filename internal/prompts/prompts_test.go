package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisorsql-backend/internal/tools"
)

type stubTool struct{ name, desc string }

func (s stubTool) Name() string                               { return s.name }
func (s stubTool) Description() string                        { return s.desc }
func (s stubTool) Parameters() map[string]tools.ToolParameter { return nil }
func (s stubTool) GetCategory() string                        { return "test" }
func (s stubTool) Execute(context.Context, map[string]interface{}) (*tools.ToolResult, error) {
	return tools.NewToolSuccess(nil, 0), nil
}

func TestToolsPrompt(t *testing.T) {
	out := ToolsPrompt([]tools.Tool{
		stubTool{"describe_tables", "lists tables"},
		stubTool{"sql_tool", "runs a query"},
	})

	assert.Contains(t, out, "Names: describe_tables, sql_tool\n")
	assert.Contains(t, out, "sql_tool: runs a query")
	assert.Contains(t, out, "Below is a detailed description of each tool")
}

func TestSelectExamplesRanksByOverlap(t *testing.T) {
	selected := SelectExamples(Examples(), "Which portfolios do not have a client?", 1)
	require.Len(t, selected, 1)
	assert.Contains(t, selected[0].Query, "IS NULL")

	selected = SelectExamples(Examples(), "total allocation per asset class for Client_1", 2)
	require.Len(t, selected, 2)
	assert.Contains(t, selected[0].Input, "Client_1")
}

func TestSelectExamplesBounds(t *testing.T) {
	assert.Nil(t, SelectExamples(Examples(), "stocks", 0))
	assert.Nil(t, SelectExamples(nil, "stocks", 3))
	assert.Len(t, SelectExamples(Examples(), "stocks", 50), len(Examples()))

	// no overlap keeps the declared order
	selected := SelectExamples(Examples(), "zzz", 2)
	assert.Equal(t, Examples()[:2], selected)
}

func TestFewShot(t *testing.T) {
	out := FewShot(3, []Example{{Input: "q", Query: "SELECT 1"}})

	assert.Contains(t, out, "at most 3 results")
	assert.True(t, strings.HasSuffix(out, "\nUser input: q\nSQL query: SELECT 1\n"))
}

func TestBuilderSystemPrompt(t *testing.T) {
	b := NewBuilder(
		[]tools.Tool{stubTool{"sql_tool", "runs a query"}},
		"TABLE: `allocations`\n  - `Client`\n",
		Options{FewShotK: 2},
	)

	out := b.SystemPrompt("stocks for each client")
	assert.True(t, strings.HasPrefix(out, AgentDescription))
	assert.Contains(t, out, "Names: sql_tool")
	assert.Contains(t, out, SQLToolRules)
	assert.Contains(t, out, "TABLE: `allocations`")
	assert.Contains(t, out, "at most 3 results")
	assert.Equal(t, 2, strings.Count(out, "User input: "))
}
