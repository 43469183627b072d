package prompts

import (
	"strings"

	"advisorsql-backend/internal/tools"
)

// Options controls how the system prompt is assembled
type Options struct {
	TopK     int
	FewShotK int
	Examples []Example
}

// Builder renders the system prompt for a question
type Builder struct {
	static   string
	topK     int
	fewShotK int
	examples []Example
}

// NewBuilder assembles the parts of the prompt that do not depend on the
// question. A zero TopK or FewShotK falls back to 3 and 5.
func NewBuilder(available []tools.Tool, schemaText string, opts Options) *Builder {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.FewShotK <= 0 {
		opts.FewShotK = 5
	}
	if opts.Examples == nil {
		opts.Examples = Examples()
	}

	parts := []string{AgentDescription, ToolsPrompt(available), SQLToolRules}
	if schemaText != "" {
		parts = append(parts, SchemaPrompt(schemaText))
	}

	return &Builder{
		static:   strings.Join(parts, "\n"),
		topK:     opts.TopK,
		fewShotK: opts.FewShotK,
		examples: opts.Examples,
	}
}

// SystemPrompt returns the full prompt with examples chosen for input
func (b *Builder) SystemPrompt(input string) string {
	selected := SelectExamples(b.examples, input, b.fewShotK)
	return b.static + "\n" + FewShot(b.topK, selected)
}
