package llm

import (
	"context"

	"github.com/openai/openai-go"
)

// LLMRequest represents a request to the LLM
type LLMRequest struct {
	Messages    []openai.ChatCompletionMessageParamUnion `json:"messages"`
	Tools       []openai.ChatCompletionToolParam         `json:"tools,omitempty"`
	Model       string                                   `json:"model,omitempty"`
	MaxTokens   int                                      `json:"max_tokens,omitempty"`
	Temperature float64                                  `json:"temperature"`
	Seed        *int64                                   `json:"seed,omitempty"`
}

// ToolCall is one function call requested by the model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// LLMResponse represents a complete LLM response
type LLMResponse struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Model      string     `json:"model"`
	TokensUsed int        `json:"tokens_used"`
}

// LLMClient defines the interface for LLM providers
type LLMClient interface {
	// Chat sends a chat completion request and returns the complete response
	Chat(ctx context.Context, req *LLMRequest) (*LLMResponse, error)

	// SetModel updates the model for this client
	SetModel(model string) error

	// GetModel returns the current model
	GetModel() string
}

// AssistantMessage converts a response back into a history entry, keeping
// its tool calls so tool results can reference them
func (r *LLMResponse) AssistantMessage() openai.ChatCompletionMessageParamUnion {
	if len(r.ToolCalls) == 0 {
		return openai.AssistantMessage(r.Content)
	}

	calls := make([]openai.ChatCompletionMessageToolCallParam, len(r.ToolCalls))
	for i, call := range r.ToolCalls {
		calls[i] = openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}

	msg := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if r.Content != "" {
		msg.Content.OfString = openai.String(r.Content)
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}
}

// FunctionTool declares a callable function for the model
func FunctionTool(name, description string, parameters map[string]interface{}) openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        name,
			Description: openai.String(description),
			Parameters:  openai.FunctionParameters(parameters),
		},
	}
}
