package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"go.uber.org/zap"

	"advisorsql-backend/internal/llm"
	"advisorsql-backend/internal/prompts"
	"advisorsql-backend/internal/tools"
)

// ErrEmptyMessage is returned for a blank question
var ErrEmptyMessage = errors.New("message must not be empty")

// DefaultMaxIterations caps LLM calls per question
const DefaultMaxIterations = 3

// ChatService answers questions against the database
type ChatService interface {
	ProcessUserMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	History(sessionID string) []Message
	ClearHistory(sessionID string)
}

// Config tunes the agent loop
type Config struct {
	Model         string
	Temperature   float64
	Seed          *int64
	MaxIterations int
	Prompts       *prompts.Builder
	Memory        Memory
	Logger        *zap.Logger
}

// Service runs the tool calling loop
type Service struct {
	llmClient     llm.LLMClient
	toolRegistry  tools.ToolRegistry
	prompts       *prompts.Builder
	memory        Memory
	model         string
	temperature   float64
	seed          *int64
	maxIterations int
	logger        *zap.Logger
}

// NewChatService creates the agent over the given client and tools
func NewChatService(llmClient llm.LLMClient, toolRegistry tools.ToolRegistry, cfg Config) *Service {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewBuilder(toolRegistry.ListTools(), "", prompts.Options{})
	}
	if cfg.Memory == nil {
		cfg.Memory = NewInMemoryHistory()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Service{
		llmClient:     llmClient,
		toolRegistry:  toolRegistry,
		prompts:       cfg.Prompts,
		memory:        cfg.Memory,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		seed:          cfg.Seed,
		maxIterations: cfg.MaxIterations,
		logger:        cfg.Logger,
	}
}

// ProcessUserMessage answers one question, calling tools as the model asks
func (s *Service) ProcessUserMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	logger := s.logger.With(zap.String("session_id", sessionID))

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(s.prompts.SystemPrompt(content)),
	}
	messages = append(messages, convertToOpenAIMessages(s.memory.History(sessionID))...)
	messages = append(messages, openai.UserMessage(content))

	response := &ChatResponse{SessionID: sessionID, Steps: []Step{}}
	toolParams := s.convertTools(s.toolRegistry.ListTools())

	answered := false
	for response.Iterations < s.maxIterations {
		response.Iterations++

		resp, err := s.llmClient.Chat(ctx, &llm.LLMRequest{
			Messages:    messages,
			Tools:       toolParams,
			Model:       s.model,
			Temperature: s.temperature,
			Seed:        s.seed,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM request failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			response.Response = resp.Content
			answered = true
			break
		}

		messages = append(messages, resp.AssistantMessage())
		for _, call := range resp.ToolCalls {
			step := s.processToolCall(ctx, logger, call)
			response.Steps = append(response.Steps, step)
			messages = append(messages, openai.ToolMessage(step.Output, call.ID))
		}
	}

	if !answered {
		logger.Warn("agent stopped", zap.Int("iterations", response.Iterations))
		response.Response = StopMessage
		response.Stopped = true
	}

	now := time.Now()
	s.memory.Append(sessionID,
		Message{Role: RoleUser, Content: content, CreatedAt: now},
		Message{Role: RoleAssistant, Content: response.Response, CreatedAt: now},
	)

	logger.Info("answered question",
		zap.Int("iterations", response.Iterations),
		zap.Int("steps", len(response.Steps)),
	)
	return response, nil
}

// processToolCall runs one tool call. Every failure becomes step output so the
// model can correct itself.
func (s *Service) processToolCall(ctx context.Context, logger *zap.Logger, call llm.ToolCall) Step {
	step := Step{Tool: call.Name, CallID: call.ID, Status: tools.StatusFailed}

	args := make(map[string]interface{})
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			step.Output = fmt.Sprintf("invalid arguments for tool %s: %v", call.Name, err)
			return step
		}
	}
	step.Input = args

	logger.Info("dispatching tool call", zap.String("tool", call.Name), zap.String("call_id", call.ID))
	result, err := s.toolRegistry.ExecuteTool(ctx, call.Name, args)
	if err != nil {
		step.Output = err.Error()
		return step
	}

	step.Status = result.Status
	step.TimeMs = result.TimeMs
	step.Output = result.Output()
	return step
}

// History returns the stored conversation for a session
func (s *Service) History(sessionID string) []Message {
	return s.memory.History(sessionID)
}

// ClearHistory forgets a session
func (s *Service) ClearHistory(sessionID string) {
	s.memory.Clear(sessionID)
}

func convertToOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		}
	}
	return openaiMessages
}

func (s *Service) convertTools(availableTools []tools.Tool) []openai.ChatCompletionToolParam {
	converted := make([]openai.ChatCompletionToolParam, 0, len(availableTools))
	for _, tool := range availableTools {
		converted = append(converted, llm.FunctionTool(tool.Name(), tool.Description(), tools.JSONSchema(tool.Parameters())))
	}
	return converted
}
