package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o"

const maxAttempts = 3

// OpenAIClient implements LLMClient for OpenAI
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, model: model, logger: logger}
}

// Chat implements LLMClient
func (c *OpenAIClient) Chat(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	params := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    req.Messages,
		Temperature: openai.Float(req.Temperature),
		Tools:       req.Tools,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Seed != nil {
		params.Seed = openai.Int(*req.Seed)
	}

	c.logger.Debug("chat completion request",
		zap.String("model", model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(req.Tools)),
	)

	var resp *openai.ChatCompletion
	err := c.withRetry(ctx, maxAttempts, func() (err error) {
		resp, err = c.client.Chat.Completions.New(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenAI response")
	}
	choice := resp.Choices[0]

	response := &LLMResponse{
		Content:    choice.Message.Content,
		Model:      model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}
	for _, call := range choice.Message.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	return response, nil
}

// SetModel updates the model for this client
func (c *OpenAIClient) SetModel(model string) error {
	if model == "" {
		return errors.New("model must not be empty")
	}
	c.model = model
	c.logger.Info("OpenAI client model updated", zap.String("model", model))
	return nil
}

// GetModel returns the current model
func (c *OpenAIClient) GetModel() string {
	return c.model
}

// transientMarkers are substrings of transport errors worth another attempt
var transientMarkers = []string{"timeout", "connection reset", "temporary failure", "rate limit", "server error"}

// isRetryableError reports whether err is a rate limit, a 5xx or a transient
// transport failure. Context errors are final.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// withRetry calls op up to attempts times, sleeping 100ms, 200ms, 400ms and so
// on between retryable failures
func (c *OpenAIClient) withRetry(ctx context.Context, attempts int, op func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil || !isRetryableError(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}

		wait := (100 * time.Millisecond) << (attempt - 1)
		c.logger.Warn("chat completion failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
