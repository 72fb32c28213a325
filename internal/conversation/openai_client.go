package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAILLMClient implements LLMClient against the OpenAI chat completions
// API. Rate-limited and transient server errors are retried with exponential
// backoff before the caller's fallback chain takes over.
type OpenAILLMClient struct {
	client      *openai.Client
	modelID     string
	maxAttempts int
	baseDelay   time.Duration
}

// NewOpenAILLMClient creates an OpenAI-backed LLM client.
func NewOpenAILLMClient(apiKey, modelID string, maxAttempts int, baseDelay time.Duration) (*OpenAILLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: openai api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gpt-4o-mini"
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &OpenAILLMClient{
		client:      openai.NewClient(apiKey),
		modelID:     modelID,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}, nil
}

// Complete sends the conversation to OpenAI and returns the assistant reply.
func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("conversation: openai requires at least one message")
	}

	model := req.Model
	if model == "" {
		model = c.modelID
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+len(req.System))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: sys})
	}
	for _, m := range req.Messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	ccReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    oaMsgs,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		ccReq.MaxTokens = int(req.MaxTokens)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, retryDelay(c.baseDelay, attempt)); err != nil {
				return LLMResponse{}, err
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, ccReq)
		if err == nil {
			if len(resp.Choices) == 0 {
				return LLMResponse{}, errors.New("conversation: openai returned no choices")
			}
			return LLMResponse{
				Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
				StopReason: string(resp.Choices[0].FinishReason),
				Usage: TokenUsage{
					InputTokens:  int32(resp.Usage.PromptTokens),
					OutputTokens: int32(resp.Usage.CompletionTokens),
					TotalTokens:  int32(resp.Usage.TotalTokens),
				},
			}, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	return LLMResponse{}, fmt.Errorf("conversation: openai completion failed: %w", lastErr)
}

// isRetryable reports whether the error is a rate limit (429, the API's
// retry-after case) or a transient server error.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return false
}

// retryDelay doubles the base delay per attempt: base, 2*base, 4*base...
func retryDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
