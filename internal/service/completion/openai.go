package completion

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/science-tutor/backend/internal/config"
)

// ChatCompleter is the subset of *openai.Client used here; it is easy to fake in tests.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint,
// including Gemini's compatibility layer.
type OpenAIClient struct {
	api          ChatCompleter
	model        string
	systemPrompt string
	temperature  *float64
	maxTokens    *int
}

// NewOpenAIClient creates a client bound to the model in cfg.
func NewOpenAIClient(api ChatCompleter, cfg config.LLMConfig) *OpenAIClient {
	return &OpenAIClient{
		api:          api,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
	}
}

// Complete sends prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if c.temperature != nil {
		req.Temperature = float32(*c.temperature)
	}
	if c.maxTokens != nil {
		req.MaxTokens = *c.maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Kind: KindEmptyResponse, Err: errors.New("response contained no choices")}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &UpstreamError{Kind: KindContentPolicy, Err: errors.New("response was withheld by the content filter")}
	}
	if choice.Message.Content == "" {
		return "", &UpstreamError{Kind: KindEmptyResponse, Err: errors.New("response text was empty")}
	}
	return choice.Message.Content, nil
}
