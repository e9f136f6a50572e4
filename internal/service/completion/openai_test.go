package completion

import (
	"context"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/science-tutor/backend/internal/config"
)

type fakeCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
	reqs []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func reply(content string, reason openai.FinishReason) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		FinishReason: reason,
	}}}
}

func TestOpenAIClientComplete(t *testing.T) {
	temp := 0.3
	tokens := 256
	api := &fakeCompleter{resp: reply("Photosynthesis is how plants make food.", openai.FinishReasonStop)}
	c := NewOpenAIClient(api, config.LLMConfig{
		Model:        "gemini-1.5-pro",
		SystemPrompt: "You are a science tutor.",
		Temperature:  &temp,
		MaxTokens:    &tokens,
	})

	text, err := c.Complete(context.Background(), "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis is how plants make food.", text)

	require.Len(t, api.reqs, 1)
	req := api.reqs[0]
	assert.Equal(t, "gemini-1.5-pro", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "What is photosynthesis?", req.Messages[1].Content)
	assert.InDelta(t, 0.3, req.Temperature, 1e-6)
	assert.Equal(t, 256, req.MaxTokens)
}

func TestOpenAIClientWithoutSystemPrompt(t *testing.T) {
	api := &fakeCompleter{resp: reply("ok", openai.FinishReasonStop)}
	c := NewOpenAIClient(api, config.LLMConfig{Model: "gpt-4o-mini"})

	_, err := c.Complete(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, api.reqs[0].Messages, 1)
}

func TestOpenAIClientErrors(t *testing.T) {
	cases := []struct {
		name string
		api  *fakeCompleter
		want Kind
	}{
		{"auth", &fakeCompleter{err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "invalid key"}}, KindAuth},
		{"no choices", &fakeCompleter{}, KindEmptyResponse},
		{"empty text", &fakeCompleter{resp: reply("", openai.FinishReasonStop)}, KindEmptyResponse},
		{"filtered", &fakeCompleter{resp: reply("partial", openai.FinishReasonContentFilter)}, KindContentPolicy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewOpenAIClient(tc.api, config.LLMConfig{Model: "m"})
			_, err := c.Complete(context.Background(), "hi")

			var upstream *UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, tc.want, upstream.Kind)
		})
	}
}
