package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChainClient runs prompts through an eino chain: chat template then chat model.
type ChainClient struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	systemPrompt string
}

// NewChainClient compiles a chain around chatModel. The system message is only
// part of the template when systemPrompt is non-empty.
func NewChainClient(ctx context.Context, chatModel model.BaseChatModel, systemPrompt string) (*ChainClient, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	templates := make([]schema.MessagesTemplate, 0, 2)
	if systemPrompt != "" {
		templates = append(templates, schema.SystemMessage("{system}"))
	}
	templates = append(templates, schema.UserMessage("{query}"))

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(prompt.FromMessages(schema.FString, templates...))
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChainClient{chain: runnable, systemPrompt: systemPrompt}, nil
}

// Complete invokes the chain with prompt as the user message.
func (c *ChainClient) Complete(ctx context.Context, prompt string) (string, error) {
	input := map[string]any{"query": prompt}
	if c.systemPrompt != "" {
		input["system"] = c.systemPrompt
	}

	msg, err := c.chain.Invoke(ctx, input)
	if err != nil {
		return "", Classify(err)
	}
	if msg == nil || msg.Content == "" {
		return "", &UpstreamError{Kind: KindEmptyResponse, Err: errors.New("model returned no content")}
	}
	return msg.Content, nil
}
