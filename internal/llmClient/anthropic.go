package llmclient

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-haiku-4-5"
	anthropicMaxTokens    = 8192
	jsonSystemPrompt      = "You are a precise assistant that answers with a single JSON document and nothing else."
)

// AnthropicClient calls the Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewAnthropicClient(apiKey, model string, opts ...option.RequestOption) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, model: anthropic.Model(model)}
}

func (c *AnthropicClient) Name() string                { return "Anthropic:" + string(c.model) }
func (c *AnthropicClient) Close() error                { return nil }
func (c *AnthropicClient) CountTokens(text string) int { return CountTokens(text) }

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: jsonSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Completion{}, Classify(c.Name(), err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return Completion{}, Empty(c.Name())
	}
	return usageOrEstimate(Completion{
		Text:         text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, prompt), nil
}
