package llmclient

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	groqBaseURL        = "https://api.groq.com/openai/v1/"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API and asks for
// a JSON object. Groq is served by the same client with a different base URL.
type OpenAIClient struct {
	client *openai.Client
	model  string
	label  string
}

func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newOpenAICompatible("OpenAI", apiKey, model, opts...)
}

// NewGroqClient targets Groq's OpenAI-compatible endpoint.
func NewGroqClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	if model == "" {
		model = DefaultGroqModel
	}
	opts = append([]option.RequestOption{option.WithBaseURL(groqBaseURL)}, opts...)
	return newOpenAICompatible("Groq", apiKey, model, opts...)
}

func newOpenAICompatible(label, apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, model: model, label: label}
}

func (c *OpenAIClient) Name() string                { return c.label + ":" + c.model }
func (c *OpenAIClient) Close() error                { return nil }
func (c *OpenAIClient) CountTokens(text string) int { return CountTokens(text) }

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(jsonSystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return Completion{}, Classify(c.Name(), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Completion{}, Empty(c.Name())
	}
	return usageOrEstimate(Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, prompt), nil
}
