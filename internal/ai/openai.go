// internal/ai/openai.go
package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
)

// OpenAICompleter talks to any OpenAI compatible chat endpoint. DeepSeek is
// the default through its base URL.
type OpenAICompleter struct {
	client    *openai.Client
	model     openai.ChatModel
	maxTokens int64
}

func NewOpenAICompleter(cfg config.AIConfig) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	return &OpenAICompleter{
		client:    &client,
		model:     openai.ChatModel(model),
		maxTokens: int64(cfg.MaxTokens),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, expectJSON bool) (string, error) {
	system := systemPrompt
	if expectJSON {
		system += "\n" + jsonOnlyInstruction
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}
	if expectJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
