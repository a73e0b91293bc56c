// internal/ai/completer.go
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
)

// Completer is the generative model, consumed as a stateless text in,
// text out call.
type Completer interface {
	Complete(ctx context.Context, prompt string, expectJSON bool) (string, error)
}

const systemPrompt = `You are an expert affiliate marketer and short-form video copywriter for Indonesian marketplaces (Shopee, Tokopedia, TikTok Shop, Lazada). Be concrete, persuasive and honest.`

const jsonOnlyInstruction = `Respond with a single JSON object only, no markdown and no commentary.`

func NewCompleter(cfg config.AIConfig) (Completer, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAICompleter(cfg), nil
	case "anthropic":
		return NewAnthropicCompleter(cfg), nil
	}
	return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
}

// cleanJSONResponse strips code fences and any prose around the outermost
// JSON object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
