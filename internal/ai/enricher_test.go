// internal/ai/enricher_test.go
package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

type fakeCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	prompts  []string
	jsonMode []bool
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, expectJSON bool) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.jsonMode = append(f.jsonMode, expectJSON)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.response, f.err
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONResponse("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, cleanJSONResponse(`Sure! Here it is: {"a":{"b":2}} hope it helps`))
	assert.Equal(t, "no json here", cleanJSONResponse("no json here"))
}

func TestFabricateProduct(t *testing.T) {
	fc := &fakeCompleter{response: "```json\n" + `{
		"name": "Wireless Earbuds Pro",
		"description": "",
		"price": "Rp 100.000",
		"originalPrice": 150000,
		"rating": "4.8",
		"soldCount": 1200,
		"images": ["https://img.example/1.jpg", " "],
		"category": "Electronics",
		"keyFeatures": ["ANC", "30h battery"],
		"viralScore": 8.5,
		"usp": ["Cheapest ANC"],
		"contentAngles": ["Review", "Unboxing"]
	}` + "\n```"}
	e := NewEnricher(fc, time.Second)

	draft, err := e.FabricateProduct(context.Background(), "https://shopee.co.id/earbuds-i.1.2", models.PlatformShopee)
	require.NoError(t, err)

	assert.Equal(t, "Wireless Earbuds Pro", draft.Name)
	assert.Equal(t, "Wireless Earbuds Pro", draft.Description)
	assert.Equal(t, int64(100000), draft.Price)
	assert.Equal(t, int64(150000), draft.OriginalPrice)
	assert.InDelta(t, 4.8, draft.Rating, 0.001)
	assert.Equal(t, "1200", draft.SoldCount)
	assert.Equal(t, []string{"https://img.example/1.jpg"}, draft.Images)
	assert.Equal(t, "Electronics", draft.Category)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "https://shopee.co.id/earbuds-i.1.2")
	assert.Contains(t, fc.prompts[0], "shopee")
	assert.True(t, fc.jsonMode[0])
}

func TestFabricateProductRejectsIncompleteRecords(t *testing.T) {
	cases := map[string]string{
		"not json":   "I cannot browse the web.",
		"no name":    `{"price": 1000}`,
		"no price":   `{"name": "Thing"}`,
		"bad number": `{"name": "Thing", "price": "free"}`,
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewEnricher(&fakeCompleter{response: response}, time.Second)
			_, err := e.FabricateProduct(context.Background(), "https://shopee.co.id/x", models.PlatformShopee)

			var enrichErr *EnrichmentError
			require.ErrorAs(t, err, &enrichErr)
			assert.Equal(t, ModeFabrication, enrichErr.Mode)
		})
	}
}

func TestEnrichProduct(t *testing.T) {
	fc := &fakeCompleter{response: `{"description":"Great sound.","category":"Audio","keyFeatures":["ANC"],"viralScore":9.1,"usp":["Bass"],"contentAngles":["Review"]}`}
	e := NewEnricher(fc, time.Second)

	insights, err := e.EnrichProduct(context.Background(), ProductFacts{
		Platform:  models.PlatformTokopedia,
		Name:      "Speaker Mini",
		Price:     250000,
		Rating:    4.7,
		SoldCount: "2rb",
	})
	require.NoError(t, err)
	assert.Equal(t, "Audio", insights.Category)
	assert.InDelta(t, 9.1, insights.ViralScore, 0.001)
	assert.Contains(t, fc.prompts[0], "Speaker Mini")
	assert.Contains(t, fc.prompts[0], "250000")

	_, err = NewEnricher(&fakeCompleter{response: `{"keyFeatures":["x"]}`}, time.Second).
		EnrichProduct(context.Background(), ProductFacts{Name: "x"})
	var enrichErr *EnrichmentError
	require.ErrorAs(t, err, &enrichErr)
	assert.Equal(t, "missing category", enrichErr.Reason)
}

func TestGenerateScript(t *testing.T) {
	fc := &fakeCompleter{response: `{
		"title": "Earbuds that slap",
		"score": 140,
		"modules": [
			{"type": "Hook", "content": "Stop scrolling!", "duration": "0:05"},
			{"type": "social proof", "content": "12k sold", "duration": "00:10"},
			{"type": "cta", "content": "Tap the yellow cart", "duration": "00:05"}
		]
	}`}
	e := NewEnricher(fc, time.Second)

	draft, err := e.GenerateScript(context.Background(), ScriptBrief{
		ProductName: "Earbuds",
		Framework:   models.FrameworkAIDA,
		Platform:    models.ContentPlatformTikTok,
		Tone:        models.ToneEnergetic,
		USP:         []string{"ANC", "Cheap"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Earbuds that slap", draft.Title)
	require.NotNil(t, draft.Score)
	assert.Equal(t, 100.0, *draft.Score)
	require.Len(t, draft.Modules, 3)
	assert.Equal(t, models.ModuleTypeHook, draft.Modules[0].Type)
	assert.Equal(t, "00:05", draft.Modules[0].Duration)
	assert.Equal(t, models.ModuleTypeSocialProof, draft.Modules[1].Type)

	prompt := fc.prompts[0]
	assert.Contains(t, prompt, "AIDA")
	assert.Contains(t, prompt, "tiktok")
	assert.Contains(t, prompt, "energetic")
	assert.Contains(t, prompt, "ANC; Cheap")
}

func TestGenerateScriptRejectsMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"empty modules": `{"title":"T","modules":[]}`,
		"no title":      `{"modules":[{"type":"hook","content":"x","duration":"00:05"}]}`,
		"bad type":      `{"title":"T","modules":[{"type":"outro","content":"x","duration":"00:05"}]}`,
		"bad duration":  `{"title":"T","modules":[{"type":"hook","content":"x","duration":"5 sec"}]}`,
		"blank content": `{"title":"T","modules":[{"type":"hook","content":"  ","duration":"00:05"}]}`,
		"truncated":     `{"title":"T","modules":[{"type":"hook"`,
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewEnricher(&fakeCompleter{response: response}, time.Second)
			draft, err := e.GenerateScript(context.Background(), ScriptBrief{ProductName: "x"})
			assert.Nil(t, draft)

			var enrichErr *EnrichmentError
			require.ErrorAs(t, err, &enrichErr)
			assert.Equal(t, ModeScript, enrichErr.Mode)
		})
	}
}

func TestRegenerateModuleIsPlainText(t *testing.T) {
	fc := &fakeCompleter{response: "  \"Still using wired earbuds in 2025?\"\n"}
	e := NewEnricher(fc, time.Second)

	content, err := e.RegenerateModule(context.Background(), ModuleBrief{
		ProductName:    "Earbuds",
		Type:           models.ModuleTypeHook,
		Framework:      models.FrameworkPAS,
		Platform:       models.ContentPlatformInstagram,
		Tone:           models.ToneCasual,
		CurrentContent: "Stop scrolling!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Still using wired earbuds in 2025?", content)
	assert.False(t, fc.jsonMode[0])
	assert.True(t, strings.Contains(fc.prompts[0], "Stop scrolling!"))
	assert.Contains(t, fc.prompts[0], "different variant")

	_, err = NewEnricher(&fakeCompleter{response: "   "}, time.Second).
		RegenerateModule(context.Background(), ModuleBrief{})
	assert.Error(t, err)
}

func TestEnricherTimeoutIsTerminal(t *testing.T) {
	fc := &fakeCompleter{response: `{"name":"x","price":1}`, delay: time.Second}
	e := NewEnricher(fc, 20*time.Millisecond)

	_, err := e.FabricateProduct(context.Background(), "https://shopee.co.id/x", models.PlatformShopee)

	var enrichErr *EnrichmentError
	require.ErrorAs(t, err, &enrichErr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewCompleterProvider(t *testing.T) {
	c, err := NewCompleter(testAIConfig("openai"))
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompleter{}, c)

	c, err = NewCompleter(testAIConfig("anthropic"))
	require.NoError(t, err)
	assert.IsType(t, &AnthropicCompleter{}, c)

	_, err = NewCompleter(testAIConfig("llama"))
	assert.Error(t, err)
}

func testAIConfig(provider string) config.AIConfig {
	return config.AIConfig{
		Provider:  provider,
		APIKey:    "test-key",
		BaseURL:   "http://127.0.0.1:0",
		Model:     "deepseek-chat",
		MaxTokens: 500,
		Timeout:   time.Second,
	}
}
