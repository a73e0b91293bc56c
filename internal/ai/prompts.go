// internal/ai/prompts.go
package ai

import (
	"fmt"
	"strings"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

func fabricationPrompt(url string, platform models.Platform) string {
	return fmt.Sprintf(`I will give you a product URL from %s.
URL: %s

Analyze this URL and provide detailed product information. If you don't know the exact product, provide a highly professional sample extraction based on the URL context.

Return JSON with exactly this structure:
{
  "name": "product name",
  "description": "short marketing description",
  "price": 100000,
  "originalPrice": 150000,
  "rating": 4.8,
  "soldCount": "1.2k",
  "images": ["https://..."],
  "category": "category name",
  "keyFeatures": ["feature 1", "feature 2", "feature 3"],
  "viralScore": 8.5,
  "usp": ["unique selling point 1", "unique selling point 2"],
  "contentAngles": ["Review", "Unboxing", "Comparison"]
}

Prices are whole Indonesian Rupiah without separators. rating is 0 to 5, viralScore is 0 to 10.`, platform, url)
}

func enrichmentPrompt(in ProductFacts) string {
	return fmt.Sprintf(`Here is a product scraped from %s:
Name: %s
Price: Rp %d
Rating: %.1f
Sold: %s

Derive the marketing analysis for an affiliate content creator. Return JSON with exactly this structure:
{
  "description": "two sentence marketing description",
  "category": "category name",
  "keyFeatures": ["feature 1", "feature 2", "feature 3"],
  "viralScore": 7.5,
  "usp": ["unique selling point 1", "unique selling point 2"],
  "contentAngles": ["Review", "Unboxing", "Comparison"]
}

viralScore is 0 to 10 and reflects how well the product suits short-form video.`,
		in.Platform, in.Name, in.Price, in.Rating, in.SoldCount)
}

func scriptPrompt(in ScriptBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short-form video script for the %s platform using the %s copywriting framework in a %s tone.\n\n",
		in.Platform, in.Framework, in.Tone)
	fmt.Fprintf(&b, "Product: %s\n", in.ProductName)
	fmt.Fprintf(&b, "Description: %s\n", in.Description)
	fmt.Fprintf(&b, "Price: Rp %d\n", in.Price)
	fmt.Fprintf(&b, "Marketplace: %s\n", in.ProductPlatform)
	if in.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", in.Category)
	}
	if len(in.USP) > 0 {
		fmt.Fprintf(&b, "Unique selling points: %s\n", strings.Join(in.USP, "; "))
	}
	b.WriteString(`
Split the script into ordered modules. Allowed module types: hook, problem, solution, benefit, social_proof, cta, custom.
Every module has a spoken content line and a duration in mm:ss. Start with a hook and end with a cta.

Return JSON with exactly this structure:
{
  "title": "script title",
  "score": 85,
  "modules": [
    {"type": "hook", "content": "...", "duration": "00:05"}
  ]
}

score is your 0 to 100 estimate of the script's conversion potential.`)
	return b.String()
}

func regenerationPrompt(in ModuleBrief) string {
	return fmt.Sprintf(`Rewrite one module of a %s video script for %s in a %s tone.
Product: %s
Module type: %s
Current content: %s

Write a different variant with the same purpose and roughly the same length. Reply with the new spoken content only, plain text, no quotes and no labels.`,
		in.Framework, in.Platform, in.Tone, in.ProductName, in.Type, in.CurrentContent)
}
