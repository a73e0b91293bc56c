// internal/ai/enricher.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

type Mode string

const (
	ModeFabrication  Mode = "fabrication"
	ModeEnrichment   Mode = "enrichment"
	ModeScript       Mode = "script"
	ModeRegeneration Mode = "regeneration"
)

// EnrichmentError is a failed or unusable model response. It is terminal for
// the request that triggered it.
type EnrichmentError struct {
	Mode   Mode
	Reason string
	Raw    string
	Err    error
}

func (e *EnrichmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai %s: %s: %v", e.Mode, e.Reason, e.Err)
	}
	return fmt.Sprintf("ai %s: %s", e.Mode, e.Reason)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// Inputs

type ProductFacts struct {
	Platform  models.Platform
	Name      string
	Price     int64
	Rating    float64
	SoldCount string
}

type ScriptBrief struct {
	ProductName     string
	Description     string
	Price           int64
	ProductPlatform models.Platform
	Category        string
	USP             []string
	Framework       models.Framework
	Platform        models.ContentPlatform
	Tone            models.Tone
}

type ModuleBrief struct {
	ProductName    string
	Type           models.ModuleType
	Framework      models.Framework
	Platform       models.ContentPlatform
	Tone           models.Tone
	CurrentContent string
}

// Outputs

// ProductDraft is a complete product record produced without any scraped input.
type ProductDraft struct {
	Name          string
	Description   string
	Price         int64
	OriginalPrice int64
	Rating        float64
	SoldCount     string
	Images        []string
	Category      string
	KeyFeatures   []string
	ViralScore    float64
	USP           []string
	ContentAngles []string
}

// ProductInsights holds the subjective fields layered over a scraped product.
type ProductInsights struct {
	Description   string
	Category      string
	KeyFeatures   []string
	ViralScore    float64
	USP           []string
	ContentAngles []string
}

type ModuleDraft struct {
	Type     models.ModuleType
	Content  string
	Duration string
}

type ScriptDraft struct {
	Title   string
	Score   *float64
	Modules []ModuleDraft
}

// Enricher wraps a Completer with the four prompt shapes and their output
// contracts.
type Enricher struct {
	completer Completer
	timeout   time.Duration
}

func NewEnricher(completer Completer, timeout time.Duration) *Enricher {
	return &Enricher{completer: completer, timeout: timeout}
}

func (e *Enricher) complete(ctx context.Context, mode Mode, prompt string, expectJSON bool) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := e.completer.Complete(ctx, prompt, expectJSON)
	if err != nil {
		return "", &EnrichmentError{Mode: mode, Reason: "completion failed", Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"mode":     mode,
		"duration": time.Since(start).String(),
		"bytes":    len(out),
	}).Debug("AI completion finished")

	return out, nil
}

func (e *Enricher) FabricateProduct(ctx context.Context, url string, platform models.Platform) (*ProductDraft, error) {
	out, err := e.complete(ctx, ModeFabrication, fabricationPrompt(url, platform), true)
	if err != nil {
		return nil, err
	}

	var payload productPayload
	if err := decodeJSON(out, &payload); err != nil {
		return nil, &EnrichmentError{Mode: ModeFabrication, Reason: "malformed JSON", Raw: out, Err: err}
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return nil, &EnrichmentError{Mode: ModeFabrication, Reason: "missing name", Raw: out}
	}
	price := payload.Price.Int64()
	if price <= 0 {
		return nil, &EnrichmentError{Mode: ModeFabrication, Reason: "missing price", Raw: out}
	}

	draft := &ProductDraft{
		Name:          name,
		Description:   strings.TrimSpace(payload.Description),
		Price:         price,
		OriginalPrice: payload.OriginalPrice.Int64(),
		Rating:        float64(payload.Rating),
		SoldCount:     strings.TrimSpace(string(payload.SoldCount)),
		Images:        cleanList(payload.Images),
		Category:      strings.TrimSpace(payload.Category),
		KeyFeatures:   cleanList(payload.KeyFeatures),
		ViralScore:    float64(payload.ViralScore),
		USP:           cleanList(payload.USP),
		ContentAngles: cleanList(payload.ContentAngles),
	}
	if draft.Description == "" {
		draft.Description = draft.Name
	}
	if draft.OriginalPrice < draft.Price {
		draft.OriginalPrice = draft.Price
	}
	return draft, nil
}

func (e *Enricher) EnrichProduct(ctx context.Context, facts ProductFacts) (*ProductInsights, error) {
	out, err := e.complete(ctx, ModeEnrichment, enrichmentPrompt(facts), true)
	if err != nil {
		return nil, err
	}

	var payload productPayload
	if err := decodeJSON(out, &payload); err != nil {
		return nil, &EnrichmentError{Mode: ModeEnrichment, Reason: "malformed JSON", Raw: out, Err: err}
	}

	category := strings.TrimSpace(payload.Category)
	if category == "" {
		return nil, &EnrichmentError{Mode: ModeEnrichment, Reason: "missing category", Raw: out}
	}

	return &ProductInsights{
		Description:   strings.TrimSpace(payload.Description),
		Category:      category,
		KeyFeatures:   cleanList(payload.KeyFeatures),
		ViralScore:    float64(payload.ViralScore),
		USP:           cleanList(payload.USP),
		ContentAngles: cleanList(payload.ContentAngles),
	}, nil
}

func (e *Enricher) GenerateScript(ctx context.Context, brief ScriptBrief) (*ScriptDraft, error) {
	out, err := e.complete(ctx, ModeScript, scriptPrompt(brief), true)
	if err != nil {
		return nil, err
	}

	var payload scriptPayload
	if err := decodeJSON(out, &payload); err != nil {
		return nil, &EnrichmentError{Mode: ModeScript, Reason: "malformed JSON", Raw: out, Err: err}
	}

	draft := &ScriptDraft{Title: strings.TrimSpace(payload.Title)}
	if draft.Title == "" {
		return nil, &EnrichmentError{Mode: ModeScript, Reason: "missing title", Raw: out}
	}
	if len(payload.Modules) == 0 {
		return nil, &EnrichmentError{Mode: ModeScript, Reason: "no modules", Raw: out}
	}
	if payload.Score != nil {
		score := math.Max(0, math.Min(100, float64(*payload.Score)))
		draft.Score = &score
	}

	for i, m := range payload.Modules {
		moduleType := normalizeModuleType(m.Type)
		if !moduleType.Valid() {
			return nil, &EnrichmentError{Mode: ModeScript, Reason: fmt.Sprintf("module %d has unknown type %q", i, m.Type), Raw: out}
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return nil, &EnrichmentError{Mode: ModeScript, Reason: fmt.Sprintf("module %d has no content", i), Raw: out}
		}
		secs, err := utils.ParseDuration(m.Duration)
		if err != nil {
			return nil, &EnrichmentError{Mode: ModeScript, Reason: fmt.Sprintf("module %d has a bad duration", i), Raw: out, Err: err}
		}
		draft.Modules = append(draft.Modules, ModuleDraft{
			Type:     moduleType,
			Content:  content,
			Duration: utils.FormatDuration(secs),
		})
	}

	return draft, nil
}

// RegenerateModule returns replacement content for one module as plain text.
func (e *Enricher) RegenerateModule(ctx context.Context, brief ModuleBrief) (string, error) {
	out, err := e.complete(ctx, ModeRegeneration, regenerationPrompt(brief), false)
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(out)
	content = strings.Trim(content, "\"“”")
	content = strings.TrimSpace(content)
	if content == "" {
		return "", &EnrichmentError{Mode: ModeRegeneration, Reason: "empty response", Raw: out}
	}
	return content, nil
}

// Wire shapes. Models drift on number formatting, so numeric fields accept
// both JSON numbers and numeric strings.

type productPayload struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Price         flexNumber  `json:"price"`
	OriginalPrice flexNumber  `json:"originalPrice"`
	Rating        flexNumber  `json:"rating"`
	SoldCount     looseString `json:"soldCount"`
	Images        []string    `json:"images"`
	Category      string      `json:"category"`
	KeyFeatures   []string    `json:"keyFeatures"`
	ViralScore    flexNumber  `json:"viralScore"`
	USP           []string    `json:"usp"`
	ContentAngles []string    `json:"contentAngles"`
}

type scriptPayload struct {
	Title   string      `json:"title"`
	Score   *flexNumber `json:"score"`
	Modules []struct {
		Type     string `json:"type"`
		Content  string `json:"content"`
		Duration string `json:"duration"`
	} `json:"modules"`
}

var numericNoise = regexp.MustCompile(`[^0-9.\-]`)

type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		// "Rp 150.000" style values use the dot as a thousands separator.
		if strings.Count(s, ".") > 1 || strings.HasPrefix(strings.ToLower(s), "rp") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
		s = numericNoise.ReplaceAllString(s, "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = flexNumber(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

func (n flexNumber) Int64() int64 { return int64(math.Round(float64(n))) }

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(string(data))
	return nil
}

func decodeJSON(raw string, dst interface{}) error {
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" || cleaned[0] != '{' {
		return errors.New("response is not a JSON object")
	}
	return json.Unmarshal([]byte(cleaned), dst)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeModuleType(s string) models.ModuleType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return models.ModuleType(s)
}
