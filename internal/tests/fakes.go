// internal/tests/fakes.go
package tests

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/scraper"
)

const (
	FabricatedProductJSON = `{
		"name": "Smartwatch Ultra 8",
		"description": "Smartwatch with AMOLED screen and 7 day battery",
		"price": 100000,
		"originalPrice": 150000,
		"rating": 4.8,
		"soldCount": "1.2k",
		"images": ["https://cdn.example.com/watch.jpg"],
		"category": "Wearables",
		"keyFeatures": ["AMOLED", "7 day battery", "IP68"],
		"viralScore": 8.5,
		"usp": ["Cheapest AMOLED watch"],
		"contentAngles": ["Review", "Unboxing", "Comparison"]
	}`

	EnrichmentJSON = `{
		"description": "Compact speaker with deep bass.",
		"category": "Audio",
		"keyFeatures": ["Bluetooth 5.3", "12h battery"],
		"viralScore": 7.2,
		"usp": ["Loud for its size"],
		"contentAngles": ["Review", "Before/After"]
	}`

	// Four modules adding up to 00:35.
	ScriptJSON = `{
		"title": "This watch replaced my phone",
		"modules": [
			{"type": "hook", "content": "Stop scrolling, look at this watch!", "duration": "00:05"},
			{"type": "problem", "content": "Tired of charging every night?", "duration": "00:10"},
			{"type": "solution", "content": "Seven days on one charge.", "duration": "00:15"},
			{"type": "cta", "content": "Tap the yellow cart now.", "duration": "00:05"}
		]
	}`

	RegeneratedContent = "Wait, this watch lasts a whole week?"
)

type PromptKind string

const (
	KindFabrication  PromptKind = "fabrication"
	KindEnrichment   PromptKind = "enrichment"
	KindScript       PromptKind = "script"
	KindRegeneration PromptKind = "regeneration"
)

// FakeCompleter answers each prompt shape with a canned response.
type FakeCompleter struct {
	mu        sync.Mutex
	Responses map[PromptKind]string
	Errors    map[PromptKind]error
	calls     map[PromptKind]int
}

func NewFakeCompleter() *FakeCompleter {
	return &FakeCompleter{
		Responses: map[PromptKind]string{
			KindFabrication:  FabricatedProductJSON,
			KindEnrichment:   EnrichmentJSON,
			KindScript:       ScriptJSON,
			KindRegeneration: RegeneratedContent,
		},
		Errors: map[PromptKind]error{},
		calls:  map[PromptKind]int{},
	}
}

func classify(prompt string, expectJSON bool) PromptKind {
	switch {
	case !expectJSON:
		return KindRegeneration
	case strings.Contains(prompt, "sample extraction"):
		return KindFabrication
	case strings.Contains(prompt, "copywriting framework"):
		return KindScript
	default:
		return KindEnrichment
	}
}

func (f *FakeCompleter) Complete(ctx context.Context, prompt string, expectJSON bool) (string, error) {
	kind := classify(prompt, expectJSON)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind]++
	if err := f.Errors[kind]; err != nil {
		return "", err
	}
	return f.Responses[kind], nil
}

func (f *FakeCompleter) Set(kind PromptKind, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[kind] = response
}

func (f *FakeCompleter) Fail(kind PromptKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[kind] = err
}

func (f *FakeCompleter) Calls(kind PromptKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

// FakeScraper returns Result, or Err when it is set.
type FakeScraper struct {
	Result *scraper.RawProduct
	Err    error
	Delay  time.Duration
	calls  int32
}

func (f *FakeScraper) Scrape(ctx context.Context, url string) (*scraper.RawProduct, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, &scraper.ScrapeError{URL: url, Stage: scraper.StageNavigate, Err: ctx.Err()}
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	raw := *f.Result
	raw.URL = url
	return &raw, nil
}

func (f *FakeScraper) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

// ScrapeTimeout is the error a dispatcher returns when navigation hangs.
func ScrapeTimeout(platform models.Platform) error {
	return &scraper.ScrapeError{Platform: platform, Stage: scraper.StageNavigate, Err: context.DeadlineExceeded}
}

func ScrapedSpeaker() *scraper.RawProduct {
	return &scraper.RawProduct{
		Platform:      models.PlatformTokopedia,
		Name:          "Mini Speaker X2",
		Description:   "Mini Speaker X2",
		Price:         250000,
		OriginalPrice: 300000,
		Rating:        4.7,
		SoldCount:     "2rb",
		Images:        []string{"https://images.tokopedia.net/speaker.jpg"},
	}
}
