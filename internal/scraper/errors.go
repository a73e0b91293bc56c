// internal/scraper/errors.go
package scraper

import (
	"errors"
	"fmt"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

const (
	StageDetect       = "detect"
	StageAcquire      = "acquire"
	StageOpenPage     = "open_page"
	StageNavigate     = "navigate"
	StageWaitSelector = "wait_selector"
	StageEvaluate     = "evaluate"
	StageValidate     = "validate"
	StagePanic        = "panic"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrScraperDisabled     = errors.New("browser scraping is disabled")
	ErrMissingName         = errors.New("product name not found")
	ErrMissingPrice        = errors.New("product price not found")
)

// ScrapeError is recoverable: callers fall back to fabrication on it.
type ScrapeError struct {
	Platform models.Platform
	URL      string
	Stage    string
	Err      error
}

func (e *ScrapeError) Error() string {
	platform := string(e.Platform)
	if platform == "" {
		platform = "unknown"
	}
	return fmt.Sprintf("scrape %s failed at %s: %v", platform, e.Stage, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Unsupported reports whether the URL had no usable strategy at all.
func (e *ScrapeError) Unsupported() bool {
	return errors.Is(e.Err, ErrUnsupportedPlatform)
}
