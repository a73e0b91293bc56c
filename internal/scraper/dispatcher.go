// internal/scraper/dispatcher.go
package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

// Scraper is what the extraction flow depends on.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*RawProduct, error)
}

// DetectPlatform matches the first known marketplace name contained in the
// URL, case-insensitively.
func DetectPlatform(url string) (models.Platform, bool) {
	lower := strings.ToLower(url)
	for _, p := range models.Platforms {
		if strings.Contains(lower, string(p)) {
			return p, true
		}
	}
	return "", false
}

type Dispatcher struct {
	session    *Session
	strategies map[models.Platform]Strategy
	cfg        config.ScraperConfig
	pages      *semaphore.Weighted
}

func NewDispatcher(cfg config.ScraperConfig, launch LaunchFunc) *Dispatcher {
	maxPages := cfg.MaxConcurrent
	if maxPages < 1 {
		maxPages = 1
	}
	return &Dispatcher{
		session:    NewSession(launch),
		strategies: DefaultStrategies(),
		cfg:        cfg,
		pages:      semaphore.NewWeighted(int64(maxPages)),
	}
}

// Scrape never returns a partial record: the result is either a complete
// RawProduct or a *ScrapeError.
func (d *Dispatcher) Scrape(ctx context.Context, url string) (raw *RawProduct, err error) {
	platform, ok := DetectPlatform(url)
	if !ok {
		return nil, &ScrapeError{URL: url, Stage: StageDetect, Err: ErrUnsupportedPlatform}
	}

	strategy, ok := d.strategies[platform]
	if !ok {
		return nil, &ScrapeError{Platform: platform, URL: url, Stage: StageDetect, Err: ErrUnsupportedPlatform}
	}

	if !d.cfg.Enabled {
		return nil, &ScrapeError{Platform: platform, URL: url, Stage: StageOpenPage, Err: ErrScraperDisabled}
	}

	if d.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		defer cancel()
	}

	if err := d.pages.Acquire(ctx, 1); err != nil {
		return nil, &ScrapeError{Platform: platform, URL: url, Stage: StageAcquire, Err: err}
	}
	defer d.pages.Release(1)

	page, err := d.session.NewPage(ctx)
	if err != nil {
		return nil, &ScrapeError{Platform: platform, URL: url, Stage: StageOpenPage, Err: err}
	}

	var once sync.Once
	closePage := func() {
		once.Do(func() {
			if cerr := page.Close(); cerr != nil {
				logrus.WithError(cerr).WithField("url", url).Debug("Error closing page")
			}
		})
	}
	defer closePage()

	// Page calls block until the driver answers; closing the page is what
	// aborts them once the attempt deadline passes.
	stop := context.AfterFunc(ctx, closePage)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = &ScrapeError{Platform: platform, URL: url, Stage: StagePanic, Err: fmt.Errorf("%v", r)}
		}
	}()

	start := time.Now()
	raw, err = strategy.Extract(page, url, d.cfg.NavigationTimeout, d.cfg.SelectorTimeout)
	if err != nil {
		if ctx.Err() != nil {
			if se, ok := err.(*ScrapeError); ok {
				se.Err = fmt.Errorf("%w (%v)", ctx.Err(), se.Err)
			}
		}
		return nil, err
	}

	if len(raw.Images) == 0 {
		raw.Images = []string{models.PlaceholderProductImage}
	}

	logrus.WithFields(logrus.Fields{
		"platform": platform,
		"duration": time.Since(start).Milliseconds(),
	}).Info("Product page scraped")
	return raw, nil
}

func (d *Dispatcher) Close() error {
	return d.session.Close()
}
