// internal/scraper/playwright.go
package scraper

import (
	"context"
	"fmt"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
)

var chromiumArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-accelerated-2d-canvas",
	"--disable-gpu",
	"--window-size=1920,1080",
}

type playwrightBrowser struct {
	runner  *pw.Playwright
	browser pw.Browser
	cfg     config.ScraperConfig
}

// PlaywrightLauncher starts Chromium through the playwright driver.
func PlaywrightLauncher(cfg config.ScraperConfig) LaunchFunc {
	return func() (Browser, error) {
		runner, err := pw.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start playwright: %w", err)
		}

		opts := pw.BrowserTypeLaunchOptions{
			Headless: pw.Bool(cfg.Headless),
			Args:     chromiumArgs,
		}
		if cfg.ExecutablePath != "" {
			opts.ExecutablePath = pw.String(cfg.ExecutablePath)
		}

		browser, err := runner.Chromium.Launch(opts)
		if err != nil {
			runner.Stop()
			return nil, fmt.Errorf("failed to launch chromium: %w", err)
		}

		return &playwrightBrowser{runner: runner, browser: browser, cfg: cfg}, nil
	}
}

// Each page gets its own browser context so cookies and storage never leak
// between requests.
func (b *playwrightBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bctx, err := b.browser.NewContext(pw.BrowserNewContextOptions{
		UserAgent: pw.String(b.cfg.UserAgent),
		Viewport:  &pw.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &playwrightPage{page: page, context: bctx}, nil
}

func (b *playwrightBrowser) Connected() bool {
	return b.browser.IsConnected()
}

func (b *playwrightBrowser) Close() error {
	if err := b.browser.Close(); err != nil {
		b.runner.Stop()
		return err
	}
	return b.runner.Stop()
}

type playwrightPage struct {
	page    pw.Page
	context pw.BrowserContext
}

func (p *playwrightPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(millis(timeout)),
	})
	return err
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().WaitFor(pw.LocatorWaitForOptions{
		Timeout: pw.Float(millis(timeout)),
	})
}

func (p *playwrightPage) Evaluate(expression string, arg interface{}) (interface{}, error) {
	return p.page.Evaluate(expression, arg)
}

func (p *playwrightPage) Close() error {
	pageErr := p.page.Close()
	ctxErr := p.context.Close()
	if pageErr != nil {
		return pageErr
	}
	return ctxErr
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
