// internal/scraper/browser.go
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Page is one isolated browser tab owned by a single scrape call.
type Page interface {
	Goto(url string, timeout time.Duration) error
	WaitForSelector(selector string, timeout time.Duration) error
	Evaluate(expression string, arg interface{}) (interface{}, error)
	Close() error
}

// Browser is the long-lived browser process pages are opened against.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Connected() bool
	Close() error
}

type LaunchFunc func() (Browser, error)

// Session starts the browser on first use and shares it between calls.
type Session struct {
	mu      sync.Mutex
	launch  LaunchFunc
	browser Browser
}

func NewSession(launch LaunchFunc) *Session {
	return &Session{launch: launch}
}

func (s *Session) get() (Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	logrus.Info("Launching headless browser")
	browser, err := s.launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	s.browser = browser
	return browser, nil
}

// NewPage opens a page, relaunching the browser once if the current process
// has died. Other failures leave the shared browser alone, since pages of
// concurrent requests still live on it.
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	browser, err := s.get()
	if err != nil {
		return nil, err
	}

	page, err := browser.NewPage(ctx)
	if err == nil {
		return page, nil
	}
	if ctx.Err() != nil || browser.Connected() {
		return nil, err
	}

	logrus.WithError(err).Warn("Browser disconnected, relaunching")
	s.reset(browser)

	browser, err = s.get()
	if err != nil {
		return nil, err
	}
	return browser.NewPage(ctx)
}

func (s *Session) reset(stale Browser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != stale {
		return
	}
	if err := s.browser.Close(); err != nil {
		logrus.WithError(err).Debug("Error closing stale browser")
	}
	s.browser = nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}
