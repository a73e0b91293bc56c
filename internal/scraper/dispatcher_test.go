// internal/scraper/dispatcher_test.go
package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

type fakePage struct {
	gotoErr   error
	waitErr   error
	result    interface{}
	panicOn   string
	blockGoto bool

	mu       sync.Mutex
	closed   bool
	closedCh chan struct{}
	selector string
}

func newFakePage() *fakePage {
	return &fakePage{closedCh: make(chan struct{})}
}

func (p *fakePage) Goto(url string, timeout time.Duration) error {
	if p.panicOn == "goto" {
		panic("driver crashed")
	}
	if p.blockGoto {
		<-p.closedCh
		return errors.New("target closed")
	}
	return p.gotoErr
}

func (p *fakePage) WaitForSelector(selector string, timeout time.Duration) error {
	p.mu.Lock()
	p.selector = selector
	p.mu.Unlock()
	return p.waitErr
}

func (p *fakePage) Evaluate(expression string, arg interface{}) (interface{}, error) {
	return p.result, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.closedCh)
	}
	return nil
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeBrowser struct {
	mu           sync.Mutex
	pages        []*fakePage
	next         int
	opened       int32
	closed       int32
	newPageErr   error
	disconnected bool
	closeErr     error
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	atomic.AddInt32(&b.opened, 1)
	p := b.pages[b.next%len(b.pages)]
	b.next++
	return p, nil
}

func (b *fakeBrowser) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.disconnected
}

func (b *fakeBrowser) Close() error {
	atomic.AddInt32(&b.closed, 1)
	return b.closeErr
}

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		Enabled:           true,
		NavigationTimeout: time.Second,
		SelectorTimeout:   time.Second,
		AttemptTimeout:    time.Second,
		MaxConcurrent:     2,
	}
}

func shopeeResult() map[string]interface{} {
	return map[string]interface{}{
		"name":          "Serum Vitamin C 20ml",
		"price":         "Rp89.000",
		"originalPrice": "Rp150.000",
		"rating":        "4.8 dari 5",
		"sold":          "1,2RB terjual",
		"description":   "Serum wajah pencerah",
		"images":        []interface{}{"https://cdn/a.jpg", "https://cdn/placeholder.png", "https://cdn/b.jpg"},
	}
}

func TestDetectPlatform(t *testing.T) {
	cases := map[string]models.Platform{
		"https://shopee.co.id/product/1":            models.PlatformShopee,
		"https://WWW.TOKOPEDIA.com/store/item":      models.PlatformTokopedia,
		"https://shop.tiktok.com/view/product/123":  models.PlatformTikTok,
		"https://www.lazada.co.id/products/i1.html": models.PlatformLazada,
	}
	for url, want := range cases {
		got, ok := DetectPlatform(url)
		assert.True(t, ok, url)
		assert.Equal(t, want, got, url)
	}

	_, ok := DetectPlatform("https://example.com/item")
	assert.False(t, ok)
}

func TestScrapeSuccessClosesPage(t *testing.T) {
	page := newFakePage()
	page.result = shopeeResult()
	browser := &fakeBrowser{pages: []*fakePage{page}}
	d := NewDispatcher(testScraperConfig(), func() (Browser, error) { return browser, nil })

	raw, err := d.Scrape(context.Background(), "https://shopee.co.id/serum")
	require.NoError(t, err)

	assert.Equal(t, models.PlatformShopee, raw.Platform)
	assert.Equal(t, "Serum Vitamin C 20ml", raw.Name)
	assert.Equal(t, int64(89000), raw.Price)
	assert.Equal(t, int64(150000), raw.OriginalPrice)
	assert.Equal(t, 4.8, raw.Rating)
	assert.Equal(t, "1.2", raw.SoldCount)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, raw.Images)
	assert.True(t, page.isClosed())
	assert.Equal(t, shopeeStrategy.ReadySelector, page.selector)
}

func TestScrapeUnsupportedPlatforms(t *testing.T) {
	launched := false
	d := NewDispatcher(testScraperConfig(), func() (Browser, error) {
		launched = true
		return &fakeBrowser{}, nil
	})

	for _, url := range []string{"https://www.lazada.co.id/products/x", "https://example.com/x"} {
		_, err := d.Scrape(context.Background(), url)
		var se *ScrapeError
		require.ErrorAs(t, err, &se)
		assert.True(t, se.Unsupported())
		assert.Equal(t, StageDetect, se.Stage)
	}
	assert.False(t, launched, "browser must not start for unsupported urls")
}

func TestScrapeSelectorTimeoutIsScrapeError(t *testing.T) {
	page := newFakePage()
	page.waitErr = errors.New("Timeout 10000ms exceeded")
	d := NewDispatcher(testScraperConfig(), func() (Browser, error) {
		return &fakeBrowser{pages: []*fakePage{page}}, nil
	})

	_, err := d.Scrape(context.Background(), "https://tokopedia.com/x")
	var se *ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageWaitSelector, se.Stage)
	assert.True(t, page.isClosed())
}

func TestScrapeMissingPriceFailsLoudly(t *testing.T) {
	page := newFakePage()
	result := shopeeResult()
	result["price"] = "Hubungi penjual"
	page.result = result
	d := NewDispatcher(testScraperConfig(), func() (Browser, error) {
		return &fakeBrowser{pages: []*fakePage{page}}, nil
	})

	_, err := d.Scrape(context.Background(), "https://shopee.co.id/x")
	var se *ScrapeError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, ErrMissingPrice)
	assert.True(t, page.isClosed())
}

func TestScrapeAttemptDeadlineClosesHungPage(t *testing.T) {
	page := newFakePage()
	page.blockGoto = true
	cfg := testScraperConfig()
	cfg.AttemptTimeout = 50 * time.Millisecond
	d := NewDispatcher(cfg, func() (Browser, error) {
		return &fakeBrowser{pages: []*fakePage{page}}, nil
	})

	_, err := d.Scrape(context.Background(), "https://shopee.co.id/x")
	var se *ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageNavigate, se.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, page.isClosed())
}

func TestScrapePanicIsRecoveredAndPageClosed(t *testing.T) {
	page := newFakePage()
	page.panicOn = "goto"
	d := NewDispatcher(testScraperConfig(), func() (Browser, error) {
		return &fakeBrowser{pages: []*fakePage{page}}, nil
	})

	raw, err := d.Scrape(context.Background(), "https://shopee.co.id/x")
	assert.Nil(t, raw)
	var se *ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePanic, se.Stage)
	assert.True(t, page.isClosed())
}

func TestScrapeDisabled(t *testing.T) {
	cfg := testScraperConfig()
	cfg.Enabled = false
	d := NewDispatcher(cfg, func() (Browser, error) { return nil, errors.New("should not launch") })

	_, err := d.Scrape(context.Background(), "https://shopee.co.id/x")
	assert.ErrorIs(t, err, ErrScraperDisabled)
}

func TestScrapeAddsPlaceholderImage(t *testing.T) {
	page := newFakePage()
	result := shopeeResult()
	result["images"] = []interface{}{}
	page.result = result
	d := NewDispatcher(testScraperConfig(), func() (Browser, error) {
		return &fakeBrowser{pages: []*fakePage{page}}, nil
	})

	raw, err := d.Scrape(context.Background(), "https://shopee.co.id/x")
	require.NoError(t, err)
	assert.Equal(t, []string{models.PlaceholderProductImage}, raw.Images)
}

func TestSessionLaunchesOnce(t *testing.T) {
	var launches int32
	browser := &fakeBrowser{pages: []*fakePage{newFakePage()}}
	s := NewSession(func() (Browser, error) {
		atomic.AddInt32(&launches, 1)
		return browser, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.get()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&launches))
	require.NoError(t, s.Close())
}

func TestSessionKeepsBrowserWhenCallerCancels(t *testing.T) {
	var launches int32
	browser := &fakeBrowser{pages: []*fakePage{newFakePage()}}
	s := NewSession(func() (Browser, error) {
		atomic.AddInt32(&launches, 1)
		return browser, nil
	})

	open, err := s.NewPage(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.NewPage(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, int32(1), atomic.LoadInt32(&launches))
	assert.Zero(t, atomic.LoadInt32(&browser.closed))
	assert.False(t, open.(*fakePage).isClosed())
}

func TestSessionKeepsConnectedBrowserOnPageError(t *testing.T) {
	var launches int32
	browser := &fakeBrowser{pages: []*fakePage{newFakePage()}, newPageErr: errors.New("context quota reached")}
	s := NewSession(func() (Browser, error) {
		atomic.AddInt32(&launches, 1)
		return browser, nil
	})

	_, err := s.NewPage(context.Background())
	assert.EqualError(t, err, "context quota reached")
	assert.Equal(t, int32(1), atomic.LoadInt32(&launches))
	assert.Zero(t, atomic.LoadInt32(&browser.closed))
}

func TestSessionRelaunchesDisconnectedBrowser(t *testing.T) {
	dead := &fakeBrowser{newPageErr: errors.New("browser has been closed"), disconnected: true}
	fresh := &fakeBrowser{pages: []*fakePage{newFakePage()}}
	browsers := []*fakeBrowser{dead, fresh}
	var launches int32
	s := NewSession(func() (Browser, error) {
		n := atomic.AddInt32(&launches, 1)
		return browsers[n-1], nil
	})

	page, err := s.NewPage(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Equal(t, int32(2), atomic.LoadInt32(&launches))
	assert.Equal(t, int32(1), atomic.LoadInt32(&dead.closed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fresh.opened))
}
