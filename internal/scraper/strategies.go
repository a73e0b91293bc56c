// internal/scraper/strategies.go
package scraper

import (
	"fmt"
	"regexp"
	"time"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

// Selectors lists candidates per field in priority order. The first
// candidate that matches a node with non-empty text wins, which keeps
// extraction working across marketplace redesigns.
type Selectors struct {
	Name          []string `json:"name"`
	Price         []string `json:"price"`
	OriginalPrice []string `json:"originalPrice"`
	Rating        []string `json:"rating"`
	Sold          []string `json:"sold"`
	Description   []string `json:"description"`
	Images        string   `json:"images"`
}

// arg converts the selectors into plain maps and slices the browser
// driver can serialize.
func (s Selectors) arg() map[string]interface{} {
	list := func(in []string) []interface{} {
		out := make([]interface{}, len(in))
		for i, v := range in {
			out[i] = v
		}
		return out
	}
	return map[string]interface{}{
		"name":          list(s.Name),
		"price":         list(s.Price),
		"originalPrice": list(s.OriginalPrice),
		"rating":        list(s.Rating),
		"sold":          list(s.Sold),
		"description":   list(s.Description),
		"images":        s.Images,
	}
}

type Strategy struct {
	Platform      models.Platform
	ReadySelector string
	Selectors     Selectors
	// Matches the characters dropped from the sold counter.
	SoldCharset *regexp.Regexp
}

var (
	soldCharsetDefault   = regexp.MustCompile(`[^0-9.kK]`)
	soldCharsetTokopedia = regexp.MustCompile(`[^0-9.kKrb]`)
)

var shopeeStrategy = Strategy{
	Platform:      models.PlatformShopee,
	ReadySelector: `[data-testid="pdp-product-title"], .product-title, h1`,
	Selectors: Selectors{
		Name:          []string{`[data-testid="pdp-product-title"]`, `.product-title`, `h1`},
		Price:         []string{`[data-testid="pdp-product-price"]`, `.product-price`, `[class*="price"]`},
		OriginalPrice: []string{`[data-testid="pdp-product-original-price"]`, `.original-price`, `[class*="original"]`},
		Rating:        []string{`[data-testid="pdp-review-summary"]`, `.rating-score`, `[class*="rating"]`},
		Sold:          []string{`[data-testid="pdp-product-sold"]`, `.sold-count`, `[class*="sold"]`},
		Description:   []string{`[data-testid="pdp-product-description"]`, `.product-description`, `[class*="description"]`},
		Images:        `[data-testid="pdp-product-image"], .product-image img, [class*="product-image"] img`,
	},
	SoldCharset: soldCharsetDefault,
}

var tokopediaStrategy = Strategy{
	Platform:      models.PlatformTokopedia,
	ReadySelector: `h1, [data-testid="lblPDPDetailProductName"]`,
	Selectors: Selectors{
		Name:          []string{`[data-testid="lblPDPDetailProductName"]`, `h1`},
		Price:         []string{`[data-testid="lblPDPDetailProductPrice"]`, `[class*="price"]`},
		OriginalPrice: []string{`[data-testid="lblPDPDetailOriginalPrice"]`, `[class*="original-price"]`},
		Rating:        []string{`[data-testid="lblPDPDetailProductRatingNumber"]`, `[class*="rating"]`},
		Sold:          []string{`[data-testid="lblPDPDetailProductSoldCounter"]`, `[class*="sold"]`},
		Description:   []string{`[data-testid="lblPDPDescriptionProduk"]`},
		Images:        `[data-testid="PDPImageMain"] img, .product-media img`,
	},
	SoldCharset: soldCharsetTokopedia,
}

// TikTok Shop pages carry no description node; the name stands in.
var tiktokStrategy = Strategy{
	Platform:      models.PlatformTikTok,
	ReadySelector: `h1, [class*="title"]`,
	Selectors: Selectors{
		Name:   []string{`h1`, `[class*="ProductTitle"]`},
		Price:  []string{`[class*="ProductPrice"]`, `[class*="price"]`},
		Rating: []string{`[class*="rating"]`},
		Sold:   []string{`[class*="sold"]`},
		Images: `[class*="ProductImage"] img, img[alt*="product"]`,
	},
	SoldCharset: soldCharsetDefault,
}

// DefaultStrategies has no lazada entry; lazada links go straight to
// fabrication.
func DefaultStrategies() map[models.Platform]Strategy {
	return map[models.Platform]Strategy{
		models.PlatformShopee:    shopeeStrategy,
		models.PlatformTokopedia: tokopediaStrategy,
		models.PlatformTikTok:    tiktokStrategy,
	}
}

// extractFieldsScript runs in the page with the Selectors as its argument
// and returns raw text only. All parsing happens in Go.
const extractFieldsScript = `(sel) => {
  const pick = (list) => {
    for (const s of (list || [])) {
      const el = document.querySelector(s);
      const text = el && el.textContent ? el.textContent.trim() : '';
      if (text) return text;
    }
    return '';
  };
  const images = sel.images
    ? Array.from(document.querySelectorAll(sel.images))
        .map((img) => img.currentSrc || img.src || img.getAttribute('data-src') || '')
        .filter(Boolean)
    : [];
  return {
    name: pick(sel.name),
    price: pick(sel.price),
    originalPrice: pick(sel.originalPrice),
    rating: pick(sel.rating),
    sold: pick(sel.sold),
    description: pick(sel.description),
    images: images,
  };
}`

// Extract loads url into page and returns the normalized product. Failures
// are *ScrapeError values tagged with the stage that failed.
func (s Strategy) Extract(page Page, url string, navTimeout, selectorTimeout time.Duration) (*RawProduct, error) {
	if err := page.Goto(url, navTimeout); err != nil {
		return nil, s.fail(url, StageNavigate, err)
	}

	if err := page.WaitForSelector(s.ReadySelector, selectorTimeout); err != nil {
		return nil, s.fail(url, StageWaitSelector, err)
	}

	result, err := page.Evaluate(extractFieldsScript, s.Selectors.arg())
	if err != nil {
		return nil, s.fail(url, StageEvaluate, err)
	}

	fields, err := decodeRawFields(result)
	if err != nil {
		return nil, s.fail(url, StageEvaluate, err)
	}

	product, err := s.normalize(fields, url)
	if err != nil {
		return nil, s.fail(url, StageValidate, err)
	}
	return product, nil
}

func (s Strategy) fail(url, stage string, err error) *ScrapeError {
	return &ScrapeError{Platform: s.Platform, URL: url, Stage: stage, Err: err}
}

func decodeRawFields(result interface{}) (rawFields, error) {
	m, ok := result.(map[string]interface{})
	if !ok {
		return rawFields{}, fmt.Errorf("unexpected extractor result %T", result)
	}

	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}

	fields := rawFields{
		Name:          str("name"),
		Price:         str("price"),
		OriginalPrice: str("originalPrice"),
		Rating:        str("rating"),
		Sold:          str("sold"),
		Description:   str("description"),
	}

	switch imgs := m["images"].(type) {
	case []interface{}:
		for _, img := range imgs {
			if src, ok := img.(string); ok {
				fields.Images = append(fields.Images, src)
			}
		}
	case []string:
		fields.Images = imgs
	}
	return fields, nil
}
