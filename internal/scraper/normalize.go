// internal/scraper/normalize.go
package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

const (
	DefaultRating        = 4.5
	MaxImages            = 5
	MaxDescriptionLength = 200
)

// RawProduct is the factual part of a product as read from the page.
type RawProduct struct {
	Platform      models.Platform `json:"platform"`
	URL           string          `json:"url"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         int64           `json:"price"`
	OriginalPrice int64           `json:"originalPrice"`
	Rating        float64         `json:"rating"`
	SoldCount     string          `json:"soldCount"`
	Images        []string        `json:"images"`
}

type rawFields struct {
	Name          string
	Price         string
	OriginalPrice string
	Rating        string
	Sold          string
	Description   string
	Images        []string
}

var (
	nonDigits     = regexp.MustCompile(`[^0-9]`)
	ratingPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	soldPattern   = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(?:rb|k)?`)
)

func (s Strategy) normalize(f rawFields, url string) (*RawProduct, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, ErrMissingName
	}

	price := ParsePrice(f.Price)
	if price <= 0 {
		return nil, ErrMissingPrice
	}

	originalPrice := ParsePrice(f.OriginalPrice)
	if originalPrice <= 0 {
		originalPrice = price
	}

	description := strings.TrimSpace(f.Description)
	if description == "" {
		description = name
	}

	charset := s.SoldCharset
	if charset == nil {
		charset = soldCharsetDefault
	}

	return &RawProduct{
		Platform:      s.Platform,
		URL:           url,
		Name:          name,
		Description:   Truncate(description, MaxDescriptionLength),
		Price:         price,
		OriginalPrice: originalPrice,
		Rating:        ParseRating(f.Rating),
		SoldCount:     ParseSoldCount(f.Sold, charset),
		Images:        FilterImages(f.Images),
	}, nil
}

// ParsePrice keeps digits only. For a range ("Rp10.000 - Rp25.000") the
// lower bound is used.
func ParsePrice(text string) int64 {
	if i := strings.IndexAny(text, "-–"); i > 0 {
		text = text[:i]
	}
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseRating falls back to DefaultRating for anything not in (0, 5].
func ParseRating(text string) float64 {
	match := ratingPattern.FindString(text)
	if match == "" {
		return DefaultRating
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v <= 0 || v > 5 {
		return DefaultRating
	}
	return v
}

func ParseSoldCount(text string, charset *regexp.Regexp) string {
	match := soldPattern.FindString(text)
	if match == "" {
		return "0"
	}
	match = strings.ToLower(strings.ReplaceAll(match, ",", "."))
	sold := charset.ReplaceAllString(match, "")
	if sold == "" {
		return "0"
	}
	return sold
}

// FilterImages drops placeholders and duplicates and keeps at most MaxImages.
func FilterImages(images []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, MaxImages)
	for _, src := range images {
		src = strings.TrimSpace(src)
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		if src == "" || seen[src] || strings.Contains(strings.ToLower(src), "placeholder") {
			continue
		}
		seen[src] = true
		out = append(out, src)
		if len(out) == MaxImages {
			break
		}
	}
	return out
}

// Truncate cuts to max runes.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
