// internal/services/extraction_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/ai"
	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/scraper"
)

// ExtractionService turns a marketplace URL into a stored Product. Scraping
// failures are recovered by fabricating the record, so the only errors that
// reach the caller are credits, AI output, persistence and unknown URLs.
type ExtractionService struct {
	db       *gorm.DB
	credits  *CreditService
	scraper  scraper.Scraper
	enricher *ai.Enricher
	events   events.Publisher
}

type ExtractProductRequest struct {
	URL    string `json:"url" validate:"required,product_url"`
	UserID string `json:"userId" validate:"required,user_id"`
}

type ExtractionResult struct {
	Product          *models.Product       `json:"product"`
	ScrapingMethod   models.ScrapingMethod `json:"scrapingMethod"`
	CreditsUsed      int                   `json:"creditsUsed"`
	CreditsRemaining int                   `json:"creditsRemaining"`
}

func NewExtractionService(db *gorm.DB, credits *CreditService, s scraper.Scraper, enricher *ai.Enricher, publisher events.Publisher) *ExtractionService {
	return &ExtractionService{
		db:       db,
		credits:  credits,
		scraper:  s,
		enricher: enricher,
		events:   publisher,
	}
}

func (s *ExtractionService) ExtractProduct(ctx context.Context, req *ExtractProductRequest) (*ExtractionResult, error) {
	url := strings.TrimSpace(req.URL)
	platform, ok := scraper.DetectPlatform(url)
	if !ok {
		return nil, &UnsupportedPlatformError{URL: url}
	}

	reservation, err := s.credits.Reserve(ctx, req.UserID, models.CreditOperationExtraction)
	if err != nil {
		return nil, err
	}

	product, err := s.buildProduct(ctx, url, platform)
	if err != nil {
		s.credits.releaseQuietly(reservation)
		return nil, err
	}
	product.UserID = req.UserID
	product.ProductURL = url
	product.Platform = platform
	product.Normalize()

	var remaining int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return &PersistenceError{Op: "save product", Err: err}
		}
		if err := s.credits.CommitTx(tx, reservation); err != nil {
			return err
		}
		var err error
		remaining, err = s.credits.balanceTx(tx, req.UserID)
		return err
	})
	if err != nil {
		s.credits.releaseQuietly(reservation)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"product_id": product.ID,
		"platform":   platform,
		"method":     product.ScrapingMethod,
	}).Info("Product extracted")

	s.credits.emitCommitted(ctx, reservation, product.ID.String())
	events.Emit(ctx, s.events, events.Event{
		Type:      events.ProductExtracted,
		UserID:    req.UserID,
		SubjectID: product.ID.String(),
		Payload: map[string]interface{}{
			"platform":       platform,
			"scrapingMethod": product.ScrapingMethod,
			"viralScore":     product.ViralScore,
		},
	})

	return &ExtractionResult{
		Product:          product,
		ScrapingMethod:   product.ScrapingMethod,
		CreditsUsed:      reservation.Cost,
		CreditsRemaining: remaining,
	}, nil
}

// buildProduct scrapes and enriches, or fabricates when the scrape fails.
func (s *ExtractionService) buildProduct(ctx context.Context, url string, platform models.Platform) (*models.Product, error) {
	raw, scrapeErr := s.scraper.Scrape(ctx, url)
	if scrapeErr == nil {
		insights, err := s.enricher.EnrichProduct(ctx, ai.ProductFacts{
			Platform:  raw.Platform,
			Name:      raw.Name,
			Price:     raw.Price,
			Rating:    raw.Rating,
			SoldCount: raw.SoldCount,
		})
		if err != nil {
			return nil, err
		}
		return mergeScraped(raw, insights), nil
	}

	// A cancelled request is not a scrape failure worth paying an AI call for.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry := logrus.WithError(scrapeErr).WithFields(logrus.Fields{"url": url, "platform": platform})
	var se *scraper.ScrapeError
	switch {
	case errors.As(scrapeErr, &se) && se.Unsupported():
		entry.Info("No scraping strategy for platform, fabricating product")
	case se != nil:
		entry.WithField("stage", se.Stage).Warn("Scrape failed, falling back to AI extraction")
	default:
		entry.Warn("Scrape failed, falling back to AI extraction")
	}

	draft, err := s.enricher.FabricateProduct(ctx, url, platform)
	if err != nil {
		return nil, err
	}
	return fromDraft(draft), nil
}

// mergeScraped keeps the scraped facts and takes the subjective fields from
// the model.
func mergeScraped(raw *scraper.RawProduct, insights *ai.ProductInsights) *models.Product {
	original := raw.OriginalPrice
	p := &models.Product{
		Name:           raw.Name,
		Description:    raw.Description,
		Price:          raw.Price,
		OriginalPrice:  &original,
		Rating:         raw.Rating,
		SoldCount:      raw.SoldCount,
		Images:         datatypes.JSONSlice[string](raw.Images),
		Category:       insights.Category,
		KeyFeatures:    datatypes.JSONSlice[string](insights.KeyFeatures),
		ViralScore:     insights.ViralScore,
		USP:            datatypes.JSONSlice[string](insights.USP),
		ContentAngles:  datatypes.JSONSlice[string](insights.ContentAngles),
		ScrapingMethod: models.ScrapingMethodBrowser,
	}
	if insights.Description != "" {
		p.Description = insights.Description
	}
	return p
}

func fromDraft(d *ai.ProductDraft) *models.Product {
	original := d.OriginalPrice
	soldCount := d.SoldCount
	if soldCount == "" {
		soldCount = "0"
	}
	return &models.Product{
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		OriginalPrice:  &original,
		Rating:         d.Rating,
		SoldCount:      soldCount,
		Images:         datatypes.JSONSlice[string](scraper.FilterImages(d.Images)),
		Category:       d.Category,
		KeyFeatures:    datatypes.JSONSlice[string](d.KeyFeatures),
		ViralScore:     d.ViralScore,
		USP:            datatypes.JSONSlice[string](d.USP),
		ContentAngles:  datatypes.JSONSlice[string](d.ContentAngles),
		ScrapingMethod: models.ScrapingMethodAIFallback,
	}
}
