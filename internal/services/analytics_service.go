// internal/services/analytics_service.go
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

type AnalyticsService struct {
	db      *gorm.DB
	credits *CreditService
}

type UserAnalytics struct {
	Products       int64                        `json:"products"`
	Scripts        int64                        `json:"scripts"`
	Videos         int64                        `json:"videos"`
	VideosByStatus map[models.VideoStatus]int64 `json:"videosByStatus"`
	AIFallbacks    int64                        `json:"aiFallbackExtractions"`
	CreditsSpent   int                          `json:"creditsSpent"`
	Balance        int                          `json:"balance"`
}

func NewAnalyticsService(db *gorm.DB, credits *CreditService) *AnalyticsService {
	return &AnalyticsService{db: db, credits: credits}
}

func (s *AnalyticsService) UserAnalytics(ctx context.Context, userID string) (*UserAnalytics, error) {
	db := s.db.WithContext(ctx)
	stats := &UserAnalytics{VideosByStatus: make(map[models.VideoStatus]int64)}

	counts := []struct {
		model interface{}
		dest  *int64
		where []interface{}
	}{
		{&models.Product{}, &stats.Products, nil},
		{&models.Product{}, &stats.AIFallbacks, []interface{}{"scraping_method = ?", models.ScrapingMethodAIFallback}},
		{&models.Script{}, &stats.Scripts, nil},
		{&models.Video{}, &stats.Videos, nil},
	}
	for _, c := range counts {
		query := db.Model(c.model).Where("user_id = ?", userID)
		if len(c.where) > 0 {
			query = query.Where(c.where[0], c.where[1:]...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, &PersistenceError{Op: "count analytics", Err: err}
		}
	}

	var rows []struct {
		Status models.VideoStatus
		Total  int64
	}
	if err := db.Model(&models.Video{}).
		Select("status, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, &PersistenceError{Op: "count videos by status", Err: err}
	}
	for _, row := range rows {
		stats.VideosByStatus[row.Status] = row.Total
	}

	spent, err := s.credits.Spent(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.CreditsSpent = spent

	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.Balance = balance

	return stats, nil
}
