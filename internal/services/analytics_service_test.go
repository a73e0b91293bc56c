// internal/services/analytics_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/tests"
)

func TestUserAnalytics(t *testing.T) {
	h := newHarness(t, 300)
	h.requestVideo(t)

	h.scraper.Err = tests.ScrapeTimeout(models.PlatformShopee)
	h.extract(t, testUser)
	h.extract(t, "user-2")

	stats, err := NewAnalyticsService(h.db, h.credits).UserAnalytics(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Products)
	assert.Equal(t, int64(1), stats.AIFallbacks)
	assert.Equal(t, int64(1), stats.Scripts)
	assert.Equal(t, int64(1), stats.Videos)
	assert.Equal(t, int64(1), stats.VideosByStatus[models.VideoStatusProcessing])
	assert.Equal(t, 90, stats.CreditsSpent)
	assert.Equal(t, 210, stats.Balance)
}
