// internal/handlers/analytics.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GET /analytics/:userId
func (h *AnalyticsHandler) GetUserAnalytics(c *gin.Context) {
	userID, ok := ownerFor(c, c.Param("userId"))
	if !ok {
		return
	}

	stats, err := h.analyticsService.UserAnalytics(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, gin.H{"stats": stats})
}
