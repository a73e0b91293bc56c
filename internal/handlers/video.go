// internal/handlers/video.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

type VideoHandler struct {
	videoService *services.VideoService
}

func NewVideoHandler(videoService *services.VideoService) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

// POST /generate-video
// Returns as soon as the render is queued; clients poll the video.
func (h *VideoHandler) GenerateVideo(c *gin.Context) {
	var req services.GenerateVideoRequest
	if !bindRequest(c, &req, &req.UserID) {
		return
	}

	result, err := h.videoService.GenerateVideo(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, i18n.KeyVideoQueueFailed)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /videos/:userId
func (h *VideoHandler) GetVideos(c *gin.Context) {
	userID, ok := ownerFor(c, c.Param("userId"))
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	videos, total, err := h.videoService.ListVideos(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(videos, total, params))
}

// GET /videos/:userId/:id
func (h *VideoHandler) GetVideo(c *gin.Context) {
	userID, ok := ownerFor(c, c.Param("userId"))
	if !ok {
		return
	}

	video, err := h.videoService.GetVideo(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, gin.H{"video": video})
}

// DELETE /videos/:id
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	userID, ok := ownerFor(c, c.Query("userId"))
	if !ok {
		return
	}

	if err := h.videoService.DeleteVideo(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyVideoDeleted),
	})
}
