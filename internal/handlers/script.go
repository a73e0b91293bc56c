// internal/handlers/script.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

type ScriptHandler struct {
	scriptService *services.ScriptService
}

func NewScriptHandler(scriptService *services.ScriptService) *ScriptHandler {
	return &ScriptHandler{scriptService: scriptService}
}

// POST /generate-script
func (h *ScriptHandler) GenerateScript(c *gin.Context) {
	var req services.GenerateScriptRequest
	if !bindRequest(c, &req, &req.UserID) {
		return
	}

	result, err := h.scriptService.GenerateScript(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, i18n.KeyScriptGenerateFailed)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /scripts/:userId
func (h *ScriptHandler) GetScripts(c *gin.Context) {
	userID, ok := ownerFor(c, c.Param("userId"))
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	scripts, total, err := h.scriptService.ListScripts(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(scripts, total, params))
}

// DELETE /scripts/:id
func (h *ScriptHandler) DeleteScript(c *gin.Context) {
	userID, ok := ownerFor(c, c.Query("userId"))
	if !ok {
		return
	}

	if err := h.scriptService.DeleteScript(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyScriptDeleted),
	})
}

// POST /regenerate-module
func (h *ScriptHandler) RegenerateModule(c *gin.Context) {
	var req services.RegenerateModuleRequest
	if !bindRequest(c, &req, &req.UserID) {
		return
	}

	module, err := h.scriptService.RegenerateModule(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, i18n.KeyModuleRegenerateFailed)
		return
	}

	utils.SuccessResponse(c, gin.H{"module": module})
}
