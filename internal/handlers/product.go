// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

type ProductHandler struct {
	extractionService *services.ExtractionService
	productService    *services.ProductService
}

func NewProductHandler(extractionService *services.ExtractionService, productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		extractionService: extractionService,
		productService:    productService,
	}
}

// POST /extract-product
func (h *ProductHandler) ExtractProduct(c *gin.Context) {
	var req services.ExtractProductRequest
	if !bindRequest(c, &req, &req.UserID) {
		return
	}

	result, err := h.extractionService.ExtractProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, i18n.KeyProductExtractFailed)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /products/:userId
func (h *ProductHandler) GetProducts(c *gin.Context) {
	userID, ok := ownerFor(c, c.Param("userId"))
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	products, total, err := h.productService.ListProducts(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	userID, ok := ownerFor(c, c.Query("userId"))
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyProductDeleted),
	})
}
