// internal/handlers/payment.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

const maxHistoryLimit = 200

type PaymentHandler struct {
	paymentService *services.PaymentService
	creditService  *services.CreditService
}

func NewPaymentHandler(paymentService *services.PaymentService, creditService *services.CreditService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		creditService:  creditService,
	}
}

// GET /credits/:userId
func (h *PaymentHandler) GetCredits(c *gin.Context) {
	userID, ok := ownerFor(c, c.Param("userId"))
	if !ok {
		return
	}

	summary, err := h.creditService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, summary)
}

// GET /credits/:userId/history
func (h *PaymentHandler) GetCreditHistory(c *gin.Context) {
	userID, ok := ownerFor(c, c.Param("userId"))
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		limit = 50
	}

	history, err := h.creditService.History(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, gin.H{"transactions": history})
}

// GET /credit-packages
func (h *PaymentHandler) GetPackages(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{"packages": h.paymentService.Packages()})
}

// POST /credits/topup
func (h *PaymentHandler) CreateTopUp(c *gin.Context) {
	var req services.TopUpRequest
	if !bindRequest(c, &req, &req.UserID) {
		return
	}

	response, err := h.paymentService.CreateTopUp(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, response)
}

// POST /credits/confirm
func (h *PaymentHandler) ConfirmTopUp(c *gin.Context) {
	var req services.ConfirmTopUpRequest
	if !bindRequest(c, &req, &req.UserID) {
		return
	}

	response, err := h.paymentService.ConfirmTopUp(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, i18n.KeySystemError)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyCreditsToppedUp),
		"credits": response.Credits,
		"balance": response.Balance,
	})
}
