// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/alhadicyber42/Affiliate-AI/internal/ai"
	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

var conflictKeys = map[string]string{
	"product": i18n.KeyProductHasScripts,
	"script":  i18n.KeyScriptHasVideos,
}

// respondError maps a service error onto the response envelope. failureKey
// is the message used for errors without a more specific one.
func respondError(c *gin.Context, err error, failureKey string) {
	lang := utils.GetLangFromContext(c)

	var (
		insufficient *services.InsufficientCreditsError
		notFound     *services.NotFoundError
		conflict     *services.ConflictError
		unsupported  *services.UnsupportedPlatformError
		enrichment   *ai.EnrichmentError
	)

	switch {
	case errors.As(err, &insufficient):
		utils.InsufficientCreditsResponse(c, insufficient.Required, insufficient.Available)

	case errors.As(err, &notFound):
		utils.NotFoundResponse(c, notFound.Resource)

	case errors.As(err, &conflict):
		utils.ErrorResponse(c, http.StatusConflict, "CONFLICT",
			i18n.T(lang, conflictKeys[conflict.Resource], conflict.Dependents),
			gin.H{"dependents": conflict.Dependents})

	case errors.As(err, &unsupported):
		utils.ErrorResponse(c, http.StatusInternalServerError, "UNSUPPORTED_PLATFORM",
			i18n.T(lang, i18n.KeyUnsupportedPlatform), gin.H{"url": unsupported.URL})

	case errors.Is(err, services.ErrUnknownPackage):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentUnknownPackage), nil)

	case errors.Is(err, services.ErrPaymentNotSucceeded):
		utils.ErrorResponse(c, http.StatusConflict, "PAYMENT_NOT_SUCCEEDED", i18n.T(lang, i18n.KeyPaymentNotSucceeded), nil)

	case errors.Is(err, services.ErrPaymentsDisabled):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "PAYMENTS_DISABLED", i18n.T(lang, i18n.KeyPaymentDisabled), nil)

	case errors.As(err, &enrichment):
		logrus.WithError(err).WithFields(logrus.Fields{
			"path": c.FullPath(),
			"mode": enrichment.Mode,
		}).Error("AI response rejected")
		utils.ErrorResponse(c, http.StatusInternalServerError, "AI_ERROR", i18n.T(lang, failureKey), gin.H{
			"reason": enrichment.Reason,
		})

	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		utils.InternalErrorResponse(c, i18n.T(lang, failureKey))
	}
}

// ownerFor resolves the user a request acts for. With identity checks on
// the token subject is used, and naming a different user is refused.
func ownerFor(c *gin.Context, claimed string) (string, bool) {
	subject, authenticated := utils.GetUserIDFromContext(c)
	if !authenticated {
		return claimed, true
	}
	if claimed != "" && claimed != subject {
		utils.ForbiddenResponse(c, "")
		return "", false
	}
	return subject, true
}

// bindRequest decodes and validates a JSON body. userID points at the
// request's userId field, which is resolved through ownerFor first.
func bindRequest(c *gin.Context, req interface{}, userID *string) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	if userID != nil {
		owner, ok := ownerFor(c, *userID)
		if !ok {
			return false
		}
		*userID = owner
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}
