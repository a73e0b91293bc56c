// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Identity
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthForbidden    = "auth.forbidden"

	// Credits
	KeyCreditsInsufficient = "credits.insufficient"
	KeyCreditsToppedUp     = "credits.topped_up"

	// Products
	KeyProductNotFound      = "product.not_found"
	KeyProductDeleted       = "product.deleted"
	KeyProductHasScripts    = "product.has_scripts"
	KeyProductExtractFailed = "product.extract_failed"
	KeyUnsupportedPlatform  = "product.unsupported_platform"

	// Scripts
	KeyScriptNotFound         = "script.not_found"
	KeyScriptDeleted          = "script.deleted"
	KeyScriptHasVideos        = "script.has_videos"
	KeyScriptGenerateFailed   = "script.generate_failed"
	KeyModuleNotFound         = "module.not_found"
	KeyModuleRegenerateFailed = "module.regenerate_failed"

	// Videos
	KeyVideoNotFound    = "video.not_found"
	KeyVideoDeleted     = "video.deleted"
	KeyVideoQueueFailed = "video.queue_failed"

	// Payments
	KeyPaymentNotFound       = "payment.not_found"
	KeyPaymentUnknownPackage = "payment.unknown_package"
	KeyPaymentNotSucceeded   = "payment.not_succeeded"
	KeyPaymentDisabled       = "payment.disabled"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// System
	KeySystemError       = "system.error"
	KeySystemRateLimited = "system.rate_limited"
)
