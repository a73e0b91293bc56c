// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
)

// I18nMiddleware picks the response language from Accept-Language, falling
// back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		lang := defaultLang

		// Handle cases like "id-ID,id;q=0.9,en;q=0.8"
		if header := c.GetHeader("Accept-Language"); header != "" {
			first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
			switch strings.ToLower(first) {
			case "id", "id-id", "in":
				lang = "id"
			case "en", "en-us", "en-gb":
				lang = "en"
			default:
				base := strings.ToLower(strings.SplitN(first, "-", 2)[0])
				if i18n.IsSupported(base) {
					lang = base
				}
			}
		}

		c.Set("lang", lang)
		c.Next()
	}
}
