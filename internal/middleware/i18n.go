// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		c.Set("lang", parseAcceptLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// Handles values like "fr-CA,fr;q=0.9,en;q=0.8". Only the first preference is used.
func parseAcceptLanguage(header, defaultLang string) string {
	if header == "" {
		return defaultLang
	}

	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	switch strings.ToLower(strings.SplitN(strings.ReplaceAll(first, "_", "-"), "-", 2)[0]) {
	case "fr":
		return "fr"
	case "en":
		return "en"
	default:
		return defaultLang
	}
}
