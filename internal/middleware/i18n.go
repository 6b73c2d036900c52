// internal/middleware/i18n.go
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
)

// I18nMiddleware sets "lang" from Accept-Language, e.g.
// "zh-TW,zh;q=0.9,en;q=0.8".
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		lang := defaultLang
		if header := c.GetHeader("Accept-Language"); header != "" {
			if matched := i18n.Match(header); matched != "" {
				lang = matched
			}
		}

		c.Set("lang", lang)
		c.Next()
	}
}
