package middleware

import (
	"AmberWatch/pkg/constant"
	"AmberWatch/pkg/i18n"

	"github.com/gin-gonic/gin"
)

// LanguageMiddleware 依次参考 ?lang、X-Lang 与 Accept-Language 选择语言
func LanguageMiddleware(i18nSupport *i18n.I18nSupport) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18nSupport.Match(
			c.Query("lang"),
			c.GetHeader(constant.HeaderRequestLang),
			c.GetHeader("Accept-Language"),
		)
		c.Set(constant.LangField, lang)
		c.Next()
	}
}

// Lang 当前请求的语言
func Lang(c *gin.Context) string {
	if v := c.GetString(constant.LangField); v != "" {
		return v
	}
	return "en"
}
