package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// LocaleRU 俄语（默认）
	LocaleRU = "ru-RU"
	// LocaleEN 英语
	LocaleEN = "en-US"

	// DefaultLocale 默认语言
	DefaultLocale = LocaleRU
	localeHeader  = "X-Locale"
)

// T 按语言取文案，缺失时依次回退到默认语言与 key 本身
func T(locale, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if messages, ok := catalogue[NormalizeLocale(locale)]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if msg, ok := catalogue[DefaultLocale][key]; ok {
		return msg
	}
	if msg, ok := catalogue[LocaleEN][key]; ok {
		return msg
	}
	return key
}

// Sprintf 格式化文案
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// ResolveLocale 从请求中解析语言：lang 参数 > X-Locale > Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	if header := strings.TrimSpace(c.GetHeader(localeHeader)); header != "" {
		return NormalizeLocale(header)
	}
	accept := strings.TrimSpace(c.GetHeader("Accept-Language"))
	if accept == "" {
		return DefaultLocale
	}
	first := strings.Split(accept, ",")[0]
	first = strings.Split(first, ";")[0]
	return NormalizeLocale(first)
}

// NormalizeLocale 统一语言标识
func NormalizeLocale(raw string) string {
	l := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(l, "en"):
		return LocaleEN
	default:
		return LocaleRU
	}
}
