package router

import (
	"strconv"
	"strings"

	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/http/response"
	"github.com/freightdesk/internal/i18n"
	"github.com/freightdesk/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
	// Methods 为空时对全部方法生效
	Methods []string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) applies(method string) bool {
	if len(r.Methods) == 0 {
		return true
	}
	for _, item := range r.Methods {
		if strings.EqualFold(item, method) {
			return true
		}
	}
	return false
}

// retryAfter 计数未超限时返回 0；ttl 异常时按整窗等待
func (r RateLimitRule) retryAfter(count, ttl int64) int {
	if count <= int64(r.MaxRequests) {
		return 0
	}
	if ttl >= 1 {
		return int(ttl)
	}
	if r.WindowSeconds >= 1 {
		return r.WindowSeconds
	}
	return 1
}

// 返回 {当前计数, 剩余秒数}
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// RateLimitMiddleware Redis 频率限制中间件，client 为 nil 时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() || !rule.applies(c.Request.Method) {
			c.Next()
			return
		}
		key := strings.TrimSpace(keyFunc(c))
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		locale := i18n.ResolveLocale(c)
		values, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Int64Slice()
		if err != nil || len(values) < 2 {
			logger.Warnw("rate_limit_script_failed", "key", key, "error", err)
			response.Error(c, response.CodeInternal, i18n.T(locale, "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		if wait := rule.retryAfter(values[0], values[1]); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(wait))
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(locale, msgKey, wait))
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndActor 操作人标签 + IP；无标签时退化为 IP
func KeyByIPAndActor(c *gin.Context) string {
	actor := strings.ToLower(strings.TrimSpace(c.GetHeader(handlershared.ActorHeader)))
	if actor == "" {
		return c.ClientIP()
	}
	return actor + "|" + c.ClientIP()
}
