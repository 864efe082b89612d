package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/freightdesk/internal/config"
	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{
		"Content-Type",
		"Accept-Language",
		"Cache-Control",
		"X-Requested-With",
		requestIDHeader,
		handlershared.ActorHeader,
	}
)

// corsPolicy 启动时预计算的跨域响应头
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	policy := corsPolicy{
		origins:     map[string]struct{}{},
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(orDefault(cfg.AllowedMethods, defaultCORSMethods), ", "),
		headers:     strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", "),
	}
	for _, origin := range orDefault(cfg.AllowedOrigins, []string{"*"}) {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			policy.anyOrigin = true
			continue
		}
		if origin != "" {
			policy.origins[strings.ToLower(origin)] = struct{}{}
		}
	}
	if cfg.MaxAge > 0 {
		policy.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return policy
}

// allowOrigin 通配且不带凭证时返回 *，带凭证时回显请求来源
func (p corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		if p.credentials && origin != "" {
			return origin
		}
		return "*"
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok && origin != "" {
		return origin
	}
	return ""
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

// CORSMiddleware 跨域中间件，OPTIONS 预检直接返回 204
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		header := c.Writer.Header()
		if origin := policy.allowOrigin(c.GetHeader("Origin")); origin != "" {
			header.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if policy.credentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", policy.headers)
		header.Set("Access-Control-Allow-Methods", policy.methods)
		header.Set("Access-Control-Expose-Headers", requestIDHeader+", Retry-After")
		if policy.maxAge != "" {
			header.Set("Access-Control-Max-Age", policy.maxAge)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(response.RequestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件，门户请求附带 resource 与操作人
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if resource := strings.TrimSpace(c.Query("resource")); resource != "" {
			fields = append(fields, "resource", resource)
		}
		if actor := strings.TrimSpace(c.GetHeader(handlershared.ActorHeader)); actor != "" {
			fields = append(fields, "actor", actor)
		}
		log := sugar.With(fields...)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(response.RequestIDKey)
}
