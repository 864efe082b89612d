package shared

import (
	"github.com/freightdesk/internal/http/response"
	"github.com/freightdesk/internal/i18n"
	"github.com/freightdesk/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString(response.RequestIDKey); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithArgs(c, code, key, nil, err)
}

// RespondErrorWithArgs 返回带格式化参数的国际化错误响应。
func RespondErrorWithArgs(c *gin.Context, code int, key string, args []interface{}, err error) {
	locale := i18n.ResolveLocale(c)
	msg := i18n.T(locale, key)
	if len(args) > 0 {
		msg = i18n.Sprintf(locale, key, args...)
	}
	RespondErrorWithMsg(c, code, msg, err)
}

// RespondErrorWithMsg 返回自定义消息错误响应；原始错误只写日志，不回传给调用方
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"message", msg,
			"error", err,
		)
	}
	response.Error(c, code, msg)
}
