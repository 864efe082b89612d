package admin

import (
	"errors"

	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/http/response"
	"github.com/freightdesk/internal/i18n"
	"github.com/freightdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

var portalErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrStageNotFound, code: response.CodeNotFound, key: "error.stage_not_found"},
	{target: service.ErrDriverNotFound, code: response.CodeNotFound, key: "error.driver_not_found"},
	{target: service.ErrVehicleNotFound, code: response.CodeNotFound, key: "error.vehicle_not_found"},
	{target: service.ErrClientNotFound, code: response.CodeNotFound, key: "error.client_not_found"},
	{target: service.ErrCustomerNotFound, code: response.CodeNotFound, key: "error.customer_not_found"},
	{target: service.ErrCustomerAddressNotFound, code: response.CodeNotFound, key: "error.customer_address_not_found"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrRoleNotFound, code: response.CodeNotFound, key: "error.role_not_found"},
	{target: service.ErrDocumentNotFound, code: response.CodeNotFound, key: "error.document_not_found"},
	{target: service.ErrOrderNumberRequired, code: response.CodeBadRequest, key: "error.order_number_required"},
	{target: service.ErrOrderNumberExists, code: response.CodeConflict, key: "error.order_number_exists"},
	{target: service.ErrUsernameExists, code: response.CodeConflict, key: "error.username_exists"},
	{target: service.ErrRoleExists, code: response.CodeConflict, key: "error.role_exists"},
	{target: service.ErrStageTransitionInvalid, code: response.CodeConflict, key: "error.stage_transition_invalid"},
	{target: service.ErrNotificationEventInvalid, code: response.CodeBadRequest, key: "error.notification_event_invalid"},
	{target: service.ErrTelegramNotConfigured, code: response.CodeBadRequest, key: "error.telegram_not_configured"},
	{target: service.ErrTelegramSendFailed, code: response.CodeBadRequest, key: "error.telegram_send_failed"},
}

// localizedError 携带文案 key 与参数的业务错误
type localizedError interface {
	Key() string
	Args() []interface{}
}

// respondServiceError 将 service 错误转为接口响应，未知错误按 500 处理
func respondServiceError(c *gin.Context, err error) {
	var blocked *service.ReferenceBlockedError
	if errors.As(err, &blocked) {
		locale := i18n.ResolveLocale(c)
		response.Conflict(c, i18n.T(locale, "error.reference_blocked"), gin.H{
			"entity":   blocked.Entity,
			"blockers": blocked.Blockers,
			"total":    blocked.Total,
		})
		return
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		locale := i18n.ResolveLocale(c)
		response.ErrorWithData(c, response.CodeBadRequest, i18n.T(locale, "error.validation"), gin.H{
			"field":   validation.Field,
			"message": validation.Message,
		})
		return
	}

	if errors.Is(err, service.ErrWeakPassword) {
		var localized localizedError
		if errors.As(err, &localized) {
			handlershared.RespondErrorWithArgs(c, response.CodeBadRequest, localized.Key(), localized.Args(), nil)
			return
		}
		respondError(c, response.CodeBadRequest, "error.validation", nil)
		return
	}

	for _, rule := range portalErrorRules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, response.CodeInternal, "error.internal", err)
}
