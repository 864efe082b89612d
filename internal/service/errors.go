package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrReferenceBlocked         = errors.New("reference blocked")
	ErrOrderNotFound            = errors.New("order not found")
	ErrOrderNumberRequired      = errors.New("order number required")
	ErrOrderNumberExists        = errors.New("order number exists")
	ErrStageNotFound            = errors.New("stage not found")
	ErrStageTransitionInvalid   = errors.New("stage transition invalid")
	ErrDriverNotFound           = errors.New("driver not found")
	ErrVehicleNotFound          = errors.New("vehicle not found")
	ErrClientNotFound           = errors.New("client not found")
	ErrCustomerNotFound         = errors.New("customer not found")
	ErrCustomerAddressNotFound  = errors.New("customer address not found")
	ErrUserNotFound             = errors.New("user not found")
	ErrUsernameExists           = errors.New("username exists")
	ErrWeakPassword             = errors.New("weak password")
	ErrRoleNotFound             = errors.New("role not found")
	ErrRoleExists               = errors.New("role exists")
	ErrDocumentNotFound         = errors.New("document not found")
	ErrNotificationEventInvalid = errors.New("notification event invalid")
	ErrTelegramNotConfigured    = errors.New("telegram bot is not configured")
	ErrTelegramSendFailed       = errors.New("telegram send failed")
	ErrNotificationChannelNil   = errors.New("notification channel unavailable")
)

// ValidationError 字段校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap 便于 errors.Is(err, ErrValidation)
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// maxBlockerExamples 引用阻塞时最多返回的示例数
const maxBlockerExamples = 3

// ReferenceBlockedError 删除被引用的记录
type ReferenceBlockedError struct {
	Entity   string
	Blockers []string
	Total    int64
}

func (e *ReferenceBlockedError) Error() string {
	return fmt.Sprintf("%s is referenced by %d record(s): %s", e.Entity, e.Total, strings.Join(e.Blockers, ", "))
}

// Unwrap 便于 errors.Is(err, ErrReferenceBlocked)
func (e *ReferenceBlockedError) Unwrap() error {
	return ErrReferenceBlocked
}

func newReferenceBlockedError(entity string, blockers []string, total int64) error {
	if total <= 0 {
		return nil
	}
	if len(blockers) > maxBlockerExamples {
		blockers = blockers[:maxBlockerExamples]
	}
	return &ReferenceBlockedError{Entity: entity, Blockers: blockers, Total: total}
}
