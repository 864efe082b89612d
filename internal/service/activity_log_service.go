package service

import (
	"strings"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

// ActivityLogService 订单操作日志服务（只追加）
type ActivityLogService struct {
	repo         repository.ActivityLogRepository
	defaultActor string
}

// NewActivityLogService 创建操作日志服务
func NewActivityLogService(repo repository.ActivityLogRepository, defaultActor string) *ActivityLogService {
	if strings.TrimSpace(defaultActor) == "" {
		defaultActor = constants.DefaultActorLabel
	}
	return &ActivityLogService{repo: repo, defaultActor: strings.TrimSpace(defaultActor)}
}

// ResolveActor 空操作人回落到默认标签
func (s *ActivityLogService) ResolveActor(actor string) string {
	if trimmed := strings.TrimSpace(actor); trimmed != "" {
		return trimmed
	}
	if s == nil || s.defaultActor == "" {
		return constants.DefaultActorLabel
	}
	return s.defaultActor
}

// Append 在调用方事务内追加一条日志
func (s *ActivityLogService) Append(tx *gorm.DB, orderID *uint, actor, actionType, description string) error {
	entry := &models.ActivityLog{
		OrderID:     orderID,
		UserRole:    s.ResolveActor(actor),
		ActionType:  strings.TrimSpace(actionType),
		Description: strings.TrimSpace(description),
	}
	return s.repo.WithTx(tx).Create(entry)
}

// ListForOrder 订单的全部日志，最新在前
func (s *ActivityLogService) ListForOrder(orderID uint) ([]models.ActivityLog, error) {
	if orderID == 0 {
		return nil, newValidationError("order_id", "order_id required")
	}
	return s.repo.ListByOrder(orderID)
}

// ListRecent 最近日志（带订单编号）
func (s *ActivityLogService) ListRecent(limit int) ([]repository.ActivityLogView, error) {
	if limit <= 0 || limit > constants.ActivityRecentLimit {
		limit = constants.ActivityRecentLimit
	}
	return s.repo.ListRecent(limit)
}
