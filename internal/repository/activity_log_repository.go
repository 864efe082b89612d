package repository

import (
	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// ActivityLogRepository 操作日志数据访问接口（只追加）
type ActivityLogRepository interface {
	Create(entry *models.ActivityLog) error
	ListByOrder(orderID uint) ([]models.ActivityLog, error)
	ListRecent(limit int) ([]ActivityLogView, error)
	WithTx(tx *gorm.DB) *GormActivityLogRepository
}

// GormActivityLogRepository GORM 实现
type GormActivityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository 创建操作日志仓库
func NewActivityLogRepository(db *gorm.DB) *GormActivityLogRepository {
	return &GormActivityLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormActivityLogRepository) WithTx(tx *gorm.DB) *GormActivityLogRepository {
	if tx == nil {
		return r
	}
	return &GormActivityLogRepository{db: tx}
}

// Create 追加日志
func (r *GormActivityLogRepository) Create(entry *models.ActivityLog) error {
	return r.db.Create(entry).Error
}

// ListByOrder 订单日志，最新在前
func (r *GormActivityLogRepository) ListByOrder(orderID uint) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	if err := r.db.Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRecent 全局最新日志（附订单编号）
func (r *GormActivityLogRepository) ListRecent(limit int) ([]ActivityLogView, error) {
	var views []ActivityLogView
	if err := r.db.Table("activity_logs AS a").
		Select("a.id, a.order_id, COALESCE(o.order_number, '') AS order_number, a.user_role, a.action_type, a.description, a.created_at").
		Joins("LEFT JOIN orders o ON o.id = a.order_id").
		Order("a.created_at DESC, a.id DESC").
		Limit(limit).
		Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}
