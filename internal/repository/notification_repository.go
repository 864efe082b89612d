package repository

import (
	"errors"
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository 通知发件箱与发送记录数据访问接口
type NotificationRepository interface {
	CreateOutbox(entry *models.NotificationOutbox) error
	GetOutbox(id uint) (*models.NotificationOutbox, error)
	ClaimOutbox(id uint) (bool, error)
	UpdateOutbox(id uint, updates map[string]interface{}) error
	ListStaleOutbox(before time.Time, maxAttempts, limit int) ([]models.NotificationOutbox, error)
	CreateSent(record *models.TelegramNotification) error
	ListSent(filter NotificationListFilter) ([]models.TelegramNotification, int64, error)
	WithTx(tx *gorm.DB) *GormNotificationRepository
}

// GormNotificationRepository GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNotificationRepository) WithTx(tx *gorm.DB) *GormNotificationRepository {
	if tx == nil {
		return r
	}
	return &GormNotificationRepository{db: tx}
}

// CreateOutbox 写入发件箱
func (r *GormNotificationRepository) CreateOutbox(entry *models.NotificationOutbox) error {
	return r.db.Create(entry).Error
}

// GetOutbox 获取发件箱记录
func (r *GormNotificationRepository) GetOutbox(id uint) (*models.NotificationOutbox, error) {
	var entry models.NotificationOutbox
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ClaimOutbox 将 pending 记录原子地置为 processing，返回是否抢占成功
func (r *GormNotificationRepository) ClaimOutbox(id uint) (bool, error) {
	result := r.db.Model(&models.NotificationOutbox{}).
		Where("id = ? AND status = ?", id, constants.OutboxStatusPending).
		Updates(map[string]interface{}{
			"status":     constants.OutboxStatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateOutbox 更新发件箱记录
func (r *GormNotificationRepository) UpdateOutbox(id uint, updates map[string]interface{}) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.db.Model(&models.NotificationOutbox{}).Where("id = ?", id).Updates(updates).Error
}

// ListStaleOutbox 超过阈值仍未投递的 pending 记录
func (r *GormNotificationRepository) ListStaleOutbox(before time.Time, maxAttempts, limit int) ([]models.NotificationOutbox, error) {
	query := r.db.Where("status = ? AND updated_at <= ?", constants.OutboxStatusPending, before)
	if maxAttempts > 0 {
		query = query.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []models.NotificationOutbox
	if err := query.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateSent 写入发送记录
func (r *GormNotificationRepository) CreateSent(record *models.TelegramNotification) error {
	return r.db.Create(record).Error
}

// ListSent 发送记录列表
func (r *GormNotificationRepository) ListSent(filter NotificationListFilter) ([]models.TelegramNotification, int64, error) {
	query := r.db.Model(&models.TelegramNotification{})
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var records []models.TelegramNotification
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
