package repository

import (
	"errors"
	"time"

	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// OrderStageRepository 旧版订单流程数据访问接口
type OrderStageRepository interface {
	CreateBatch(stages []models.OrderStage) error
	GetByID(id uint) (*models.OrderStage, error)
	ListByOrder(orderID uint) ([]models.OrderStage, error)
	UpdateCompletion(id uint, completed bool, completedBy string, completedAt *time.Time) error
	WithTx(tx *gorm.DB) *GormOrderStageRepository
}

// GormOrderStageRepository GORM 实现
type GormOrderStageRepository struct {
	db *gorm.DB
}

// NewOrderStageRepository 创建旧版流程仓库
func NewOrderStageRepository(db *gorm.DB) *GormOrderStageRepository {
	return &GormOrderStageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderStageRepository) WithTx(tx *gorm.DB) *GormOrderStageRepository {
	if tx == nil {
		return r
	}
	return &GormOrderStageRepository{db: tx}
}

// CreateBatch 批量创建
func (r *GormOrderStageRepository) CreateBatch(stages []models.OrderStage) error {
	if len(stages) == 0 {
		return nil
	}
	return r.db.Create(&stages).Error
}

// GetByID 根据 ID 获取
func (r *GormOrderStageRepository) GetByID(id uint) (*models.OrderStage, error) {
	var stage models.OrderStage
	if err := r.db.First(&stage, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stage, nil
}

// ListByOrder 按 stage_order 列出
func (r *GormOrderStageRepository) ListByOrder(orderID uint) ([]models.OrderStage, error) {
	var stages []models.OrderStage
	if err := r.db.Where("order_id = ?", orderID).Order("stage_order ASC, id ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

// UpdateCompletion 写入完成标记；completedAt 为 nil 时清空
func (r *GormOrderStageRepository) UpdateCompletion(id uint, completed bool, completedBy string, completedAt *time.Time) error {
	return r.db.Model(&models.OrderStage{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_completed": completed,
		"completed_by": completedBy,
		"completed_at": completedAt,
	}).Error
}
