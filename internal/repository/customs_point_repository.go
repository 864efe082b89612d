package repository

import (
	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// CustomsPointRepository 报关点数据访问接口
type CustomsPointRepository interface {
	CreateBatch(points []models.CustomsPoint) error
	ListByOrder(orderID uint) ([]models.CustomsPoint, error)
	ListByStage(stageID uint) ([]models.CustomsPoint, error)
	DeleteByStage(stageID uint) error
	WithTx(tx *gorm.DB) *GormCustomsPointRepository
}

// GormCustomsPointRepository GORM 实现
type GormCustomsPointRepository struct {
	db *gorm.DB
}

// NewCustomsPointRepository 创建报关点仓库
func NewCustomsPointRepository(db *gorm.DB) *GormCustomsPointRepository {
	return &GormCustomsPointRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomsPointRepository) WithTx(tx *gorm.DB) *GormCustomsPointRepository {
	if tx == nil {
		return r
	}
	return &GormCustomsPointRepository{db: tx}
}

// CreateBatch 批量创建
func (r *GormCustomsPointRepository) CreateBatch(points []models.CustomsPoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.db.Create(&points).Error
}

// ListByOrder 订单下全部报关点
func (r *GormCustomsPointRepository) ListByOrder(orderID uint) ([]models.CustomsPoint, error) {
	var points []models.CustomsPoint
	if err := r.db.Where("order_id = ?", orderID).Order("transport_stage_id ASC, id ASC").Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// ListByStage 运输段下的报关点
func (r *GormCustomsPointRepository) ListByStage(stageID uint) ([]models.CustomsPoint, error) {
	var points []models.CustomsPoint
	if err := r.db.Where("transport_stage_id = ?", stageID).Order("id ASC").Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// DeleteByStage 删除运输段下的报关点
func (r *GormCustomsPointRepository) DeleteByStage(stageID uint) error {
	return r.db.Where("transport_stage_id = ?", stageID).Delete(&models.CustomsPoint{}).Error
}
