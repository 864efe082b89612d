package repository

import (
	"errors"

	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// TransportStageRepository 运输段数据访问接口
type TransportStageRepository interface {
	Create(stage *models.TransportStage) error
	GetByID(id uint) (*models.TransportStage, error)
	ListByOrder(orderID uint) ([]models.TransportStage, error)
	LastByOrder(orderID uint) (*models.TransportStage, error)
	MaxStageNumber(orderID uint) (int, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	IterateViews(orderID uint, yield func(TransportStageViewRow) bool) error
	WithTx(tx *gorm.DB) *GormTransportStageRepository
}

// GormTransportStageRepository GORM 实现
type GormTransportStageRepository struct {
	db *gorm.DB
}

// NewTransportStageRepository 创建运输段仓库
func NewTransportStageRepository(db *gorm.DB) *GormTransportStageRepository {
	return &GormTransportStageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTransportStageRepository) WithTx(tx *gorm.DB) *GormTransportStageRepository {
	if tx == nil {
		return r
	}
	return &GormTransportStageRepository{db: tx}
}

// Create 创建运输段
func (r *GormTransportStageRepository) Create(stage *models.TransportStage) error {
	return r.db.Omit("CustomsPoints").Create(stage).Error
}

// GetByID 根据 ID 获取运输段
func (r *GormTransportStageRepository) GetByID(id uint) (*models.TransportStage, error) {
	var stage models.TransportStage
	if err := r.db.First(&stage, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stage, nil
}

// ListByOrder 按 stage_number 列出订单的运输段
func (r *GormTransportStageRepository) ListByOrder(orderID uint) ([]models.TransportStage, error) {
	var stages []models.TransportStage
	if err := r.db.Where("order_id = ?", orderID).
		Order("stage_number ASC, id ASC").
		Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

// LastByOrder 获取订单的最后一个运输段
func (r *GormTransportStageRepository) LastByOrder(orderID uint) (*models.TransportStage, error) {
	var stage models.TransportStage
	if err := r.db.Where("order_id = ?", orderID).
		Order("stage_number DESC, id DESC").
		First(&stage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stage, nil
}

// MaxStageNumber 订单内最大的 stage_number，没有运输段时为 0
func (r *GormTransportStageRepository) MaxStageNumber(orderID uint) (int, error) {
	var maxNumber *int
	if err := r.db.Model(&models.TransportStage{}).
		Where("order_id = ?", orderID).
		Select("MAX(stage_number)").
		Scan(&maxNumber).Error; err != nil {
		return 0, err
	}
	if maxNumber == nil {
		return 0, nil
	}
	return *maxNumber, nil
}

// UpdateFields 更新运输段字段
func (r *GormTransportStageRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.TransportStage{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 删除运输段（报关点由调用方先行删除）
func (r *GormTransportStageRepository) Delete(id uint) error {
	return r.db.Delete(&models.TransportStage{}, id).Error
}

// IterateViews 以游标方式逐行读取订单运输段展示行
// yield 返回 false 时提前结束并释放游标
func (r *GormTransportStageRepository) IterateViews(orderID uint, yield func(TransportStageViewRow) bool) error {
	rows, err := r.db.Table("order_transport_stages AS s").
		Select(`s.id, s.order_id, s.stage_number, s.from_location, s.to_location, s.status, s.notes,
			CAST(s.distance_km AS TEXT) AS distance_km, s.planned_departure, s.planned_arrival,
			s.completed_at, s.completed_by, s.driver_id, s.vehicle_id,
			COALESCE(d.last_name, '') AS driver_last_name,
			COALESCE(d.first_name, '') AS driver_first_name,
			COALESCE(d.middle_name, '') AS driver_middle_name,
			COALESCE(v.vehicle_brand, '') AS vehicle_brand,
			COALESCE(v.license_plate, '') AS license_plate,
			COALESCE(v.trailer_plate, '') AS trailer_plate`).
		Joins("LEFT JOIN drivers d ON d.id = s.driver_id").
		Joins("LEFT JOIN vehicles v ON v.id = s.vehicle_id").
		Where("s.order_id = ?", orderID).
		Order("s.stage_number ASC, s.id ASC").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row TransportStageViewRow
		if err := r.db.ScanRows(rows, &row); err != nil {
			return err
		}
		if !yield(row) {
			return nil
		}
	}
	return rows.Err()
}
