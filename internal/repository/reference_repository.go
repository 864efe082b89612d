package repository

import (
	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// ReferenceRepository 删除前的引用检查
// 每个方法返回最多 limit 条阻塞示例以及总数
type ReferenceRepository interface {
	DriverReferences(driverID uint, limit int) ([]string, int64, error)
	VehicleReferences(vehicleID uint, limit int) ([]string, int64, error)
	ClientReferences(clientID uint, limit int) ([]string, int64, error)
	CustomerReferences(customerID uint, limit int) ([]string, int64, error)
	RoleReferences(roleID uint, limit int) ([]string, int64, error)
	WithTx(tx *gorm.DB) *GormReferenceRepository
}

// GormReferenceRepository GORM 实现
type GormReferenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository 创建引用检查仓库
func NewReferenceRepository(db *gorm.DB) *GormReferenceRepository {
	return &GormReferenceRepository{db: db}
}

// WithTx 绑定事务，检查与删除在同一事务内完成
func (r *GormReferenceRepository) WithTx(tx *gorm.DB) *GormReferenceRepository {
	if tx == nil {
		return r
	}
	return &GormReferenceRepository{db: tx}
}

// DriverReferences 引用司机的运输段（订单号）与车辆（车牌）
func (r *GormReferenceRepository) DriverReferences(driverID uint, limit int) ([]string, int64, error) {
	stageExamples, stageTotal, err := r.stageOrderNumbers("s.driver_id = ?", driverID, limit)
	if err != nil {
		return nil, 0, err
	}

	vehicleQuery := r.db.Model(&models.Vehicle{}).Where("driver_id = ?", driverID)
	var vehicleTotal int64
	if err := vehicleQuery.Count(&vehicleTotal).Error; err != nil {
		return nil, 0, err
	}
	examples := stageExamples
	if remain := limit - len(examples); remain > 0 && vehicleTotal > 0 {
		var plates []string
		if err := r.db.Model(&models.Vehicle{}).
			Where("driver_id = ?", driverID).
			Order("id ASC").
			Limit(remain).
			Pluck("license_plate", &plates).Error; err != nil {
			return nil, 0, err
		}
		examples = append(examples, plates...)
	}
	return examples, stageTotal + vehicleTotal, nil
}

// VehicleReferences 引用车辆的运输段（订单号）
func (r *GormReferenceRepository) VehicleReferences(vehicleID uint, limit int) ([]string, int64, error) {
	return r.stageOrderNumbers("s.vehicle_id = ?", vehicleID, limit)
}

// ClientReferences 引用承运商的订单
func (r *GormReferenceRepository) ClientReferences(clientID uint, limit int) ([]string, int64, error) {
	query := func() *gorm.DB {
		return r.db.Model(&models.Order{}).Where("client_id = ?", clientID)
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}
	var numbers []string
	if err := query().Order("id ASC").Limit(limit).Pluck("order_number", &numbers).Error; err != nil {
		return nil, 0, err
	}
	return numbers, total, nil
}

// CustomerReferences 引用客户的订单
func (r *GormReferenceRepository) CustomerReferences(customerID uint, limit int) ([]string, int64, error) {
	query := func() *gorm.DB {
		return r.db.Table("order_customers AS oc").
			Joins("JOIN orders o ON o.id = oc.order_id").
			Where("oc.customer_id = ?", customerID)
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}
	var numbers []string
	if err := query().Order("oc.id ASC").Limit(limit).Pluck("o.order_number", &numbers).Error; err != nil {
		return nil, 0, err
	}
	return numbers, total, nil
}

// RoleReferences 使用角色的用户
func (r *GormReferenceRepository) RoleReferences(roleID uint, limit int) ([]string, int64, error) {
	query := func() *gorm.DB {
		return r.db.Model(&models.User{}).Where("role_id = ?", roleID)
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}
	var usernames []string
	if err := query().Order("id ASC").Limit(limit).Pluck("username", &usernames).Error; err != nil {
		return nil, 0, err
	}
	return usernames, total, nil
}

func (r *GormReferenceRepository) stageOrderNumbers(condition string, id uint, limit int) ([]string, int64, error) {
	query := func() *gorm.DB {
		return r.db.Table("order_transport_stages AS s").
			Joins("JOIN orders o ON o.id = s.order_id").
			Where(condition, id)
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}
	var numbers []string
	if err := query().Order("s.id ASC").Limit(limit).Pluck("o.order_number", &numbers).Error; err != nil {
		return nil, 0, err
	}
	return numbers, total, nil
}
