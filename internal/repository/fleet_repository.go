package repository

import (
	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// DriverRepository 司机数据访问接口
type DriverRepository interface {
	Create(driver *models.Driver) error
	GetByID(id uint) (*models.Driver, error)
	List(filter EntityListFilter) ([]models.Driver, int64, error)
	Update(driver *models.Driver) error
	Delete(id uint) error
	Count() (int64, error)
	WithTx(tx *gorm.DB) *GormDriverRepository
}

// GormDriverRepository GORM 实现
type GormDriverRepository struct {
	db *gorm.DB
}

// NewDriverRepository 创建司机仓库
func NewDriverRepository(db *gorm.DB) *GormDriverRepository {
	return &GormDriverRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDriverRepository) WithTx(tx *gorm.DB) *GormDriverRepository {
	if tx == nil {
		return r
	}
	return &GormDriverRepository{db: tx}
}

// Create 创建司机
func (r *GormDriverRepository) Create(driver *models.Driver) error {
	return r.db.Create(driver).Error
}

// GetByID 根据 ID 获取司机
func (r *GormDriverRepository) GetByID(id uint) (*models.Driver, error) {
	return findByID[models.Driver](r.db, id)
}

// List 司机列表（按姓氏）
func (r *GormDriverRepository) List(filter EntityListFilter) ([]models.Driver, int64, error) {
	query := applyLikeSearch(r.db.Model(&models.Driver{}), filter.Search, "last_name", "first_name", "phone")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var drivers []models.Driver
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("last_name ASC, first_name ASC, id ASC").
		Find(&drivers).Error; err != nil {
		return nil, 0, err
	}
	return drivers, total, nil
}

// Update 更新司机
func (r *GormDriverRepository) Update(driver *models.Driver) error {
	return r.db.Save(driver).Error
}

// Delete 删除司机
func (r *GormDriverRepository) Delete(id uint) error {
	return r.db.Delete(&models.Driver{}, id).Error
}

// Count 司机总数
func (r *GormDriverRepository) Count() (int64, error) {
	var total int64
	err := r.db.Model(&models.Driver{}).Count(&total).Error
	return total, err
}

// VehicleRepository 车辆数据访问接口
type VehicleRepository interface {
	Create(vehicle *models.Vehicle) error
	GetByID(id uint) (*models.Vehicle, error)
	List(filter EntityListFilter) ([]models.Vehicle, int64, error)
	Update(vehicle *models.Vehicle) error
	Delete(id uint) error
	Count() (int64, error)
	WithTx(tx *gorm.DB) *GormVehicleRepository
}

// GormVehicleRepository GORM 实现
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewVehicleRepository 创建车辆仓库
func NewVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVehicleRepository) WithTx(tx *gorm.DB) *GormVehicleRepository {
	if tx == nil {
		return r
	}
	return &GormVehicleRepository{db: tx}
}

// Create 创建车辆
func (r *GormVehicleRepository) Create(vehicle *models.Vehicle) error {
	return r.db.Omit("Driver").Create(vehicle).Error
}

// GetByID 根据 ID 获取车辆
func (r *GormVehicleRepository) GetByID(id uint) (*models.Vehicle, error) {
	return findByID[models.Vehicle](r.db, id, "Driver")
}

// List 车辆列表
func (r *GormVehicleRepository) List(filter EntityListFilter) ([]models.Vehicle, int64, error) {
	query := applyLikeSearch(r.db.Model(&models.Vehicle{}), filter.Search, "license_plate", "trailer_plate", "vehicle_brand", "company_name")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var vehicles []models.Vehicle
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Preload("Driver").
		Order("license_plate ASC, id ASC").
		Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

// Update 更新车辆
func (r *GormVehicleRepository) Update(vehicle *models.Vehicle) error {
	return r.db.Omit("Driver").Save(vehicle).Error
}

// Delete 删除车辆
func (r *GormVehicleRepository) Delete(id uint) error {
	return r.db.Delete(&models.Vehicle{}, id).Error
}

// Count 车辆总数
func (r *GormVehicleRepository) Count() (int64, error) {
	var total int64
	err := r.db.Model(&models.Vehicle{}).Count(&total).Error
	return total, err
}

// ClientRepository 承运商数据访问接口
type ClientRepository interface {
	Create(client *models.Client) error
	GetByID(id uint) (*models.Client, error)
	List(filter EntityListFilter) ([]models.Client, int64, error)
	Update(client *models.Client) error
	Delete(id uint) error
	Count() (int64, error)
	WithTx(tx *gorm.DB) *GormClientRepository
}

// GormClientRepository GORM 实现
type GormClientRepository struct {
	db *gorm.DB
}

// NewClientRepository 创建承运商仓库
func NewClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// WithTx 绑定事务
func (r *GormClientRepository) WithTx(tx *gorm.DB) *GormClientRepository {
	if tx == nil {
		return r
	}
	return &GormClientRepository{db: tx}
}

// Create 创建承运商
func (r *GormClientRepository) Create(client *models.Client) error {
	return r.db.Create(client).Error
}

// GetByID 根据 ID 获取承运商
func (r *GormClientRepository) GetByID(id uint) (*models.Client, error) {
	return findByID[models.Client](r.db, id)
}

// List 承运商列表（按名称）
func (r *GormClientRepository) List(filter EntityListFilter) ([]models.Client, int64, error) {
	query := applyLikeSearch(r.db.Model(&models.Client{}), filter.Search, "name", "contact_person", "phone")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var clients []models.Client
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("name ASC, id ASC").
		Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

// Update 更新承运商
func (r *GormClientRepository) Update(client *models.Client) error {
	return r.db.Save(client).Error
}

// Delete 删除承运商
func (r *GormClientRepository) Delete(id uint) error {
	return r.db.Delete(&models.Client{}, id).Error
}

// Count 承运商总数
func (r *GormClientRepository) Count() (int64, error) {
	var total int64
	err := r.db.Model(&models.Client{}).Count(&total).Error
	return total, err
}
