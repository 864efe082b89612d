package repository

import (
	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// CustomerRepository 付款客户与地址数据访问接口
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(id uint) (*models.Customer, error)
	ListByIDs(ids []uint) ([]models.Customer, error)
	List(filter EntityListFilter) ([]models.Customer, int64, error)
	Update(customer *models.Customer) error
	DeleteWithAddresses(id uint) error
	CreateAddress(address *models.CustomerAddress) error
	GetAddress(id uint) (*models.CustomerAddress, error)
	ListAddresses(customerID uint) ([]models.CustomerAddress, error)
	UpdateAddress(address *models.CustomerAddress) error
	DeleteAddress(id uint) error
	ClearPrimary(customerID uint, exceptID uint) error
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// Create 创建客户（连同地址）
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// GetByID 根据 ID 获取客户及地址
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	return findByID[models.Customer](r.db, id, "Addresses")
}

// ListByIDs 批量获取客户
func (r *GormCustomerRepository) ListByIDs(ids []uint) ([]models.Customer, error) {
	if len(ids) == 0 {
		return []models.Customer{}, nil
	}
	var customers []models.Customer
	if err := r.db.Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// List 客户列表
func (r *GormCustomerRepository) List(filter EntityListFilter) ([]models.Customer, int64, error) {
	query := applyLikeSearch(r.db.Model(&models.Customer{}), filter.Search, "company_name", "nickname", "inn")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var customers []models.Customer
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Preload("Addresses").
		Order("company_name ASC, id ASC").
		Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Update 更新客户主表
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Omit("Addresses").Save(customer).Error
}

// DeleteWithAddresses 删除客户及其地址
func (r *GormCustomerRepository) DeleteWithAddresses(id uint) error {
	if err := r.db.Where("customer_id = ?", id).Delete(&models.CustomerAddress{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Customer{}, id).Error
}

// CreateAddress 创建地址
func (r *GormCustomerRepository) CreateAddress(address *models.CustomerAddress) error {
	return r.db.Create(address).Error
}

// GetAddress 获取地址
func (r *GormCustomerRepository) GetAddress(id uint) (*models.CustomerAddress, error) {
	return findByID[models.CustomerAddress](r.db, id)
}

// ListAddresses 客户地址（主地址在前）
func (r *GormCustomerRepository) ListAddresses(customerID uint) ([]models.CustomerAddress, error) {
	var addresses []models.CustomerAddress
	if err := r.db.Where("customer_id = ?", customerID).
		Order("is_primary DESC, id ASC").
		Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// UpdateAddress 更新地址
func (r *GormCustomerRepository) UpdateAddress(address *models.CustomerAddress) error {
	return r.db.Save(address).Error
}

// DeleteAddress 删除地址
func (r *GormCustomerRepository) DeleteAddress(id uint) error {
	return r.db.Delete(&models.CustomerAddress{}, id).Error
}

// ClearPrimary 取消客户其它地址的主地址标记
func (r *GormCustomerRepository) ClearPrimary(customerID uint, exceptID uint) error {
	query := r.db.Model(&models.CustomerAddress{}).Where("customer_id = ?", customerID)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Update("is_primary", false).Error
}
