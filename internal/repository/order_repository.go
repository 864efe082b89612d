package repository

import (
	"errors"
	"strings"

	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByNumber(orderNumber string) (*models.Order, error)
	ExistsByNumber(orderNumber string, excludeID uint) (bool, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	Update(order *models.Order) error
	ReplaceCustomers(orderID uint, items []models.OrderCustomer) error
	ListNumbersWithPrefix(prefix string) ([]string, error)
	DeleteCascade(orderID uint) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Client").
		Preload("Customers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Customers.Customer").
		Preload("TransportStages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stage_number ASC, id ASC")
		}).
		Preload("TransportStages.CustomsPoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stage_order ASC, id ASC")
		})
}

// Create 创建订单及其客户列表
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单详情
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByNumber 根据订单编号获取订单
func (r *GormOrderRepository) GetByNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("order_number = ?", strings.TrimSpace(orderNumber)).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ExistsByNumber 判断订单编号是否已被其它订单占用
func (r *GormOrderRepository) ExistsByNumber(orderNumber string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&models.Order{}).Where("order_number = ?", strings.TrimSpace(orderNumber))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 订单列表（最新在前）
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	query = applyLikeSearch(query, filter.Search, "order_number", "invoice", "track_number", "cargo_type")
	if filter.CreatedAt != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAt)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	var orders []models.Order
	if err := r.withDetails(query).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update 保存订单主表字段
func (r *GormOrderRepository) Update(order *models.Order) error {
	return r.db.Omit("Client", "Customers", "TransportStages", "Stages").Save(order).Error
}

// ReplaceCustomers 替换订单付款客户列表
func (r *GormOrderRepository) ReplaceCustomers(orderID uint, items []models.OrderCustomer) error {
	if err := r.db.Where("order_id = ?", orderID).Delete(&models.OrderCustomer{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].OrderID = orderID
		items[i].Customer = nil
	}
	return r.db.Create(&items).Error
}

// ListNumbersWithPrefix 列出指定前缀的订单编号
func (r *GormOrderRepository) ListNumbersWithPrefix(prefix string) ([]string, error) {
	var numbers []string
	if err := r.db.Model(&models.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Pluck("order_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// DeleteCascade 按子表到主表的顺序删除订单及其全部从属数据
func (r *GormOrderRepository) DeleteCascade(orderID uint) error {
	steps := []interface{}{
		&models.OrderDocument{},
		&models.CustomsPoint{},
		&models.TransportStage{},
		&models.OrderStage{},
		&models.ActivityLog{},
		&models.OrderCustomer{},
	}
	for _, model := range steps {
		if err := r.db.Where("order_id = ?", orderID).Delete(model).Error; err != nil {
			return err
		}
	}
	return r.db.Delete(&models.Order{}, orderID).Error
}
