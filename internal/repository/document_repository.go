package repository

import (
	"errors"

	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// DocumentRepository 订单文档登记接口
type DocumentRepository interface {
	Create(doc *models.OrderDocument) error
	GetByID(id uint) (*models.OrderDocument, error)
	ListByOrder(orderID uint) ([]models.OrderDocument, error)
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormDocumentRepository
}

// GormDocumentRepository GORM 实现
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓库
func NewDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDocumentRepository) WithTx(tx *gorm.DB) *GormDocumentRepository {
	if tx == nil {
		return r
	}
	return &GormDocumentRepository{db: tx}
}

// Create 登记文档
func (r *GormDocumentRepository) Create(doc *models.OrderDocument) error {
	return r.db.Create(doc).Error
}

// GetByID 根据 ID 获取
func (r *GormDocumentRepository) GetByID(id uint) (*models.OrderDocument, error) {
	var doc models.OrderDocument
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// ListByOrder 订单文档
func (r *GormDocumentRepository) ListByOrder(orderID uint) ([]models.OrderDocument, error) {
	var docs []models.OrderDocument
	if err := r.db.Where("order_id = ?", orderID).Order("created_at DESC, id DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete 删除文档登记
func (r *GormDocumentRepository) Delete(id uint) error {
	return r.db.Delete(&models.OrderDocument{}, id).Error
}
