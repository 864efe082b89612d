package service

import (
	"fmt"
	"strings"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

// DocumentInput 登记订单文档参数
type DocumentInput struct {
	OrderID   uint
	DocType   string
	DocNumber string
	FileURL   string
	Actor     string
}

var documentTypeLabels = map[string]string{
	constants.DocumentTypeWaybill:         "транспортную накладную",
	constants.DocumentTypePowerOfAttorney: "доверенность",
	constants.DocumentTypeContract:        "договор-заявку",
}

// DocumentService 订单文档登记服务（只登记，不负责生成）
type DocumentService struct {
	repo      repository.DocumentRepository
	orderRepo repository.OrderRepository
	activity  *ActivityLogService
}

// NewDocumentService 创建文档服务
func NewDocumentService(repo repository.DocumentRepository, orderRepo repository.OrderRepository, activity *ActivityLogService) *DocumentService {
	return &DocumentService{repo: repo, orderRepo: orderRepo, activity: activity}
}

// Create 登记文档并写日志
func (s *DocumentService) Create(input DocumentInput) (*models.OrderDocument, error) {
	if input.OrderID == 0 {
		return nil, newValidationError("order_id", "order_id required")
	}
	docType := strings.TrimSpace(input.DocType)
	if docType == "" {
		return nil, newValidationError("doc_type", "doc_type required")
	}
	actor := s.activity.ResolveActor(input.Actor)
	doc := &models.OrderDocument{
		OrderID:   input.OrderID,
		DocType:   docType,
		DocNumber: strings.TrimSpace(input.DocNumber),
		FileURL:   strings.TrimSpace(input.FileURL),
		CreatedBy: actor,
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByID(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if err := s.repo.WithTx(tx).Create(doc); err != nil {
			return err
		}
		label, ok := documentTypeLabels[docType]
		if !ok {
			label = "документ " + docType
		}
		description := fmt.Sprintf("%s сформировал %s для заказа %s", actor, label, order.OrderNumber)
		if doc.DocNumber != "" {
			description = fmt.Sprintf("%s сформировал %s № %s для заказа %s", actor, label, doc.DocNumber, order.OrderNumber)
		}
		orderID := order.ID
		return s.activity.Append(tx, &orderID, actor, constants.ActionCreateDoc, description)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByOrder 订单文档
func (s *DocumentService) ListByOrder(orderID uint) ([]models.OrderDocument, error) {
	if orderID == 0 {
		return nil, newValidationError("order_id", "order_id required")
	}
	return s.repo.ListByOrder(orderID)
}

// Delete 删除文档登记
func (s *DocumentService) Delete(id uint) error {
	doc, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	return s.repo.Delete(id)
}
