package service

import (
	"strings"

	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

// CustomerInput 客户创建/更新参数
type CustomerInput struct {
	CompanyName     string
	Nickname        string
	INN             string
	KPP             string
	LegalAddress    string
	DirectorName    string
	ConnectionBasis string
	Addresses       []CustomerAddressInput
}

// CustomerAddressInput 客户地址参数
type CustomerAddressInput struct {
	CustomerID    uint
	AddressName   string
	Address       string
	ContactPerson string
	Phone         string
	IsPrimary     bool
}

// CustomerService 付款客户服务
type CustomerService struct {
	repo    repository.CustomerRepository
	refRepo repository.ReferenceRepository
}

// NewCustomerService 创建客户服务
func NewCustomerService(repo repository.CustomerRepository, refRepo repository.ReferenceRepository) *CustomerService {
	return &CustomerService{repo: repo, refRepo: refRepo}
}

// List 客户列表（含地址）
func (s *CustomerService) List(filter repository.EntityListFilter) ([]models.Customer, int64, error) {
	return s.repo.List(filter)
}

// Get 获取客户
func (s *CustomerService) Get(id uint) (*models.Customer, error) {
	customer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// Create 创建客户，可同时创建地址
func (s *CustomerService) Create(input CustomerInput) (*models.Customer, error) {
	customer, err := buildCustomer(input, nil)
	if err != nil {
		return nil, err
	}
	addresses := make([]models.CustomerAddress, 0, len(input.Addresses))
	primarySeen := false
	for _, item := range input.Addresses {
		address, err := buildCustomerAddress(item, nil)
		if err != nil {
			return nil, err
		}
		if address.IsPrimary {
			if primarySeen {
				address.IsPrimary = false
			}
			primarySeen = true
		}
		addresses = append(addresses, *address)
	}
	customer.Addresses = addresses
	if err := s.repo.Create(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Update 更新客户主表字段，地址单独维护
func (s *CustomerService) Update(id uint, input CustomerInput) (*models.Customer, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	customer, err := buildCustomer(input, existing)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Delete 删除客户及其地址；被订单引用时拒绝
func (s *CustomerService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return models.DB.Transaction(func(tx *gorm.DB) error {
		blockers, total, err := s.refRepo.WithTx(tx).CustomerReferences(id, maxBlockerExamples)
		if err != nil {
			return err
		}
		if err := newReferenceBlockedError("customer", blockers, total); err != nil {
			return err
		}
		return s.repo.WithTx(tx).DeleteWithAddresses(id)
	})
}

// ListAddresses 客户地址
func (s *CustomerService) ListAddresses(customerID uint) ([]models.CustomerAddress, error) {
	if customerID == 0 {
		return nil, newValidationError("customer_id", "customer_id required")
	}
	return s.repo.ListAddresses(customerID)
}

// CreateAddress 新增地址；设为主地址时取消其它主地址
func (s *CustomerService) CreateAddress(input CustomerAddressInput) (*models.CustomerAddress, error) {
	if _, err := s.Get(input.CustomerID); err != nil {
		return nil, err
	}
	address, err := buildCustomerAddress(input, nil)
	if err != nil {
		return nil, err
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateAddress(address); err != nil {
			return err
		}
		if address.IsPrimary {
			return repo.ClearPrimary(address.CustomerID, address.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// UpdateAddress 更新地址
func (s *CustomerService) UpdateAddress(id uint, input CustomerAddressInput) (*models.CustomerAddress, error) {
	existing, err := s.repo.GetAddress(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCustomerAddressNotFound
	}
	input.CustomerID = existing.CustomerID
	address, err := buildCustomerAddress(input, existing)
	if err != nil {
		return nil, err
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateAddress(address); err != nil {
			return err
		}
		if address.IsPrimary {
			return repo.ClearPrimary(address.CustomerID, address.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// DeleteAddress 删除地址
func (s *CustomerService) DeleteAddress(id uint) error {
	existing, err := s.repo.GetAddress(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCustomerAddressNotFound
	}
	return s.repo.DeleteAddress(id)
}

func buildCustomer(input CustomerInput, existing *models.Customer) (*models.Customer, error) {
	companyName := strings.TrimSpace(input.CompanyName)
	if companyName == "" {
		return nil, newValidationError("company_name", "company_name required")
	}
	customer := &models.Customer{}
	if existing != nil {
		customer = existing
	}
	customer.CompanyName = companyName
	customer.Nickname = strings.TrimSpace(input.Nickname)
	customer.INN = strings.TrimSpace(input.INN)
	customer.KPP = strings.TrimSpace(input.KPP)
	customer.LegalAddress = strings.TrimSpace(input.LegalAddress)
	customer.DirectorName = strings.TrimSpace(input.DirectorName)
	customer.ConnectionBasis = strings.TrimSpace(input.ConnectionBasis)
	return customer, nil
}

func buildCustomerAddress(input CustomerAddressInput, existing *models.CustomerAddress) (*models.CustomerAddress, error) {
	text := strings.TrimSpace(input.Address)
	if text == "" {
		return nil, newValidationError("address", "address required")
	}
	address := &models.CustomerAddress{}
	if existing != nil {
		address = existing
	}
	address.CustomerID = input.CustomerID
	address.AddressName = strings.TrimSpace(input.AddressName)
	address.Address = text
	address.ContactPerson = strings.TrimSpace(input.ContactPerson)
	address.Phone = strings.TrimSpace(input.Phone)
	address.IsPrimary = input.IsPrimary
	return address, nil
}
