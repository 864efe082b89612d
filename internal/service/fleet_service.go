package service

import (
	"context"
	"strings"
	"time"

	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

// DriverInput 司机创建/更新参数
type DriverInput struct {
	LastName          string
	FirstName         string
	MiddleName        string
	Phone             string
	AdditionalPhone   string
	PassportSeries    string
	PassportNumber    string
	PassportIssuedBy  string
	PassportIssueDate *time.Time
	LicenseSeries     string
	LicenseNumber     string
	LicenseIssuedBy   string
	LicenseIssueDate  *time.Time
	Status            string
}

// VehicleInput 车辆创建/更新参数
type VehicleInput struct {
	VehicleType  string
	VehicleBrand string
	LicensePlate string
	TrailerPlate string
	BodyType     string
	CompanyName  string
	DriverID     *uint
	Status       string
}

// ClientInput 承运商创建/更新参数
type ClientInput struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
}

const defaultEntityStatus = "active"

// FleetService 司机、车辆、承运商服务
type FleetService struct {
	driverRepo  repository.DriverRepository
	vehicleRepo repository.VehicleRepository
	clientRepo  repository.ClientRepository
	refRepo     repository.ReferenceRepository
	dashboard   *DashboardService
}

// NewFleetService 创建车队服务
func NewFleetService(
	driverRepo repository.DriverRepository,
	vehicleRepo repository.VehicleRepository,
	clientRepo repository.ClientRepository,
	refRepo repository.ReferenceRepository,
	dashboard *DashboardService,
) *FleetService {
	return &FleetService{
		driverRepo:  driverRepo,
		vehicleRepo: vehicleRepo,
		clientRepo:  clientRepo,
		refRepo:     refRepo,
		dashboard:   dashboard,
	}
}

// ListDrivers 司机列表
func (s *FleetService) ListDrivers(filter repository.EntityListFilter) ([]models.Driver, int64, error) {
	return s.driverRepo.List(filter)
}

// GetDriver 获取司机
func (s *FleetService) GetDriver(id uint) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, ErrDriverNotFound
	}
	return driver, nil
}

// CreateDriver 创建司机
func (s *FleetService) CreateDriver(input DriverInput) (*models.Driver, error) {
	driver, err := buildDriver(input, nil)
	if err != nil {
		return nil, err
	}
	if err := s.driverRepo.Create(driver); err != nil {
		return nil, err
	}
	s.dashboard.Invalidate(context.Background())
	return driver, nil
}

// UpdateDriver 更新司机
func (s *FleetService) UpdateDriver(id uint, input DriverInput) (*models.Driver, error) {
	existing, err := s.GetDriver(id)
	if err != nil {
		return nil, err
	}
	driver, err := buildDriver(input, existing)
	if err != nil {
		return nil, err
	}
	if err := s.driverRepo.Update(driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// DeleteDriver 删除司机；被运输段或车辆引用时拒绝
func (s *FleetService) DeleteDriver(id uint) error {
	if _, err := s.GetDriver(id); err != nil {
		return err
	}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		blockers, total, err := s.refRepo.WithTx(tx).DriverReferences(id, maxBlockerExamples)
		if err != nil {
			return err
		}
		if err := newReferenceBlockedError("driver", blockers, total); err != nil {
			return err
		}
		return s.driverRepo.WithTx(tx).Delete(id)
	})
	if err != nil {
		return err
	}
	s.dashboard.Invalidate(context.Background())
	return nil
}

func buildDriver(input DriverInput, existing *models.Driver) (*models.Driver, error) {
	lastName := strings.TrimSpace(input.LastName)
	if lastName == "" {
		return nil, newValidationError("last_name", "last_name required")
	}
	driver := &models.Driver{}
	if existing != nil {
		driver = existing
	}
	driver.LastName = lastName
	driver.FirstName = strings.TrimSpace(input.FirstName)
	driver.MiddleName = strings.TrimSpace(input.MiddleName)
	driver.Phone = strings.TrimSpace(input.Phone)
	driver.AdditionalPhone = strings.TrimSpace(input.AdditionalPhone)
	driver.PassportSeries = strings.TrimSpace(input.PassportSeries)
	driver.PassportNumber = strings.TrimSpace(input.PassportNumber)
	driver.PassportIssuedBy = strings.TrimSpace(input.PassportIssuedBy)
	driver.PassportIssueDate = input.PassportIssueDate
	driver.LicenseSeries = strings.TrimSpace(input.LicenseSeries)
	driver.LicenseNumber = strings.TrimSpace(input.LicenseNumber)
	driver.LicenseIssuedBy = strings.TrimSpace(input.LicenseIssuedBy)
	driver.LicenseIssueDate = input.LicenseIssueDate
	driver.Status = normalizeEntityStatus(input.Status)
	return driver, nil
}

// ListVehicles 车辆列表
func (s *FleetService) ListVehicles(filter repository.EntityListFilter) ([]models.Vehicle, int64, error) {
	return s.vehicleRepo.List(filter)
}

// GetVehicle 获取车辆
func (s *FleetService) GetVehicle(id uint) (*models.Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

// CreateVehicle 创建车辆
func (s *FleetService) CreateVehicle(input VehicleInput) (*models.Vehicle, error) {
	vehicle, err := s.buildVehicle(input, nil)
	if err != nil {
		return nil, err
	}
	if err := s.vehicleRepo.Create(vehicle); err != nil {
		return nil, err
	}
	s.dashboard.Invalidate(context.Background())
	return vehicle, nil
}

// UpdateVehicle 更新车辆
func (s *FleetService) UpdateVehicle(id uint, input VehicleInput) (*models.Vehicle, error) {
	existing, err := s.GetVehicle(id)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.buildVehicle(input, existing)
	if err != nil {
		return nil, err
	}
	if err := s.vehicleRepo.Update(vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

// DeleteVehicle 删除车辆；被运输段引用时拒绝
func (s *FleetService) DeleteVehicle(id uint) error {
	if _, err := s.GetVehicle(id); err != nil {
		return err
	}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		blockers, total, err := s.refRepo.WithTx(tx).VehicleReferences(id, maxBlockerExamples)
		if err != nil {
			return err
		}
		if err := newReferenceBlockedError("vehicle", blockers, total); err != nil {
			return err
		}
		return s.vehicleRepo.WithTx(tx).Delete(id)
	})
	if err != nil {
		return err
	}
	s.dashboard.Invalidate(context.Background())
	return nil
}

func (s *FleetService) buildVehicle(input VehicleInput, existing *models.Vehicle) (*models.Vehicle, error) {
	plate := strings.TrimSpace(input.LicensePlate)
	if plate == "" {
		return nil, newValidationError("license_plate", "license_plate required")
	}
	driverID := normalizeOptionalID(input.DriverID)
	if driverID != nil {
		driver, err := s.driverRepo.GetByID(*driverID)
		if err != nil {
			return nil, err
		}
		if driver == nil {
			return nil, newValidationError("driver_id", "driver not found")
		}
	}
	vehicle := &models.Vehicle{}
	if existing != nil {
		vehicle = existing
	}
	vehicle.VehicleType = strings.TrimSpace(input.VehicleType)
	vehicle.VehicleBrand = strings.TrimSpace(input.VehicleBrand)
	vehicle.LicensePlate = plate
	vehicle.TrailerPlate = strings.TrimSpace(input.TrailerPlate)
	vehicle.BodyType = strings.TrimSpace(input.BodyType)
	vehicle.CompanyName = strings.TrimSpace(input.CompanyName)
	vehicle.DriverID = driverID
	vehicle.Driver = nil
	vehicle.Status = normalizeEntityStatus(input.Status)
	return vehicle, nil
}

// ListClients 承运商列表
func (s *FleetService) ListClients(filter repository.EntityListFilter) ([]models.Client, int64, error) {
	return s.clientRepo.List(filter)
}

// GetClient 获取承运商
func (s *FleetService) GetClient(id uint) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// CreateClient 创建承运商
func (s *FleetService) CreateClient(input ClientInput) (*models.Client, error) {
	client, err := buildClient(input, nil)
	if err != nil {
		return nil, err
	}
	if err := s.clientRepo.Create(client); err != nil {
		return nil, err
	}
	s.dashboard.Invalidate(context.Background())
	return client, nil
}

// UpdateClient 更新承运商
func (s *FleetService) UpdateClient(id uint, input ClientInput) (*models.Client, error) {
	existing, err := s.GetClient(id)
	if err != nil {
		return nil, err
	}
	client, err := buildClient(input, existing)
	if err != nil {
		return nil, err
	}
	if err := s.clientRepo.Update(client); err != nil {
		return nil, err
	}
	return client, nil
}

// DeleteClient 删除承运商；被订单引用时拒绝
func (s *FleetService) DeleteClient(id uint) error {
	if _, err := s.GetClient(id); err != nil {
		return err
	}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		blockers, total, err := s.refRepo.WithTx(tx).ClientReferences(id, maxBlockerExamples)
		if err != nil {
			return err
		}
		if err := newReferenceBlockedError("client", blockers, total); err != nil {
			return err
		}
		return s.clientRepo.WithTx(tx).Delete(id)
	})
	if err != nil {
		return err
	}
	s.dashboard.Invalidate(context.Background())
	return nil
}

func buildClient(input ClientInput, existing *models.Client) (*models.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError("name", "name required")
	}
	client := &models.Client{}
	if existing != nil {
		client = existing
	}
	client.Name = name
	client.ContactPerson = strings.TrimSpace(input.ContactPerson)
	client.Phone = strings.TrimSpace(input.Phone)
	client.Email = strings.TrimSpace(input.Email)
	client.Address = strings.TrimSpace(input.Address)
	return client, nil
}

func normalizeEntityStatus(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return defaultEntityStatus
	}
	return status
}
