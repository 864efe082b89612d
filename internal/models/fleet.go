package models

import (
	"strings"
	"time"
)

// Driver 司机
type Driver struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	LastName          string     `gorm:"type:varchar(128);not null" json:"last_name"`
	FirstName         string     `gorm:"type:varchar(128)" json:"first_name"`
	MiddleName        string     `gorm:"type:varchar(128)" json:"middle_name"`
	Phone             string     `gorm:"type:varchar(64)" json:"phone"`
	AdditionalPhone   string     `gorm:"type:varchar(64)" json:"additional_phone"`
	PassportSeries    string     `gorm:"type:varchar(16)" json:"passport_series"`
	PassportNumber    string     `gorm:"type:varchar(32)" json:"passport_number"`
	PassportIssuedBy  string     `gorm:"type:varchar(500)" json:"passport_issued_by"`
	PassportIssueDate *time.Time `json:"passport_issue_date"`
	LicenseSeries     string     `gorm:"type:varchar(16)" json:"license_series"`
	LicenseNumber     string     `gorm:"type:varchar(32)" json:"license_number"`
	LicenseIssuedBy   string     `gorm:"type:varchar(500)" json:"license_issued_by"`
	LicenseIssueDate  *time.Time `json:"license_issue_date"`
	Status            string     `gorm:"type:varchar(32);default:'active'" json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Driver) TableName() string {
	return "drivers"
}

// FullName 司机展示名
func (d Driver) FullName() string {
	return JoinNonEmpty(" ", d.LastName, d.FirstName, d.MiddleName)
}

// Vehicle 车辆
type Vehicle struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	VehicleType  string    `gorm:"type:varchar(64)" json:"vehicle_type"`
	VehicleBrand string    `gorm:"type:varchar(128)" json:"vehicle_brand"`
	LicensePlate string    `gorm:"type:varchar(32);index;not null" json:"license_plate"`
	TrailerPlate string    `gorm:"type:varchar(32)" json:"trailer_plate"`
	BodyType     string    `gorm:"type:varchar(64)" json:"body_type"`
	CompanyName  string    `gorm:"type:varchar(255)" json:"company_name"`
	DriverID     *uint     `gorm:"index" json:"driver_id"`
	Status       string    `gorm:"type:varchar(32);default:'active'" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Driver *Driver `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
}

// TableName 指定表名
func (Vehicle) TableName() string {
	return "vehicles"
}

// DisplayName 车辆展示名：品牌 车牌 + 挂车
func (v Vehicle) DisplayName() string {
	return VehicleDisplayName(v.VehicleBrand, v.LicensePlate, v.TrailerPlate)
}

// VehicleDisplayName 拼接车辆展示名
func VehicleDisplayName(brand, plate, trailer string) string {
	trailerPart := ""
	if strings.TrimSpace(trailer) != "" {
		trailerPart = "+ " + strings.TrimSpace(trailer)
	}
	return JoinNonEmpty(" ", brand, plate, trailerPart)
}

// Client 承运商
type Client struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	ContactPerson string    `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string    `gorm:"type:varchar(64)" json:"phone"`
	Email         string    `gorm:"type:varchar(255)" json:"email"`
	Address       string    `gorm:"type:varchar(500)" json:"address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Client) TableName() string {
	return "clients"
}

// Customer 付款客户
type Customer struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CompanyName     string    `gorm:"type:varchar(255);not null" json:"company_name"`
	Nickname        string    `gorm:"type:varchar(255)" json:"nickname"`
	INN             string    `gorm:"column:inn;type:varchar(32)" json:"inn"`
	KPP             string    `gorm:"column:kpp;type:varchar(32)" json:"kpp"`
	LegalAddress    string    `gorm:"type:varchar(500)" json:"legal_address"`
	DirectorName    string    `gorm:"type:varchar(255)" json:"director_name"`
	ConnectionBasis string    `gorm:"type:varchar(255)" json:"connection_basis"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Addresses []CustomerAddress `gorm:"foreignKey:CustomerID" json:"addresses,omitempty"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// DisplayName 客户展示名，优先使用简称
func (c Customer) DisplayName() string {
	if strings.TrimSpace(c.Nickname) != "" {
		return strings.TrimSpace(c.Nickname)
	}
	return strings.TrimSpace(c.CompanyName)
}

// CustomerAddress 客户地址
type CustomerAddress struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CustomerID    uint      `gorm:"index;not null" json:"customer_id"`
	AddressName   string    `gorm:"type:varchar(255)" json:"address_name"`
	Address       string    `gorm:"type:varchar(500);not null" json:"address"`
	ContactPerson string    `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string    `gorm:"type:varchar(64)" json:"phone"`
	IsPrimary     bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CustomerAddress) TableName() string {
	return "customer_addresses"
}

// JoinNonEmpty 跳过空白片段后拼接
func JoinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, sep)
}
