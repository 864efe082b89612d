package models

import (
	"time"
)

// TransportStage 多段运输中的一段
type TransportStage struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	OrderID          uint       `gorm:"index:idx_transport_stage_order_number;not null" json:"order_id"`
	StageNumber      int        `gorm:"index:idx_transport_stage_order_number;not null" json:"stage_number"` // 订单内排序，从 1 开始
	VehicleID        *uint      `gorm:"index" json:"vehicle_id"`
	DriverID         *uint      `gorm:"index" json:"driver_id"`
	FromLocation     string     `gorm:"type:varchar(500)" json:"from_location"`
	ToLocation       string     `gorm:"type:varchar(500)" json:"to_location"`
	PlannedDeparture *time.Time `json:"planned_departure"`
	PlannedArrival   *time.Time `json:"planned_arrival"`
	DistanceKM       Decimal    `gorm:"type:decimal(14,3);not null;default:0" json:"distance_km"`
	Notes            string     `gorm:"type:text" json:"notes"`
	Status           string     `gorm:"type:varchar(32);index;not null" json:"status"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	CompletedBy      string     `gorm:"type:varchar(255)" json:"completed_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	CustomsPoints []CustomsPoint `gorm:"foreignKey:TransportStageID" json:"customs_points,omitempty"`
}

// TableName 指定表名
func (TransportStage) TableName() string {
	return "order_transport_stages"
}

// OrderStage 旧版固定四步流程
type OrderStage struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	OrderID     uint       `gorm:"index;not null" json:"order_id"`
	StageName   string     `gorm:"type:varchar(255);not null" json:"stage_name"`
	StageOrder  int        `gorm:"not null" json:"stage_order"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedBy string     `gorm:"type:varchar(255)" json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName 指定表名
func (OrderStage) TableName() string {
	return "order_stages"
}

// CustomsPoint 报关点
type CustomsPoint struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	TransportStageID uint       `gorm:"index;not null" json:"transport_stage_id"`
	OrderID          uint       `gorm:"index;not null" json:"order_id"`
	CustomsName      string     `gorm:"type:varchar(255);not null" json:"customs_name"`
	Country          string     `gorm:"type:varchar(128)" json:"country"`
	CrossingDate     *time.Time `json:"crossing_date"`
	Notes            string     `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName 指定表名
func (CustomsPoint) TableName() string {
	return "customs_points"
}
