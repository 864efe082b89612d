package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page      int
	PageSize  int
	Status    string
	ClientID  uint
	Search    string
	CreatedAt *time.Time
}

// EntityListFilter 基础资料列表过滤条件
type EntityListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// NotificationListFilter 通知发送记录过滤条件
type NotificationListFilter struct {
	Page      int
	PageSize  int
	OrderID   uint
	EventType string
}

// ActivityLogView 操作日志及其订单编号
type ActivityLogView struct {
	ID          uint      `json:"id"`
	OrderID     *uint     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserRole    string    `json:"user_role"`
	ActionType  string    `json:"action_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransportStageViewRow 运输段展示行（含司机与车辆字段）
type TransportStageViewRow struct {
	ID               uint
	OrderID          uint
	StageNumber      int
	FromLocation     string
	ToLocation       string
	Status           string
	Notes            string
	DistanceKM       string
	PlannedDeparture *time.Time
	PlannedArrival   *time.Time
	CompletedAt      *time.Time
	CompletedBy      string
	DriverID         *uint
	VehicleID        *uint
	DriverLastName   string
	DriverFirstName  string
	DriverMiddleName string
	VehicleBrand     string
	LicensePlate     string
	TrailerPlate     string
}
