package models

import (
	"time"
)

// Order 订单表
type Order struct {
	ID          uint        `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNumber string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_number"` // 订单编号
	OrderDate   *time.Time  `gorm:"index" json:"order_date"`                                   // 订单日期
	Status      string      `gorm:"type:varchar(32);index;not null" json:"status"`             // 订单状态（由调用方设置）
	ClientID    *uint       `gorm:"index" json:"client_id"`                                    // 承运商
	CargoType   string      `gorm:"type:varchar(255)" json:"cargo_type"`                       // 货物类型
	CargoWeight Decimal     `gorm:"type:decimal(14,3);not null;default:0" json:"cargo_weight"` // 货物重量
	Invoice     string      `gorm:"type:varchar(255)" json:"invoice"`                          // 发票号
	TrackNumber string      `gorm:"type:varchar(255)" json:"track_number"`                     // 追踪号
	Notes       string      `gorm:"type:text" json:"notes"`                                    // 备注
	Attachments StringArray `gorm:"type:json" json:"attachments"`                              // 附件引用
	CreatedBy   string      `gorm:"type:varchar(255)" json:"created_by"`                       // 创建人标签
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt   time.Time   `json:"updated_at"`                                                // 更新时间

	Client          *Client          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Customers       []OrderCustomer  `gorm:"foreignKey:OrderID" json:"customer_items,omitempty"`
	TransportStages []TransportStage `gorm:"foreignKey:OrderID" json:"transport_stages,omitempty"`
	Stages          []OrderStage     `gorm:"foreignKey:OrderID" json:"stages,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderCustomer 订单付款客户（有序）
type OrderCustomer struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	OrderID    uint      `gorm:"index;not null" json:"order_id"`
	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	Note       string    `gorm:"type:text" json:"note"`
	CreatedAt  time.Time `json:"created_at"`

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName 指定表名
func (OrderCustomer) TableName() string {
	return "order_customers"
}

// OrderDocument 订单文档登记（运单、委托书、合同）
type OrderDocument struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	DocType   string    `gorm:"type:varchar(64);index;not null" json:"doc_type"`
	DocNumber string    `gorm:"type:varchar(128)" json:"doc_number"`
	FileURL   string    `gorm:"type:varchar(1000)" json:"file_url"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (OrderDocument) TableName() string {
	return "order_documents"
}
