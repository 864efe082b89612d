package models

import "time"

// ActivityLog 订单操作日志（只追加）
type ActivityLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     *uint     `gorm:"index" json:"order_id"`
	UserRole    string    `gorm:"type:varchar(255);not null" json:"user_role"`
	ActionType  string    `gorm:"type:varchar(64);index;not null" json:"action_type"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ActivityLog) TableName() string {
	return "activity_logs"
}
