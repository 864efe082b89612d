package models

import "time"

// TelegramNotification 单个接收人的发送结果
type TelegramNotification struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	OrderID      *uint     `gorm:"index" json:"order_id"`
	OutboxID     *uint     `gorm:"index" json:"outbox_id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	EventType    string    `gorm:"type:varchar(64);index;not null" json:"event_type"`
	ChatID       string    `gorm:"type:varchar(64);not null" json:"chat_id"`
	Message      string    `gorm:"type:text" json:"message"`
	IsSuccess    bool      `gorm:"not null;default:false" json:"is_success"`
	ErrorMessage string    `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (TelegramNotification) TableName() string {
	return "telegram_sent_notifications"
}

// NotificationOutbox 通知发件箱（与业务写入同事务）
type NotificationOutbox struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	EventType       string     `gorm:"type:varchar(64);index;not null" json:"event_type"`
	OrderID         *uint      `gorm:"index" json:"order_id"`
	Payload         JSON       `gorm:"type:json" json:"payload"`
	Status          string     `gorm:"type:varchar(32);index;not null" json:"status"`
	Attempts        int        `gorm:"not null;default:0" json:"attempts"`
	LastError       string     `gorm:"type:text" json:"last_error"`
	Sent            int        `gorm:"not null;default:0" json:"sent"`
	TotalRecipients int        `gorm:"not null;default:0" json:"total_recipients"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"index" json:"updated_at"`
	DispatchedAt    *time.Time `json:"dispatched_at"`
}

// TableName 指定表名
func (NotificationOutbox) TableName() string {
	return "notification_outbox"
}
