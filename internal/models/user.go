package models

import (
	"time"
)

// User 后台用户
type User struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Username       string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"username"`
	FullName       string    `gorm:"type:varchar(255)" json:"full_name"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	RoleID         *uint     `gorm:"index" json:"role_id"`
	TelegramChatID string    `gorm:"type:varchar(64);index" json:"telegram_chat_id"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Role 角色与权限标记
type Role struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Permissions JSON      `gorm:"type:json" json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Role) TableName() string {
	return "roles"
}

// NotificationFlags 读取 telegram_notifications 权限标记
func (r Role) NotificationFlags() map[string]bool {
	flags := make(map[string]bool)
	if r.Permissions == nil {
		return flags
	}
	raw, ok := r.Permissions["telegram_notifications"]
	if !ok {
		return flags
	}
	values, ok := raw.(map[string]interface{})
	if !ok {
		return flags
	}
	for event, value := range values {
		switch v := value.(type) {
		case bool:
			flags[event] = v
		case string:
			flags[event] = v == "true"
		}
	}
	return flags
}
