package models

import "time"

// Setting 系统设置表（键值对，每个键只保留一行生效配置）
type Setting struct {
	Key       string    `gorm:"primarykey;type:varchar(128)" json:"key"` // 配置键
	ValueJSON JSON      `gorm:"type:json" json:"value"`                  // 配置值
	UpdatedAt time.Time `json:"updated_at"`                              // 更新时间
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
