package models

import (
	"strings"

	"github.com/freightdesk/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// DefaultRoleSeed 预置角色
type DefaultRoleSeed struct {
	Name        string
	Description string
	Events      []string
}

// DefaultRoleSeeds 预置角色与默认通知标记
func DefaultRoleSeeds() []DefaultRoleSeed {
	all := []string{"order_created", "order_loaded", "order_in_transit", "order_delivered", "stage_completed"}
	return []DefaultRoleSeed{
		{Name: "admin", Description: "Администратор", Events: all},
		{Name: "logist", Description: "Логист", Events: all},
		{Name: "manager", Description: "Менеджер", Events: []string{"order_created", "stage_completed"}},
		{Name: "driver", Description: "Водитель"},
	}
}

// BuildNotificationPermissions 构建角色权限 JSON
func BuildNotificationPermissions(enabled []string) JSON {
	flags := make(map[string]interface{})
	for _, event := range []string{"order_created", "order_loaded", "order_in_transit", "order_delivered", "stage_completed"} {
		flags[event] = false
	}
	for _, event := range enabled {
		flags[strings.TrimSpace(event)] = true
	}
	return JSON{"telegram_notifications": flags}
}

// InitDefaultRoles 初始化缺失的预置角色
func InitDefaultRoles() error {
	for _, seed := range DefaultRoleSeeds() {
		var count int64
		if err := DB.Model(&Role{}).Where("name = ?", seed.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		role := Role{
			Name:        seed.Name,
			Description: seed.Description,
			Permissions: BuildNotificationPermissions(seed.Events),
		}
		if err := DB.Create(&role).Error; err != nil {
			return err
		}
		logger.Infow("default_role_created", "role", seed.Name)
	}
	return nil
}

// InitDefaultAdmin 用户表为空时创建默认管理员
func InitDefaultAdmin(username, password string) error {
	var count int64
	if err := DB.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if username == "" {
		username = "admin"
	}
	defaultPassword := password == ""
	if defaultPassword {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	var role Role
	user := User{
		Username:     username,
		FullName:     "Администратор",
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := DB.Where("name = ?", "admin").First(&role).Error; err == nil {
		user.RoleID = &role.ID
	}
	if err := DB.Create(&user).Error; err != nil {
		return err
	}

	if defaultPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
