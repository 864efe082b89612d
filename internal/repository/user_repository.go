package repository

import (
	"errors"
	"strings"

	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	Delete(id uint) error
	List(filter EntityListFilter) ([]models.User, int64, error)
	ListNotifiable() ([]models.User, error)
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	return findByID[models.User](r.db, id, "Role")
}

// GetByUsername 根据登录名获取用户
func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Role").Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Omit("Role").Create(user).Error
}

// Update 更新用户
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Omit("Role").Save(user).Error
}

// Delete 删除用户
func (r *GormUserRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// List 用户列表
func (r *GormUserRepository) List(filter EntityListFilter) ([]models.User, int64, error) {
	query := applyLikeSearch(r.db.Model(&models.User{}), filter.Search, "username", "full_name")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Preload("Role").
		Order("username ASC, id ASC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListNotifiable 启用且绑定了 Telegram 的用户（含角色）
func (r *GormUserRepository) ListNotifiable() ([]models.User, error) {
	var users []models.User
	if err := r.db.Preload("Role").
		Where("is_active = ?", true).
		Where("telegram_chat_id IS NOT NULL AND telegram_chat_id <> ''").
		Where("role_id IS NOT NULL").
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// RoleRepository 角色数据访问接口
type RoleRepository interface {
	GetByID(id uint) (*models.Role, error)
	GetByName(name string) (*models.Role, error)
	List() ([]models.Role, error)
	Create(role *models.Role) error
	Update(role *models.Role) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormRoleRepository
}

// GormRoleRepository GORM 实现
type GormRoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository 创建角色仓库
func NewRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRoleRepository) WithTx(tx *gorm.DB) *GormRoleRepository {
	if tx == nil {
		return r
	}
	return &GormRoleRepository{db: tx}
}

// GetByID 根据 ID 获取角色
func (r *GormRoleRepository) GetByID(id uint) (*models.Role, error) {
	return findByID[models.Role](r.db, id)
}

// GetByName 根据名称获取角色
func (r *GormRoleRepository) GetByName(name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.Where("name = ?", strings.TrimSpace(name)).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// List 全部角色
func (r *GormRoleRepository) List() ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// Create 创建角色
func (r *GormRoleRepository) Create(role *models.Role) error {
	return r.db.Create(role).Error
}

// Update 更新角色
func (r *GormRoleRepository) Update(role *models.Role) error {
	return r.db.Save(role).Error
}

// Delete 删除角色
func (r *GormRoleRepository) Delete(id uint) error {
	return r.db.Delete(&models.Role{}, id).Error
}
