package service

import (
	"strings"

	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserInput 用户创建/更新参数
type UserInput struct {
	Username       string
	FullName       string
	Password       string
	RoleID         *uint
	RoleName       string
	TelegramChatID string
	IsActive       *bool
}

// UserService 后台用户服务
type UserService struct {
	repo     repository.UserRepository
	roleRepo repository.RoleRepository
	policy   PasswordPolicy
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, roleRepo repository.RoleRepository) *UserService {
	return &UserService{repo: repo, roleRepo: roleRepo, policy: defaultPasswordPolicy}
}

// List 用户列表
func (s *UserService) List(filter repository.EntityListFilter) ([]models.User, int64, error) {
	return s.repo.List(filter)
}

// Get 获取用户
func (s *UserService) Get(id uint) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Create 创建用户（bcrypt 存储密码）
func (s *UserService) Create(input UserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, newValidationError("username", "username required")
	}
	existing, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}
	if err := s.policy.Check(input.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role, err := s.resolveRole(input.RoleID, input.RoleName)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:       username,
		FullName:       strings.TrimSpace(input.FullName),
		PasswordHash:   string(hash),
		TelegramChatID: strings.TrimSpace(input.TelegramChatID),
		IsActive:       true,
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if role != nil {
		user.RoleID = &role.ID
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// Update 更新用户；密码为空时保持不变
func (s *UserService) Update(id uint, input UserInput) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if username := strings.TrimSpace(input.Username); username != "" && username != user.Username {
		existing, err := s.repo.GetByUsername(username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, ErrUsernameExists
		}
		user.Username = username
	}
	if input.Password != "" {
		if err := s.policy.Check(input.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if input.RoleID != nil || strings.TrimSpace(input.RoleName) != "" {
		role, err := s.resolveRole(input.RoleID, input.RoleName)
		if err != nil {
			return nil, err
		}
		user.RoleID = nil
		user.Role = role
		if role != nil {
			user.RoleID = &role.ID
		}
	}
	user.FullName = strings.TrimSpace(input.FullName)
	user.TelegramChatID = strings.TrimSpace(input.TelegramChatID)
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete 删除用户
func (s *UserService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

// CheckPassword 校验密码
func (s *UserService) CheckPassword(user *models.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// resolveRole 按 ID 或名称查找角色，都为空时返回 nil
func (s *UserService) resolveRole(roleID *uint, roleName string) (*models.Role, error) {
	if id := normalizeOptionalID(roleID); id != nil {
		role, err := s.roleRepo.GetByID(*id)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, ErrRoleNotFound
		}
		return role, nil
	}
	name := strings.TrimSpace(roleName)
	if name == "" {
		return nil, nil
	}
	role, err := s.roleRepo.GetByName(name)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}
