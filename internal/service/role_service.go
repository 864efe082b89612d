package service

import (
	"sort"
	"strings"

	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

// RolePolicySyncer 角色通知策略同步（casbin）
type RolePolicySyncer interface {
	SyncRoleNotifications(role string, flags map[string]bool) error
	DeleteRole(role string) error
}

// RoleInput 角色创建/更新参数
type RoleInput struct {
	Name                 string
	Description          string
	NotificationsEnabled []string
}

// RoleService 角色与通知权限服务
type RoleService struct {
	repo    repository.RoleRepository
	refRepo repository.ReferenceRepository
	syncer  RolePolicySyncer
}

// NewRoleService 创建角色服务
func NewRoleService(repo repository.RoleRepository, refRepo repository.ReferenceRepository, syncer RolePolicySyncer) *RoleService {
	return &RoleService{repo: repo, refRepo: refRepo, syncer: syncer}
}

// List 角色列表
func (s *RoleService) List() ([]models.Role, error) {
	return s.repo.List()
}

// Get 获取角色
func (s *RoleService) Get(id uint) (*models.Role, error) {
	role, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

// Create 创建角色
func (s *RoleService) Create(input RoleInput) (*models.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError("name", "name required")
	}
	existing, err := s.repo.GetByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRoleExists
	}
	events, err := normalizeNotificationEvents(input.NotificationsEnabled)
	if err != nil {
		return nil, err
	}
	role := &models.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Permissions: models.BuildNotificationPermissions(events),
	}
	if err := s.repo.Create(role); err != nil {
		return nil, err
	}
	s.syncPolicy(role)
	return role, nil
}

// UpdatePermissions 覆盖角色的通知权限标记
func (s *RoleService) UpdatePermissions(id uint, input RoleInput) (*models.Role, error) {
	role, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	events, err := normalizeNotificationEvents(input.NotificationsEnabled)
	if err != nil {
		return nil, err
	}
	if description := strings.TrimSpace(input.Description); description != "" {
		role.Description = description
	}
	role.Permissions = models.BuildNotificationPermissions(events)
	if err := s.repo.Update(role); err != nil {
		return nil, err
	}
	s.syncPolicy(role)
	return role, nil
}

// Delete 删除角色；仍有用户使用时拒绝
func (s *RoleService) Delete(id uint) error {
	role, err := s.Get(id)
	if err != nil {
		return err
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		blockers, total, err := s.refRepo.WithTx(tx).RoleReferences(id, maxBlockerExamples)
		if err != nil {
			return err
		}
		if err := newReferenceBlockedError("role", blockers, total); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Delete(id)
	})
	if err != nil {
		return err
	}
	if s.syncer != nil {
		if err := s.syncer.DeleteRole(role.Name); err != nil {
			logger.Warnw("role_policy_delete_failed", "role", role.Name, "error", err)
		}
	}
	return nil
}

// syncPolicy 数据库为准，策略同步失败只记录日志，启动时会重建
func (s *RoleService) syncPolicy(role *models.Role) {
	if s.syncer == nil || role == nil {
		return
	}
	if err := s.syncer.SyncRoleNotifications(role.Name, role.NotificationFlags()); err != nil {
		logger.Warnw("role_policy_sync_failed", "role", role.Name, "error", err)
	}
}

func normalizeNotificationEvents(events []string) ([]string, error) {
	seen := make(map[string]struct{}, len(events))
	result := make([]string, 0, len(events))
	for _, event := range events {
		event = strings.TrimSpace(event)
		if event == "" {
			continue
		}
		if !IsNotificationEventSupported(event) {
			return nil, newValidationError("notifications", "unknown event "+event)
		}
		if _, ok := seen[event]; ok {
			continue
		}
		seen[event] = struct{}{}
		result = append(result, event)
	}
	sort.Strings(result)
	return result, nil
}
