package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	casbinTableName = "casbin_rule"
	rolePrefix      = "role:"
	// 所有角色都挂在锚点下，用于枚举角色
	roleAnchor = "role:__anchor__"

	notificationObjectPrefix = "notify:"
	// ActionNotify 接收通知动作
	ActionNotify = "NOTIFY"
)

const notificationModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

var errUnavailable = errors.New("authz service unavailable")

// Service 角色的通知权限以 (role, notify:<event>, NOTIFY) 策略镜像到 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(notificationModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return errUnavailable
	}
	return nil
}

// AllowsNotification 角色名或事件非法时直接拒绝，不返回错误
func (s *Service) AllowsNotification(role, event string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	subject, err := RoleSubject(role)
	if err != nil {
		return false, nil
	}
	event = strings.TrimSpace(event)
	if event == "" {
		return false, nil
	}
	return s.enforcer.Enforce(subject, NotificationObject(event), ActionNotify)
}

// SyncRoleNotifications 让角色的通知策略与 flags 中为 true 的事件完全一致
func (s *Service) SyncRoleNotifications(role string, flags map[string]bool) error {
	subject, err := s.ensureRole(role)
	if err != nil {
		return err
	}
	current, err := s.subjectEvents(subject)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(current))
	for _, event := range current {
		have[event] = true
	}

	var revoke, grant [][]string
	for _, event := range current {
		if !flags[event] {
			revoke = append(revoke, []string{subject, NotificationObject(event), ActionNotify})
		}
	}
	for _, event := range enabledEvents(flags) {
		if !have[event] {
			grant = append(grant, []string{subject, NotificationObject(event), ActionNotify})
		}
	}
	if len(revoke) > 0 {
		if _, err := s.enforcer.RemovePolicies(revoke); err != nil {
			return fmt.Errorf("revoke notification policy failed: %w", err)
		}
	}
	if len(grant) > 0 {
		if _, err := s.enforcer.AddPolicies(grant); err != nil {
			return fmt.Errorf("grant notification policy failed: %w", err)
		}
	}
	return nil
}

// RoleEvents 角色当前可接收的事件，按字母序
func (s *Service) RoleEvents(role string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	subject, err := RoleSubject(role)
	if err != nil {
		return nil, err
	}
	return s.subjectEvents(subject)
}

func (s *Service) subjectEvents(subject string) ([]string, error) {
	rules, err := s.enforcer.GetFilteredPolicy(0, subject, "", ActionNotify)
	if err != nil {
		return nil, fmt.Errorf("get role notification policies failed: %w", err)
	}
	events := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) >= 2 && strings.HasPrefix(rule[1], notificationObjectPrefix) {
			events = append(events, strings.TrimPrefix(rule[1], notificationObjectPrefix))
		}
	}
	sort.Strings(events)
	return events, nil
}

// ListRoles 列出已登记的角色（带 role: 前缀）
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, roleAnchor)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 && strings.HasPrefix(rule[0], rolePrefix) {
			roles = append(roles, rule[0])
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// DeleteRole 删除角色及其全部策略
func (s *Service) DeleteRole(role string) error {
	if err := s.ready(); err != nil {
		return err
	}
	subject, err := RoleSubject(role)
	if err != nil {
		return err
	}
	return s.deleteSubject(subject)
}

func (s *Service) deleteSubject(subject string) error {
	if subject == roleAnchor {
		return errors.New("reserved role is not allowed")
	}
	if _, err := s.enforcer.RemoveFilteredPolicy(0, subject); err != nil {
		return fmt.Errorf("remove role policy failed: %w", err)
	}
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("remove role link failed: %w", err)
	}
	return nil
}

func (s *Service) ensureRole(role string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	subject, err := RoleSubject(role)
	if err != nil {
		return "", err
	}
	if subject == roleAnchor {
		return "", errors.New("reserved role is not allowed")
	}
	exists, err := s.enforcer.HasNamedGroupingPolicy("g", subject, roleAnchor)
	if err != nil {
		return "", fmt.Errorf("check role failed: %w", err)
	}
	if !exists {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, roleAnchor); err != nil {
			return "", fmt.Errorf("create role failed: %w", err)
		}
	}
	return subject, nil
}

func enabledEvents(flags map[string]bool) []string {
	events := make([]string, 0, len(flags))
	for event, enabled := range flags {
		if event = strings.TrimSpace(event); enabled && event != "" {
			events = append(events, event)
		}
	}
	sort.Strings(events)
	return events
}

// NotificationObject 通知事件对应的授权资源
func NotificationObject(event string) string {
	return notificationObjectPrefix + strings.TrimSpace(event)
}

// RoleSubject 角色名去首尾空白后原样加 role: 前缀；roles.name 唯一，主体因此一一对应
func RoleSubject(role string) (string, error) {
	name := strings.TrimSpace(role)
	if name == "" {
		return "", errors.New("role is required")
	}
	return rolePrefix + name, nil
}
