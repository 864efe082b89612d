package authz

import "fmt"

// RoleSeed 角色及其启用的通知事件
type RoleSeed struct {
	Role  string
	Flags map[string]bool
}

// BootstrapRoles 启动时按数据库中的角色重建通知策略
// 不在列表中的旧角色会被移除
func (s *Service) BootstrapRoles(seeds []RoleSeed) error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	keep := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		subject, err := RoleSubject(seed.Role)
		if err != nil {
			return err
		}
		keep[subject] = struct{}{}
		if err := s.SyncRoleNotifications(seed.Role, seed.Flags); err != nil {
			return err
		}
	}

	existing, err := s.ListRoles()
	if err != nil {
		return err
	}
	for _, subject := range existing {
		if _, ok := keep[subject]; ok {
			continue
		}
		if err := s.deleteSubject(subject); err != nil {
			return err
		}
	}
	return nil
}
