package service

import (
	"context"
	"time"

	"github.com/freightdesk/internal/cache"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/repository"

	"github.com/jinzhu/now"
)

// DashboardService 仪表盘统计服务
type DashboardService struct {
	repo     repository.DashboardRepository
	cacheTTL time.Duration
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository, cacheTTL time.Duration) *DashboardService {
	return &DashboardService{repo: repo, cacheTTL: cacheTTL}
}

// GetStats 获取统计数据，redis 启用时优先读缓存
func (s *DashboardService) GetStats(ctx context.Context) (*cache.DashboardStats, error) {
	if s.cacheTTL > 0 {
		cached, hit, err := cache.GetDashboardStats(ctx)
		if err != nil {
			logger.Warnw("dashboard_stats_cache_get_failed", "error", err)
		}
		if hit {
			return cached, nil
		}
	}

	current := now.New(time.Now())
	row, err := s.repo.GetOverview(current.BeginningOfDay(), current.EndOfDay())
	if err != nil {
		return nil, err
	}
	stats := &cache.DashboardStats{
		ActiveOrders:  row.ActiveOrders,
		InTransit:     row.InTransit,
		OrdersToday:   row.OrdersToday,
		TotalDrivers:  row.TotalDrivers,
		TotalVehicles: row.TotalVehicles,
		TotalClients:  row.TotalClients,
	}
	if s.cacheTTL > 0 {
		if err := cache.SetDashboardStats(ctx, stats, s.cacheTTL); err != nil {
			logger.Warnw("dashboard_stats_cache_set_failed", "error", err)
		}
	}
	return stats, nil
}

// Invalidate 订单写入后清除缓存
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	if err := cache.InvalidateDashboardStats(ctx); err != nil {
		logger.Warnw("dashboard_stats_cache_invalidate_failed", "error", err)
	}
}
