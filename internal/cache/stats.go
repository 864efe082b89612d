package cache

import (
	"context"
	"time"
)

const dashboardStatsKey = "dashboard:stats"

// DashboardStats 仪表盘统计快照
type DashboardStats struct {
	ActiveOrders  int64 `json:"active_orders"`
	InTransit     int64 `json:"in_transit"`
	OrdersToday   int64 `json:"orders_today"`
	TotalDrivers  int64 `json:"total_drivers"`
	TotalVehicles int64 `json:"total_vehicles"`
	TotalClients  int64 `json:"total_clients"`
}

// GetDashboardStats 读取仪表盘统计缓存
func GetDashboardStats(ctx context.Context) (*DashboardStats, bool, error) {
	var stats DashboardStats
	hit, err := GetJSON(ctx, dashboardStatsKey, &stats)
	if err != nil || !hit {
		return nil, false, err
	}
	return &stats, true, nil
}

// SetDashboardStats 写入仪表盘统计缓存
func SetDashboardStats(ctx context.Context, stats *DashboardStats, ttl time.Duration) error {
	if stats == nil || ttl <= 0 {
		return nil
	}
	return SetJSON(ctx, dashboardStatsKey, stats, ttl)
}

// InvalidateDashboardStats 清除仪表盘统计缓存
func InvalidateDashboardStats(ctx context.Context) error {
	return Del(ctx, dashboardStatsKey)
}
