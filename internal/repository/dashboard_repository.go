package repository

import (
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询
type DashboardRepository interface {
	GetOverview(dayStart, dayEnd time.Time) (DashboardOverviewRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	ActiveOrders  int64 `gorm:"column:active_orders"`
	InTransit     int64 `gorm:"column:in_transit"`
	OrdersToday   int64 `gorm:"column:orders_today"`
	TotalDrivers  int64
	TotalVehicles int64
	TotalClients  int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 订单指标一次聚合查询，主数据逐表计数
func (r *GormDashboardRepository) GetOverview(dayStart, dayEnd time.Time) (DashboardOverviewRow, error) {
	var result DashboardOverviewRow
	err := r.db.Model(&models.Order{}).
		Select(
			"COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) AS active_orders, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_transit, "+
				"COALESCE(SUM(CASE WHEN created_at >= ? AND created_at <= ? THEN 1 ELSE 0 END), 0) AS orders_today",
			constants.OrderStatusDelivered, constants.OrderStatusInTransit, dayStart, dayEnd,
		).
		Scan(&result).Error
	if err != nil {
		return result, err
	}

	counts := []struct {
		model interface{}
		dest  *int64
	}{
		{&models.Driver{}, &result.TotalDrivers},
		{&models.Vehicle{}, &result.TotalVehicles},
		{&models.Client{}, &result.TotalClients},
	}
	for _, item := range counts {
		if err := r.db.Model(item.model).Count(item.dest).Error; err != nil {
			return result, err
		}
	}
	return result, nil
}
