package provider

import (
	"time"

	"github.com/freightdesk/internal/authz"
	"github.com/freightdesk/internal/cache"
	"github.com/freightdesk/internal/config"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/queue"
	"github.com/freightdesk/internal/repository"
	"github.com/freightdesk/internal/service"
	"github.com/freightdesk/internal/telegram"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Telegram    *telegram.Sender

	// Repositories
	OrderRepo          repository.OrderRepository
	TransportStageRepo repository.TransportStageRepository
	OrderStageRepo     repository.OrderStageRepository
	CustomsPointRepo   repository.CustomsPointRepository
	CustomerRepo       repository.CustomerRepository
	DriverRepo         repository.DriverRepository
	VehicleRepo        repository.VehicleRepository
	ClientRepo         repository.ClientRepository
	UserRepo           repository.UserRepository
	RoleRepo           repository.RoleRepository
	ReferenceRepo      repository.ReferenceRepository
	SettingRepo        repository.SettingRepository
	ActivityLogRepo    repository.ActivityLogRepository
	NotificationRepo   repository.NotificationRepository
	DocumentRepo       repository.DocumentRepository
	DashboardRepo      repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	SettingService      *service.SettingService
	ActivityLogService  *service.ActivityLogService
	DashboardService    *service.DashboardService
	NotificationService *service.NotificationService
	OrderService        *service.OrderService
	StageService        *service.StageService
	FleetService        *service.FleetService
	CustomerService     *service.CustomerService
	DocumentService     *service.DocumentService
	UserService         *service.UserService
	RoleService         *service.RoleService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Telegram:    telegram.NewSender(cfg.Telegram.APIEndpoint, sendTimeout(cfg)),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.TransportStageRepo = repository.NewTransportStageRepository(db)
	c.OrderStageRepo = repository.NewOrderStageRepository(db)
	c.CustomsPointRepo = repository.NewCustomsPointRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.DriverRepo = repository.NewDriverRepository(db)
	c.VehicleRepo = repository.NewVehicleRepository(db)
	c.ClientRepo = repository.NewClientRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.RoleRepo = repository.NewRoleRepository(db)
	c.ReferenceRepo = repository.NewReferenceRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.ActivityLogRepo = repository.NewActivityLogRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.DocumentRepo = repository.NewDocumentRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.bootstrapRolePolicies(); err != nil {
		logger.Errorw("provider_bootstrap_role_policies_failed", "error", err)
		panic(err)
	}

	cfg := c.Config
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.ActivityLogService = service.NewActivityLogService(c.ActivityLogRepo, cfg.Order.DefaultActor)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo, time.Duration(cfg.Dashboard.CacheSeconds)*time.Second)
	c.NotificationService = service.NewNotificationService(
		c.NotificationRepo,
		c.UserRepo,
		c.OrderRepo,
		c.TransportStageRepo,
		c.SettingService,
		c.Telegram,
		c.AuthzService,
		c.QueueClient,
		service.NotificationOptions{
			SendTimeout: sendTimeout(cfg),
			StaleAfter:  time.Duration(cfg.Notification.OutboxStaleSeconds) * time.Second,
			MaxAttempts: cfg.Notification.OutboxMaxAttempts,
			BatchSize:   cfg.Notification.OutboxBatchSize,

			InlineDelivery: cfg.Notification.InlineDelivery,
		},
	)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.TransportStageRepo,
		c.OrderStageRepo,
		c.CustomsPointRepo,
		c.CustomerRepo,
		c.ClientRepo,
		c.ActivityLogService,
		c.NotificationService,
		c.DashboardService,
		service.OrderOptions{
			CustomsFanout:  cfg.Order.CustomsFanout,
			DefaultStatus:  cfg.Order.DefaultStatus,
			LegacyTemplate: cfg.Order.LegacyTemplate,
		},
	)
	c.StageService = service.NewStageService(
		c.OrderRepo,
		c.TransportStageRepo,
		c.OrderStageRepo,
		c.CustomsPointRepo,
		c.ActivityLogService,
		c.NotificationService,
		c.DashboardService,
	)
	c.FleetService = service.NewFleetService(c.DriverRepo, c.VehicleRepo, c.ClientRepo, c.ReferenceRepo, c.DashboardService)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, c.ReferenceRepo)
	c.DocumentService = service.NewDocumentService(c.DocumentRepo, c.OrderRepo, c.ActivityLogService)
	c.UserService = service.NewUserService(c.UserRepo, c.RoleRepo)
	c.RoleService = service.NewRoleService(c.RoleRepo, c.ReferenceRepo, c.AuthzService)
}

// bootstrapRolePolicies 按角色表重建 casbin 通知策略
func (c *Container) bootstrapRolePolicies() error {
	roles, err := c.RoleRepo.List()
	if err != nil {
		return err
	}
	seeds := make([]authz.RoleSeed, 0, len(roles))
	for _, role := range roles {
		seeds = append(seeds, authz.RoleSeed{Role: role.Name, Flags: role.NotificationFlags()})
	}
	return c.AuthzService.BootstrapRoles(seeds)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func sendTimeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Notification.SendTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Notification.SendTimeoutSeconds) * time.Second
}
