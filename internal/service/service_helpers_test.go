package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sentMessage struct {
	Token  string
	ChatID string
	Text   string
}

// fakeChannel 记录发送内容，failChats 中的 chat 返回错误，hangChats 中的 chat 阻塞到 ctx 结束
type fakeChannel struct {
	mu        sync.Mutex
	sent      []sentMessage
	failChats map[string]bool
	hangChats map[string]bool
}

func (c *fakeChannel) Send(ctx context.Context, botToken, chatID, text string) error {
	c.mu.Lock()
	hang := c.hangChats[chatID]
	c.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failChats[chatID] {
		return errors.New("chat not found")
	}
	c.sent = append(c.sent, sentMessage{Token: botToken, ChatID: chatID, Text: text})
	return nil
}

func (c *fakeChannel) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

type serviceTestEnv struct {
	db           *gorm.DB
	channel      *fakeChannel
	settings     *SettingService
	activity     *ActivityLogService
	notification *NotificationService
	dashboard    *DashboardService
	orders       *OrderService
	stages       *StageService
	fleet        *FleetService
	customers    *CustomerService
	documents    *DocumentService
	users        *UserService
	roles        *RoleService
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	models.DB = db
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func newServiceTestEnv(t *testing.T, orderOptions OrderOptions) *serviceTestEnv {
	t.Helper()
	db := setupServiceTestDB(t)
	if err := models.InitDefaultRoles(); err != nil {
		t.Fatalf("init default roles failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	stageRepo := repository.NewTransportStageRepository(db)
	legacyRepo := repository.NewOrderStageRepository(db)
	customsRepo := repository.NewCustomsPointRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	driverRepo := repository.NewDriverRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	clientRepo := repository.NewClientRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	refRepo := repository.NewReferenceRepository(db)

	env := &serviceTestEnv{db: db, channel: &fakeChannel{failChats: map[string]bool{}, hangChats: map[string]bool{}}}
	env.settings = NewSettingService(repository.NewSettingRepository(db))
	env.activity = NewActivityLogService(repository.NewActivityLogRepository(db), "")
	env.dashboard = NewDashboardService(repository.NewDashboardRepository(db), 0)
	env.notification = NewNotificationService(
		repository.NewNotificationRepository(db),
		userRepo,
		orderRepo,
		stageRepo,
		env.settings,
		env.channel,
		nil,
		nil,
		NotificationOptions{InlineDelivery: true},
	)
	env.orders = NewOrderService(orderRepo, stageRepo, legacyRepo, customsRepo, customerRepo, clientRepo,
		env.activity, env.notification, env.dashboard, orderOptions)
	env.stages = NewStageService(orderRepo, stageRepo, legacyRepo, customsRepo, env.activity, env.notification, env.dashboard)
	env.fleet = NewFleetService(driverRepo, vehicleRepo, clientRepo, refRepo, env.dashboard)
	env.customers = NewCustomerService(customerRepo, refRepo)
	env.documents = NewDocumentService(repository.NewDocumentRepository(db), orderRepo, env.activity)
	env.users = NewUserService(userRepo, roleRepo)
	env.roles = NewRoleService(roleRepo, refRepo, nil)
	return env
}

func (e *serviceTestEnv) configureBot(t *testing.T) {
	t.Helper()
	if _, err := e.settings.SaveTelegramBotSetting(TelegramBotSettingInput{BotToken: "123456:TEST-TOKEN", BotUsername: "@freight_bot"}); err != nil {
		t.Fatalf("save bot setting failed: %v", err)
	}
}

func (e *serviceTestEnv) createRecipient(t *testing.T, username, roleName, chatID string) *models.User {
	t.Helper()
	user, err := e.users.Create(UserInput{
		Username:       username,
		FullName:       username,
		Password:       "secret123",
		RoleName:       roleName,
		TelegramChatID: chatID,
	})
	if err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func (e *serviceTestEnv) sentRecords(t *testing.T, eventType string) []models.TelegramNotification {
	t.Helper()
	var records []models.TelegramNotification
	if err := e.db.Where("event_type = ?", eventType).Order("id ASC").Find(&records).Error; err != nil {
		t.Fatalf("load sent records failed: %v", err)
	}
	return records
}

func (e *serviceTestEnv) activityFor(t *testing.T, orderID uint) []models.ActivityLog {
	t.Helper()
	logs, err := e.activity.ListForOrder(orderID)
	if err != nil {
		t.Fatalf("list activity failed: %v", err)
	}
	return logs
}

func twoStageOrderInput(number string) CreateMultiStageOrderInput {
	return CreateMultiStageOrderInput{
		CreateOrderInput: CreateOrderInput{OrderNumber: number, Actor: "Петров"},
		Stages: []TransportStageInput{
			{FromLocation: "A", ToLocation: "B"},
			{FromLocation: "B", ToLocation: "C"},
		},
		CustomsPoints: []CustomsPointInput{{CustomsName: "Border X"}},
	}
}

func strPtr(value string) *string {
	return &value
}
