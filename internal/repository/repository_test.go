package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createTestOrder(t *testing.T, db *gorm.DB, number string) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber: number,
		Status:      constants.OrderStatusPending,
		CargoWeight: models.NewDecimal(decimal.NewFromFloat(12.5)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order %s failed: %v", number, err)
	}
	return order
}

func createTestStage(t *testing.T, db *gorm.DB, orderID uint, number int, from, to string) *models.TransportStage {
	t.Helper()
	stage := &models.TransportStage{
		OrderID:      orderID,
		StageNumber:  number,
		FromLocation: from,
		ToLocation:   to,
		Status:       constants.StageStatusPlanned,
	}
	if err := NewTransportStageRepository(db).Create(stage); err != nil {
		t.Fatalf("create stage failed: %v", err)
	}
	return stage
}

func TestOrderRepositoryGetByIDReturnsNilWhenMissing(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)

	order, err := repo.GetByID(404)
	if err != nil {
		t.Fatalf("get missing order failed: %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil order, got %+v", order)
	}
}

func TestOrderRepositoryDetailsAreOrdered(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	order := createTestOrder(t, db, "EU01022026-001")

	createTestStage(t, db, order.ID, 2, "Москва", "Минск")
	createTestStage(t, db, order.ID, 1, "Шанхай", "Москва")

	customerA := &models.Customer{CompanyName: "ООО Альфа"}
	customerB := &models.Customer{CompanyName: "ООО Бета"}
	if err := db.Create(customerA).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	if err := db.Create(customerB).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	if err := repo.ReplaceCustomers(order.ID, []models.OrderCustomer{
		{CustomerID: customerB.ID, Position: 1},
		{CustomerID: customerA.ID, Position: 2, Note: "предоплата"},
	}); err != nil {
		t.Fatalf("replace customers failed: %v", err)
	}

	got, err := repo.GetByID(order.ID)
	if err != nil || got == nil {
		t.Fatalf("get order failed: %v", err)
	}
	if len(got.TransportStages) != 2 || got.TransportStages[0].StageNumber != 1 {
		t.Fatalf("stages should be ordered by stage_number: %+v", got.TransportStages)
	}
	if len(got.Customers) != 2 || got.Customers[0].CustomerID != customerB.ID {
		t.Fatalf("customers should keep caller order: %+v", got.Customers)
	}
	if got.Customers[1].Customer == nil || got.Customers[1].Customer.CompanyName != "ООО Альфа" {
		t.Fatalf("customer relation should be preloaded")
	}
	if !got.CargoWeight.Equal(decimal.NewFromFloat(12.5)) {
		t.Fatalf("cargo weight mismatch: %s", got.CargoWeight)
	}
}

func TestOrderRepositoryExistsByNumber(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	order := createTestOrder(t, db, "RU05032026-002")

	exists, err := repo.ExistsByNumber("RU05032026-002", 0)
	if err != nil || !exists {
		t.Fatalf("expected number to exist, exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsByNumber("RU05032026-002", order.ID)
	if err != nil || exists {
		t.Fatalf("own number should be excluded, exists=%v err=%v", exists, err)
	}
}

func TestOrderRepositoryListNumbersWithPrefix(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	createTestOrder(t, db, "EU01022026-001")
	createTestOrder(t, db, "EU01022026-007")
	createTestOrder(t, db, "RU01022026-009")

	numbers, err := repo.ListNumbersWithPrefix("EU01022026-")
	if err != nil {
		t.Fatalf("list numbers failed: %v", err)
	}
	if len(numbers) != 2 {
		t.Fatalf("expected 2 numbers, got %v", numbers)
	}
}

func TestOrderRepositoryListSearch(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	createTestOrder(t, db, "EU01022026-001")
	createTestOrder(t, db, "RU01022026-002")

	orders, total, err := repo.List(OrderListFilter{Search: "RU01", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if total != 1 || len(orders) != 1 || orders[0].OrderNumber != "RU01022026-002" {
		t.Fatalf("unexpected search result total=%d orders=%+v", total, orders)
	}
}

func TestOrderRepositoryDeleteCascade(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	order := createTestOrder(t, db, "EU01022026-003")
	other := createTestOrder(t, db, "EU01022026-004")

	stage := createTestStage(t, db, order.ID, 1, "A", "B")
	createTestStage(t, db, other.ID, 1, "C", "D")
	if err := NewCustomsPointRepository(db).CreateBatch([]models.CustomsPoint{
		{TransportStageID: stage.ID, OrderID: order.ID, CustomsName: "Брест"},
	}); err != nil {
		t.Fatalf("create customs failed: %v", err)
	}
	if err := NewOrderStageRepository(db).CreateBatch([]models.OrderStage{
		{OrderID: order.ID, StageName: "Заказ отгружен", StageOrder: 1},
	}); err != nil {
		t.Fatalf("create legacy stage failed: %v", err)
	}
	orderID := order.ID
	if err := NewActivityLogRepository(db).Create(&models.ActivityLog{
		OrderID: &orderID, UserRole: "Логист", ActionType: constants.ActionCreateOrder, Description: "x",
	}); err != nil {
		t.Fatalf("create log failed: %v", err)
	}
	if err := NewDocumentRepository(db).Create(&models.OrderDocument{OrderID: order.ID, DocType: constants.DocumentTypeWaybill}); err != nil {
		t.Fatalf("create document failed: %v", err)
	}

	if err := repo.DeleteCascade(order.ID); err != nil {
		t.Fatalf("delete cascade failed: %v", err)
	}

	checks := map[string]interface{}{
		"orders":           &models.Order{},
		"transport_stages": &models.TransportStage{},
		"customs_points":   &models.CustomsPoint{},
		"order_stages":     &models.OrderStage{},
		"activity_logs":    &models.ActivityLog{},
		"order_documents":  &models.OrderDocument{},
	}
	for name, model := range checks {
		var count int64
		query := db.Model(model)
		if name == "orders" {
			query = query.Where("id = ?", order.ID)
		} else {
			query = query.Where("order_id = ?", order.ID)
		}
		if err := query.Count(&count).Error; err != nil {
			t.Fatalf("count %s failed: %v", name, err)
		}
		if count != 0 {
			t.Fatalf("%s should be empty after cascade, got %d", name, count)
		}
	}

	remaining, err := NewTransportStageRepository(db).ListByOrder(other.ID)
	if err != nil || len(remaining) != 1 {
		t.Fatalf("other order stages must survive, got %d err=%v", len(remaining), err)
	}
}

func TestTransportStageRepositoryIterateViews(t *testing.T) {
	db := setupRepositoryTestDB(t)
	order := createTestOrder(t, db, "EU01022026-010")

	driver := &models.Driver{LastName: "Иванов", FirstName: "Иван"}
	if err := db.Create(driver).Error; err != nil {
		t.Fatalf("create driver failed: %v", err)
	}
	vehicle := &models.Vehicle{VehicleBrand: "Volvo", LicensePlate: "А123ВС77", TrailerPlate: "АВ1234"}
	if err := db.Create(vehicle).Error; err != nil {
		t.Fatalf("create vehicle failed: %v", err)
	}
	second := createTestStage(t, db, order.ID, 2, "Москва", "Минск")
	createTestStage(t, db, order.ID, 1, "Шанхай", "Москва")
	if err := NewTransportStageRepository(db).UpdateFields(second.ID, map[string]interface{}{
		"driver_id":  driver.ID,
		"vehicle_id": vehicle.ID,
	}); err != nil {
		t.Fatalf("assign stage failed: %v", err)
	}

	var rows []TransportStageViewRow
	err := NewTransportStageRepository(db).IterateViews(order.ID, func(row TransportStageViewRow) bool {
		rows = append(rows, row)
		return true
	})
	if err != nil {
		t.Fatalf("iterate views failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].StageNumber != 1 || rows[0].DriverLastName != "" {
		t.Fatalf("first row should be unassigned stage 1: %+v", rows[0])
	}
	if rows[1].DriverLastName != "Иванов" || rows[1].LicensePlate != "А123ВС77" {
		t.Fatalf("second row should carry driver and vehicle: %+v", rows[1])
	}

	seen := 0
	err = NewTransportStageRepository(db).IterateViews(order.ID, func(TransportStageViewRow) bool {
		seen++
		return false
	})
	if err != nil || seen != 1 {
		t.Fatalf("early stop should read one row, seen=%d err=%v", seen, err)
	}
}

func TestTransportStageRepositoryMaxAndLast(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewTransportStageRepository(db)
	order := createTestOrder(t, db, "EU01022026-011")

	maxNumber, err := repo.MaxStageNumber(order.ID)
	if err != nil || maxNumber != 0 {
		t.Fatalf("empty order max want 0 got %d err=%v", maxNumber, err)
	}
	last, err := repo.LastByOrder(order.ID)
	if err != nil || last != nil {
		t.Fatalf("empty order last should be nil, got %+v err=%v", last, err)
	}

	createTestStage(t, db, order.ID, 1, "A", "B")
	createTestStage(t, db, order.ID, 3, "B", "C")
	maxNumber, err = repo.MaxStageNumber(order.ID)
	if err != nil || maxNumber != 3 {
		t.Fatalf("max want 3 got %d err=%v", maxNumber, err)
	}
	last, err = repo.LastByOrder(order.ID)
	if err != nil || last == nil || last.ToLocation != "C" {
		t.Fatalf("last stage mismatch: %+v err=%v", last, err)
	}
}

func TestOrderStageRepositoryUpdateCompletion(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderStageRepository(db)
	order := createTestOrder(t, db, "EU01022026-012")
	if err := repo.CreateBatch([]models.OrderStage{
		{OrderID: order.ID, StageName: "Заказ отгружен", StageOrder: 2},
		{OrderID: order.ID, StageName: "Заказ подтвержден поставщиком", StageOrder: 1},
	}); err != nil {
		t.Fatalf("create stages failed: %v", err)
	}
	stages, err := repo.ListByOrder(order.ID)
	if err != nil || len(stages) != 2 || stages[0].StageOrder != 1 {
		t.Fatalf("legacy stages should be ordered: %+v err=%v", stages, err)
	}

	now := time.Now()
	if err := repo.UpdateCompletion(stages[0].ID, true, "Логист", &now); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	got, _ := repo.GetByID(stages[0].ID)
	if got == nil || !got.IsCompleted || got.CompletedBy != "Логист" || got.CompletedAt == nil {
		t.Fatalf("completion not stored: %+v", got)
	}

	if err := repo.UpdateCompletion(stages[0].ID, false, "", nil); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, _ = repo.GetByID(stages[0].ID)
	if got == nil || got.IsCompleted || got.CompletedBy != "" || got.CompletedAt != nil {
		t.Fatalf("completion should be cleared: %+v", got)
	}
}

func TestActivityLogRepositoryListRecentCarriesOrderNumber(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewActivityLogRepository(db)
	order := createTestOrder(t, db, "EU01022026-020")
	orderID := order.ID

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := &models.ActivityLog{
			OrderID:     &orderID,
			UserRole:    "Логист",
			ActionType:  constants.ActionUpdateOrder,
			Description: fmt.Sprintf("entry-%d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(entry); err != nil {
			t.Fatalf("create log failed: %v", err)
		}
	}

	views, err := repo.ListRecent(2)
	if err != nil {
		t.Fatalf("list recent failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("limit not applied, got %d", len(views))
	}
	if views[0].Description != "entry-2" || views[0].OrderNumber != "EU01022026-020" {
		t.Fatalf("newest entry with order number expected first: %+v", views[0])
	}
}

func TestNotificationRepositoryClaimOutboxOnce(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewNotificationRepository(db)
	entry := &models.NotificationOutbox{
		EventType: constants.NotificationEventOrderCreated,
		Status:    constants.OutboxStatusPending,
	}
	if err := repo.CreateOutbox(entry); err != nil {
		t.Fatalf("create outbox failed: %v", err)
	}

	claimed, err := repo.ClaimOutbox(entry.ID)
	if err != nil || !claimed {
		t.Fatalf("first claim should succeed, claimed=%v err=%v", claimed, err)
	}
	claimed, err = repo.ClaimOutbox(entry.ID)
	if err != nil || claimed {
		t.Fatalf("second claim should fail, claimed=%v err=%v", claimed, err)
	}

	got, err := repo.GetOutbox(entry.ID)
	if err != nil || got == nil {
		t.Fatalf("get outbox failed: %v", err)
	}
	if got.Status != constants.OutboxStatusProcessing || got.Attempts != 1 {
		t.Fatalf("unexpected outbox state: %+v", got)
	}
}

func TestNotificationRepositoryListStaleOutbox(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewNotificationRepository(db)
	old := time.Now().Add(-10 * time.Minute)

	stale := &models.NotificationOutbox{EventType: "order_created", Status: constants.OutboxStatusPending, CreatedAt: old, UpdatedAt: old}
	exhausted := &models.NotificationOutbox{EventType: "order_created", Status: constants.OutboxStatusPending, Attempts: 5, CreatedAt: old, UpdatedAt: old}
	done := &models.NotificationOutbox{EventType: "order_created", Status: constants.OutboxStatusDispatched, CreatedAt: old, UpdatedAt: old}
	fresh := &models.NotificationOutbox{EventType: "order_created", Status: constants.OutboxStatusPending}
	for _, entry := range []*models.NotificationOutbox{stale, exhausted, done, fresh} {
		if err := db.Create(entry).Error; err != nil {
			t.Fatalf("create outbox failed: %v", err)
		}
	}

	entries, err := repo.ListStaleOutbox(time.Now().Add(-time.Minute), 5, 10)
	if err != nil {
		t.Fatalf("list stale failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != stale.ID {
		t.Fatalf("expected only stale entry, got %+v", entries)
	}
}

func TestReferenceRepositoryDriverReferences(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewReferenceRepository(db)

	driver := &models.Driver{LastName: "Петров"}
	if err := db.Create(driver).Error; err != nil {
		t.Fatalf("create driver failed: %v", err)
	}
	examples, total, err := repo.DriverReferences(driver.ID, 3)
	if err != nil || total != 0 || len(examples) != 0 {
		t.Fatalf("free driver should have no references, total=%d err=%v", total, err)
	}

	for i := 1; i <= 4; i++ {
		order := createTestOrder(t, db, fmt.Sprintf("EU01022026-%03d", 100+i))
		stage := createTestStage(t, db, order.ID, 1, "A", "B")
		if err := db.Model(stage).Update("driver_id", driver.ID).Error; err != nil {
			t.Fatalf("assign driver failed: %v", err)
		}
	}
	if err := db.Create(&models.Vehicle{LicensePlate: "В777ВВ77", DriverID: &driver.ID}).Error; err != nil {
		t.Fatalf("create vehicle failed: %v", err)
	}

	examples, total, err = repo.DriverReferences(driver.ID, 3)
	if err != nil {
		t.Fatalf("driver references failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("total want 5 got %d", total)
	}
	if len(examples) != 3 || examples[0] != "EU01022026-101" {
		t.Fatalf("examples should be capped at 3: %v", examples)
	}
}

func TestReferenceRepositoryCustomerAndRole(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewReferenceRepository(db)

	customer := &models.Customer{CompanyName: "ООО Гамма"}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	order := createTestOrder(t, db, "RU02022026-001")
	if err := NewOrderRepository(db).ReplaceCustomers(order.ID, []models.OrderCustomer{{CustomerID: customer.ID, Position: 1}}); err != nil {
		t.Fatalf("attach customer failed: %v", err)
	}
	examples, total, err := repo.CustomerReferences(customer.ID, 3)
	if err != nil || total != 1 || len(examples) != 1 || examples[0] != "RU02022026-001" {
		t.Fatalf("customer references mismatch: %v total=%d err=%v", examples, total, err)
	}

	role := &models.Role{Name: "auditor"}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("create role failed: %v", err)
	}
	if err := db.Create(&models.User{Username: "olga", PasswordHash: "x", RoleID: &role.ID, IsActive: true}).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	examples, total, err = repo.RoleReferences(role.ID, 3)
	if err != nil || total != 1 || examples[0] != "olga" {
		t.Fatalf("role references mismatch: %v total=%d err=%v", examples, total, err)
	}
}

func TestUserRepositoryListNotifiable(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db)

	role := &models.Role{Name: "logist"}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("create role failed: %v", err)
	}
	users := []models.User{
		{Username: "with-chat", PasswordHash: "x", RoleID: &role.ID, TelegramChatID: "1001", IsActive: true},
		{Username: "no-chat", PasswordHash: "x", RoleID: &role.ID, IsActive: true},
		{Username: "inactive", PasswordHash: "x", RoleID: &role.ID, TelegramChatID: "1002", IsActive: true},
	}
	for i := range users {
		if err := repo.Create(&users[i]); err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}
	if err := db.Model(&models.User{}).Where("username = ?", "inactive").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate user failed: %v", err)
	}

	notifiable, err := repo.ListNotifiable()
	if err != nil {
		t.Fatalf("list notifiable failed: %v", err)
	}
	if len(notifiable) != 1 || notifiable[0].Username != "with-chat" {
		t.Fatalf("unexpected notifiable users: %+v", notifiable)
	}
	if notifiable[0].Role == nil || notifiable[0].Role.Name != "logist" {
		t.Fatalf("role should be preloaded")
	}
}

func TestDashboardRepositoryGetOverview(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewDashboardRepository(db)

	createTestOrder(t, db, "EU01022026-201")
	transit := createTestOrder(t, db, "EU01022026-202")
	delivered := createTestOrder(t, db, "EU01022026-203")
	if err := db.Model(transit).Update("status", constants.OrderStatusInTransit).Error; err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if err := db.Model(delivered).Update("status", constants.OrderStatusDelivered).Error; err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if err := db.Create(&models.Driver{LastName: "Сидоров"}).Error; err != nil {
		t.Fatalf("create driver failed: %v", err)
	}
	if err := db.Create(&models.Client{Name: "Трансавто"}).Error; err != nil {
		t.Fatalf("create client failed: %v", err)
	}

	now := time.Now()
	row, err := repo.GetOverview(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if row.ActiveOrders != 2 || row.InTransit != 1 || row.OrdersToday != 3 {
		t.Fatalf("unexpected order stats: %+v", row)
	}
	if row.TotalDrivers != 1 || row.TotalVehicles != 0 || row.TotalClients != 1 {
		t.Fatalf("unexpected entity stats: %+v", row)
	}
}

func TestSettingRepositoryUpsert(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewSettingRepository(db)

	if _, err := repo.Upsert(constants.SettingKeyTelegramBot, models.JSON{"bot_token": "a"}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := repo.Upsert(constants.SettingKeyTelegramBot, models.JSON{"bot_token": "b"}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.Setting{}).Count(&count).Error; err != nil {
		t.Fatalf("count settings failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("setting should stay singleton, got %d rows", count)
	}
	setting, err := repo.GetByKey(constants.SettingKeyTelegramBot)
	if err != nil || setting == nil || setting.ValueJSON["bot_token"] != "b" {
		t.Fatalf("setting value mismatch: %+v err=%v", setting, err)
	}
}
