package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freightdesk/internal/config"
	"github.com/freightdesk/internal/http/response"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type portalEnvelope struct {
	StatusCode int                 `json:"status_code"`
	Msg        string              `json:"msg"`
	Data       json.RawMessage     `json:"data"`
	Pagination response.Pagination `json:"pagination"`
}

// fakeTelegram 记录 sendMessage 调用
type fakeTelegram struct {
	mu    sync.Mutex
	chats []string
	texts []string
}

func (f *fakeTelegram) handler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Freight","username":"freight_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.chats = append(f.chats, r.PostForm.Get("chat_id"))
		f.texts = append(f.texts, r.PostForm.Get("text"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTelegram) sent() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.chats...), append([]string(nil), f.texts...)
}

type portalTestEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	telegram *fakeTelegram
}

func setupPortalTest(t *testing.T) *portalTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:portal_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	if err := models.InitDefaultRoles(); err != nil {
		t.Fatalf("init default roles failed: %v", err)
	}

	fake := &fakeTelegram{}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(func() {
		server.Close()
		_ = sqlDB.Close()
	})

	cfg := &config.Config{}
	cfg.Order.CustomsFanout = true
	cfg.Order.LegacyTemplate = true
	cfg.Notification.InlineDelivery = true
	cfg.Notification.SendTimeoutSeconds = 2
	cfg.Telegram.APIEndpoint = server.URL + "/bot%s/%s"
	container := provider.NewContainer(cfg)

	h := New(container)
	r := gin.New()
	r.GET("/api/v1/portal", h.PortalGet)
	r.POST("/api/v1/portal", h.PortalPost)
	r.PUT("/api/v1/portal", h.PortalPut)
	r.DELETE("/api/v1/portal", h.PortalDelete)
	return &portalTestEnv{db: db, router: r, telegram: fake}
}

func (e *portalTestEnv) do(t *testing.T, method, target string, body interface{}, headers ...string) portalEnvelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope portalEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope
}

func (e *portalTestEnv) post(t *testing.T, body interface{}, headers ...string) portalEnvelope {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/portal", body, headers...)
}

func (e *portalTestEnv) get(t *testing.T, query string) portalEnvelope {
	t.Helper()
	return e.do(t, http.MethodGet, "/api/v1/portal?"+query, nil)
}

func decodeData(t *testing.T, envelope portalEnvelope, dest interface{}) {
	t.Helper()
	require.Equal(t, 0, envelope.StatusCode, envelope.Msg)
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func (e *portalTestEnv) createTwoStageOrder(t *testing.T, number string, driverID uint) uint {
	t.Helper()
	firstStage := gin.H{"from_location": "Москва", "to_location": "Брест", "planned_departure": "01.03.2025"}
	if driverID > 0 {
		firstStage["driver_id"] = driverID
	}
	envelope := e.post(t, gin.H{
		"action":    "create_multi_stage_order",
		"user_role": "Логист",
		"data": gin.H{
			"order": gin.H{"order_number": number, "order_date": "2025-03-01", "cargo_weight": "12.5"},
			"stages": []gin.H{
				firstStage,
				{"from_location": "Брест", "to_location": "Варшава"},
			},
			"customs_points": []gin.H{{"customs_name": "Брест-Тересполь", "country": "BY"}},
		},
	})
	var created struct {
		OrderID uint `json:"order_id"`
	}
	decodeData(t, envelope, &created)
	require.NotZero(t, created.OrderID)
	return created.OrderID
}

func TestPortalCreateMultiStageOrderAndReadStages(t *testing.T) {
	env := setupPortalTest(t)
	orderID := env.createTwoStageOrder(t, "2503-01", 0)

	var stages []struct {
		ID            uint   `json:"id"`
		StageNumber   int    `json:"stage_number"`
		Label         string `json:"label"`
		Status        string `json:"status"`
		CustomsPoints []struct {
			CustomsName string `json:"customs_name"`
		} `json:"customs_points"`
	}
	decodeData(t, env.get(t, fmt.Sprintf("resource=order_stages&order_id=%d", orderID)), &stages)
	require.Len(t, stages, 2)
	assert.Equal(t, 1, stages[0].StageNumber)
	assert.Equal(t, "planned", stages[0].Status)
	for _, stage := range stages {
		require.Len(t, stage.CustomsPoints, 1)
		assert.Equal(t, "Брест-Тересполь", stage.CustomsPoints[0].CustomsName)
	}

	var legacy []struct {
		StageName string `json:"stage_name"`
	}
	decodeData(t, env.get(t, fmt.Sprintf("resource=legacy_stages&order_id=%d", orderID)), &legacy)
	assert.NotEmpty(t, legacy)

	envelope := env.get(t, "resource=orders&page=1&page_size=10")
	var orders []struct {
		OrderNumber string `json:"order_number"`
		Route       string `json:"route"`
		StageCount  int    `json:"stage_count"`
	}
	decodeData(t, envelope, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, "2503-01", orders[0].OrderNumber)
	assert.Equal(t, 2, orders[0].StageCount)
	assert.EqualValues(t, 1, envelope.Pagination.Total)

	var logs []struct {
		UserRole string `json:"user_role"`
	}
	decodeData(t, env.get(t, fmt.Sprintf("resource=activity_log&order_id=%d", orderID)), &logs)
	require.NotEmpty(t, logs)
	assert.Equal(t, "Логист", logs[0].UserRole)
}

func TestPortalDuplicateOrderNumberConflict(t *testing.T) {
	env := setupPortalTest(t)
	env.createTwoStageOrder(t, "2503-02", 0)

	envelope := env.post(t, gin.H{"action": "create_order", "data": gin.H{"order_number": "2503-02"}})
	assert.Equal(t, response.CodeConflict, envelope.StatusCode)
	assert.Equal(t, "Заказ с таким номером уже существует", envelope.Msg)
}

func TestPortalCustomsWithoutStagesIsValidationError(t *testing.T) {
	env := setupPortalTest(t)
	envelope := env.post(t, gin.H{
		"action": "create_multi_stage_order",
		"data": gin.H{
			"order":          gin.H{"order_number": "2503-03"},
			"customs_points": []gin.H{{"customs_name": "Брест"}},
		},
	})
	require.Equal(t, response.CodeBadRequest, envelope.StatusCode)
	var detail struct {
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &detail))
	assert.Equal(t, "customs_points", detail.Field)
}

func TestPortalStageLifecycle(t *testing.T) {
	env := setupPortalTest(t)
	orderID := env.createTwoStageOrder(t, "2503-04", 0)

	var stages []struct {
		ID uint `json:"id"`
	}
	decodeData(t, env.get(t, fmt.Sprintf("resource=order_stages&order_id=%d", orderID)), &stages)
	require.Len(t, stages, 2)
	stageID := stages[0].ID

	var started struct {
		Status string `json:"status"`
	}
	decodeData(t, env.post(t, gin.H{"action": "start_stage", "stage_id": stageID}), &started)
	assert.Equal(t, "in_progress", started.Status)

	var completed struct {
		Status      string `json:"status"`
		CompletedBy string `json:"completed_by"`
	}
	decodeData(t, env.post(t, gin.H{"action": "complete_stage", "stage_id": fmt.Sprint(stageID)}, "X-User-Role", "Диспетчер"), &completed)
	assert.Equal(t, "completed", completed.Status)
	assert.Equal(t, "Диспетчер", completed.CompletedBy)

	envelope := env.post(t, gin.H{"action": "start_stage", "stage_id": stageID})
	assert.Equal(t, response.CodeConflict, envelope.StatusCode)

	envelope = env.post(t, gin.H{"action": "start_stage", "stage_id": 9999})
	assert.Equal(t, response.CodeNotFound, envelope.StatusCode)
}

func TestPortalDeleteReferencedDriverReturnsBlockers(t *testing.T) {
	env := setupPortalTest(t)

	var driver struct {
		ID uint `json:"id"`
	}
	decodeData(t, env.post(t, gin.H{"action": "create_driver", "data": gin.H{"last_name": "Иванов", "first_name": "Пётр"}}), &driver)
	require.NotZero(t, driver.ID)
	env.createTwoStageOrder(t, "2503-05", driver.ID)

	envelope := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/portal?resource=driver&id=%d", driver.ID), nil)
	require.Equal(t, response.CodeConflict, envelope.StatusCode)
	var blocked struct {
		Entity   string   `json:"entity"`
		Blockers []string `json:"blockers"`
		Total    int64    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &blocked))
	assert.Equal(t, "driver", blocked.Entity)
	assert.Contains(t, blocked.Blockers, "2503-05")
	assert.EqualValues(t, 1, blocked.Total)

	var drivers []struct {
		ID uint `json:"id"`
	}
	decodeData(t, env.get(t, "resource=drivers"), &drivers)
	assert.Len(t, drivers, 1)
}

func TestPortalDeleteAcceptsBody(t *testing.T) {
	env := setupPortalTest(t)
	var client struct {
		ID uint `json:"id"`
	}
	decodeData(t, env.post(t, gin.H{"action": "create_client", "data": gin.H{"name": "ТрансЛайн"}}), &client)

	var deleted struct {
		Deleted bool `json:"deleted"`
		ID      uint `json:"id"`
	}
	decodeData(t, env.do(t, http.MethodDelete, "/api/v1/portal", gin.H{"resource": "client", "id": client.ID}), &deleted)
	assert.True(t, deleted.Deleted)
	assert.Equal(t, client.ID, deleted.ID)

	envelope := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/portal?resource=client&id=%d", client.ID), nil)
	assert.Equal(t, response.CodeNotFound, envelope.StatusCode)
}

func TestPortalUpdateViaPut(t *testing.T) {
	env := setupPortalTest(t)
	var vehicle struct {
		ID uint `json:"id"`
	}
	decodeData(t, env.post(t, gin.H{"action": "create_vehicle", "data": gin.H{"vehicle_brand": "Volvo", "license_plate": "A001AA77"}}), &vehicle)

	var updated struct {
		LicensePlate string `json:"license_plate"`
	}
	decodeData(t, env.do(t, http.MethodPut, "/api/v1/portal", gin.H{
		"resource": "vehicle",
		"id":       vehicle.ID,
		"data":     gin.H{"vehicle_brand": "Volvo", "license_plate": "B002BB77"},
	}), &updated)
	assert.Equal(t, "B002BB77", updated.LicensePlate)

	envelope := env.do(t, http.MethodPut, "/api/v1/portal", gin.H{"resource": "vehicle", "data": gin.H{}})
	assert.Equal(t, response.CodeBadRequest, envelope.StatusCode)
}

func TestPortalUpdateOrderClearsNullFields(t *testing.T) {
	env := setupPortalTest(t)
	orderID := env.createTwoStageOrder(t, "ORD-NULL", 0)
	var client struct {
		ID uint `json:"id"`
	}
	decodeData(t, env.post(t, gin.H{"action": "create_client", "data": gin.H{"name": "ТрансЛайн"}}), &client)

	type orderState struct {
		ClientID  *uint      `json:"client_id"`
		OrderDate *time.Time `json:"order_date"`
		Notes     string     `json:"notes"`
	}
	var state orderState
	decodeData(t, env.post(t, gin.H{
		"action":   "update_order",
		"order_id": orderID,
		"data":     gin.H{"client_id": client.ID},
	}), &state)
	require.NotNil(t, state.ClientID)
	assert.Equal(t, client.ID, *state.ClientID)
	require.NotNil(t, state.OrderDate)

	// 未传的字段保持不变
	state = orderState{}
	decodeData(t, env.post(t, gin.H{
		"action":   "update_order",
		"order_id": orderID,
		"data":     gin.H{"notes": "без изменений"},
	}), &state)
	require.NotNil(t, state.ClientID)
	require.NotNil(t, state.OrderDate)

	state = orderState{}
	decodeData(t, env.post(t, gin.H{
		"action":   "update_order",
		"order_id": orderID,
		"data":     gin.H{"client_id": nil, "order_date": nil},
	}), &state)
	assert.Nil(t, state.ClientID)
	assert.Nil(t, state.OrderDate)

	var stored models.Order
	require.NoError(t, env.db.First(&stored, orderID).Error)
	assert.Nil(t, stored.ClientID)
	assert.Nil(t, stored.OrderDate)
}

func TestPortalUnknownResourceAndAction(t *testing.T) {
	env := setupPortalTest(t)

	envelope := env.get(t, "resource=invoices")
	assert.Equal(t, response.CodeBadRequest, envelope.StatusCode)
	assert.Equal(t, "Неизвестный ресурс", envelope.Msg)

	envelope = env.post(t, gin.H{"action": "launch_rocket"}, "X-Locale", "en-US")
	assert.Equal(t, response.CodeBadRequest, envelope.StatusCode)
	assert.Equal(t, "Unknown action", envelope.Msg)

	envelope = env.get(t, "resource=order_stages&order_id=abc")
	assert.Equal(t, response.CodeBadRequest, envelope.StatusCode)
}

func TestPortalWeakPasswordUsesLocalizedArgs(t *testing.T) {
	env := setupPortalTest(t)
	envelope := env.post(t, gin.H{
		"action": "create_user",
		"data":   gin.H{"username": "petrov", "full_name": "Петров", "password": "123", "role_name": "logist"},
	}, "X-Locale", "en-US")
	assert.Equal(t, response.CodeBadRequest, envelope.StatusCode)
	assert.Equal(t, "Password must be at least 6 characters", envelope.Msg)
}

func TestPortalOrderCreatedNotifiesSubscribedUsers(t *testing.T) {
	env := setupPortalTest(t)

	var setting struct {
		BotToken string `json:"bot_token"`
	}
	decodeData(t, env.post(t, gin.H{
		"action": "save_telegram_settings",
		"data":   gin.H{"bot_token": "123456:SECRET-TOKEN", "bot_username": "freight_bot"},
	}), &setting)

	decodeData(t, env.post(t, gin.H{
		"action": "create_user",
		"data":   gin.H{"username": "admin1", "full_name": "Админ", "password": "secret123", "role": "admin", "telegram_chat_id": "42"},
	}), &struct{}{})
	decodeData(t, env.post(t, gin.H{
		"action": "create_user",
		"data":   gin.H{"username": "driver1", "full_name": "Водитель", "password": "secret123", "role": "driver", "telegram_chat_id": "77"},
	}), &struct{}{})

	env.createTwoStageOrder(t, "2503-06", 0)

	chats, texts := env.telegram.sent()
	require.Equal(t, []string{"42"}, chats)
	assert.Contains(t, texts[0], "2503-06")

	envelope := env.get(t, "resource=notifications&event_type=order_created")
	var records []struct {
		EventType string `json:"event_type"`
	}
	decodeData(t, envelope, &records)
	assert.NotEmpty(t, records)

	var view struct {
		BotToken string `json:"bot_token"`
	}
	decodeData(t, env.get(t, "resource=telegram_settings"), &view)
	assert.NotContains(t, view.BotToken, "SECRET")
}

func TestPortalSendNotificationRejectsUnknownEvent(t *testing.T) {
	env := setupPortalTest(t)
	envelope := env.post(t, gin.H{"action": "send_notification", "event_type": "order_lost", "order_data": gin.H{"order_number": "X"}})
	assert.Equal(t, response.CodeBadRequest, envelope.StatusCode)
}
