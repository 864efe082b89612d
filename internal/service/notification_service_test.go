package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

type staticPolicy map[string]map[string]bool

func (p staticPolicy) AllowsNotification(role, event string) (bool, error) {
	return p[role][event], nil
}

func TestDispatchWithoutBotIsNotConfigured(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.createRecipient(t, "admin1", constants.RoleAdmin, "5001")

	result, err := env.notification.Dispatch(context.Background(), constants.NotificationEventOrderCreated, NotificationPayload{OrderNumber: "X"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Configured || result.Sent != 0 || result.Message != notConfiguredMessage {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(env.channel.messages()) != 0 {
		t.Fatalf("expected nothing sent")
	}
}

func TestDispatchInactiveBotIsNotConfigured(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	inactive := false
	if _, err := env.settings.SaveTelegramBotSetting(TelegramBotSettingInput{BotToken: "123456:TOKEN", IsActive: &inactive}); err != nil {
		t.Fatalf("save setting failed: %v", err)
	}
	result, err := env.notification.Dispatch(context.Background(), constants.NotificationEventOrderCreated, NotificationPayload{})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Configured {
		t.Fatalf("inactive bot must not be configured: %+v", result)
	}
}

func TestDispatchWithoutRecipients(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	env.createRecipient(t, "driver1", constants.RoleDriver, "5101")
	env.createRecipient(t, "nochat", constants.RoleAdmin, "")

	result, err := env.notification.Dispatch(context.Background(), constants.NotificationEventOrderDelivered, NotificationPayload{})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !result.Configured || result.TotalRecipients != 0 || result.Message != noRecipientsMessage {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestDispatchRejectsUnknownEvent(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	if _, err := env.notification.Dispatch(context.Background(), "order_lost", NotificationPayload{}); !errors.Is(err, ErrNotificationEventInvalid) {
		t.Fatalf("expected ErrNotificationEventInvalid, got %v", err)
	}
}

func TestDispatchRecordsEveryRecipient(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	env.createRecipient(t, "admin1", constants.RoleAdmin, "5201")
	env.createRecipient(t, "logist1", constants.RoleLogist, "5202")
	env.channel.failChats["5202"] = true

	payload := NotificationPayload{OrderNumber: "ORD-<1>", Invoice: "INV & CO"}
	result, err := env.notification.Dispatch(context.Background(), constants.NotificationEventOrderDelivered, payload)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Sent != 1 || result.TotalRecipients != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	records := env.sentRecords(t, constants.NotificationEventOrderDelivered)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].IsSuccess || records[1].ErrorMessage == "" {
		t.Fatalf("failed send should be recorded: %+v", records[1])
	}
	messages := env.channel.messages()
	if messages[0].Token != "123456:TEST-TOKEN" {
		t.Fatalf("unexpected token: %s", messages[0].Token)
	}
	if !strings.Contains(messages[0].Text, "ORD-&lt;1&gt;") || !strings.Contains(messages[0].Text, "INV &amp; CO") {
		t.Fatalf("values should be escaped: %s", messages[0].Text)
	}
}

func TestDispatchUsesRecipientPolicy(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	env.createRecipient(t, "driver1", constants.RoleDriver, "5301")
	env.notification.policy = staticPolicy{constants.RoleDriver: {constants.NotificationEventOrderLoaded: true}}

	result, err := env.notification.Dispatch(context.Background(), constants.NotificationEventOrderLoaded, NotificationPayload{})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("policy should allow driver: %+v", result)
	}
}

func TestProcessOutboxClaimsOnce(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	env.createRecipient(t, "admin1", constants.RoleAdmin, "5401")

	var outboxID uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		outboxID, err = env.notification.Enqueue(tx, constants.NotificationEventOrderCreated, nil, NotificationPayload{OrderNumber: "ORD-500"})
		return err
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := env.notification.ProcessOutbox(context.Background(), outboxID); err != nil {
		t.Fatalf("process outbox failed: %v", err)
	}
	if err := env.notification.ProcessOutbox(context.Background(), outboxID); err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if got := len(env.channel.messages()); got != 1 {
		t.Fatalf("expected a single delivery, got %d", got)
	}
	var entry models.NotificationOutbox
	if err := env.db.First(&entry, outboxID).Error; err != nil {
		t.Fatalf("load outbox failed: %v", err)
	}
	if entry.Status != constants.OutboxStatusDispatched || entry.Attempts != 1 || entry.DispatchedAt == nil {
		t.Fatalf("unexpected outbox entry: %+v", entry)
	}
}

func TestProcessOutboxSkipsWhenNotConfigured(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	order, err := env.orders.CreateOrder(CreateOrderInput{OrderNumber: "ORD-510"})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	var entry models.NotificationOutbox
	if err := env.db.Where("order_id = ?", order.ID).First(&entry).Error; err != nil {
		t.Fatalf("load outbox failed: %v", err)
	}
	if entry.Status != constants.OutboxStatusSkipped || entry.LastError != notConfiguredMessage {
		t.Fatalf("unexpected outbox entry: %+v", entry)
	}
}

func TestSweepOutboxRetriesStalePending(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	env.createRecipient(t, "admin1", constants.RoleAdmin, "5501")

	stale := time.Now().Add(-time.Hour)
	entries := []models.NotificationOutbox{
		{EventType: constants.NotificationEventOrderCreated, Payload: models.JSON{"order_number": "ORD-601"}, Status: constants.OutboxStatusPending},
		{EventType: constants.NotificationEventOrderCreated, Payload: models.JSON{"order_number": "ORD-602"}, Status: constants.OutboxStatusPending, Attempts: 5},
		{EventType: constants.NotificationEventOrderCreated, Payload: models.JSON{"order_number": "ORD-603"}, Status: constants.OutboxStatusDispatched},
	}
	for i := range entries {
		if err := env.db.Create(&entries[i]).Error; err != nil {
			t.Fatalf("create outbox failed: %v", err)
		}
		if err := env.db.Model(&models.NotificationOutbox{}).Where("id = ?", entries[i].ID).UpdateColumn("updated_at", stale).Error; err != nil {
			t.Fatalf("age outbox failed: %v", err)
		}
	}
	fresh := models.NotificationOutbox{EventType: constants.NotificationEventOrderCreated, Payload: models.JSON{"order_number": "ORD-604"}, Status: constants.OutboxStatusPending}
	if err := env.db.Create(&fresh).Error; err != nil {
		t.Fatalf("create fresh outbox failed: %v", err)
	}

	processed, err := env.notification.SweepOutbox(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected one swept entry, got %d", processed)
	}
	messages := env.channel.messages()
	if len(messages) != 1 || !strings.Contains(messages[0].Text, "ORD-601") {
		t.Fatalf("unexpected deliveries: %+v", messages)
	}
}

func TestProcessOutboxMarksInvalidEventFailed(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	entry := models.NotificationOutbox{EventType: "order_lost", Payload: models.JSON{}, Status: constants.OutboxStatusPending}
	if err := env.db.Create(&entry).Error; err != nil {
		t.Fatalf("create outbox failed: %v", err)
	}
	if err := env.notification.ProcessOutbox(context.Background(), entry.ID); !errors.Is(err, ErrNotificationEventInvalid) {
		t.Fatalf("expected ErrNotificationEventInvalid, got %v", err)
	}
	var stored models.NotificationOutbox
	if err := env.db.First(&stored, entry.ID).Error; err != nil {
		t.Fatalf("load outbox failed: %v", err)
	}
	if stored.Status != constants.OutboxStatusFailed {
		t.Fatalf("expected failed status, got %s", stored.Status)
	}
}

func TestPublishSlowRecipientsDoNotStarveLaterOnes(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	for i, chatID := range []string{"5701", "5702", "5703", "5704"} {
		env.createRecipient(t, fmt.Sprintf("admin%d", i+1), constants.RoleAdmin, chatID)
	}
	env.channel.hangChats["5701"] = true
	env.channel.hangChats["5702"] = true
	env.channel.hangChats["5703"] = true
	env.notification.options.SendTimeout = 100 * time.Millisecond
	env.notification.options.InlineDelivery = false

	var outboxID uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		outboxID, err = env.notification.Enqueue(tx, constants.NotificationEventOrderCreated, nil, NotificationPayload{OrderNumber: "ORD-700"})
		return err
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	env.notification.Publish(outboxID)

	var entry models.NotificationOutbox
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := env.db.First(&entry, outboxID).Error; err != nil {
			t.Fatalf("load outbox failed: %v", err)
		}
		if entry.Status != constants.OutboxStatusPending && entry.Status != constants.OutboxStatusProcessing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("outbox not finished, status=%s", entry.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if entry.Status != constants.OutboxStatusDispatched || entry.Sent != 1 || entry.TotalRecipients != 4 {
		t.Fatalf("unexpected outbox entry: %+v", entry)
	}
	records := env.sentRecords(t, constants.NotificationEventOrderCreated)
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	last := records[3]
	if last.ChatID != "5704" || !last.IsSuccess {
		t.Fatalf("last recipient must be delivered: %+v", last)
	}
}

// outboxReadFailure 抢占成功但读取失败
type outboxReadFailure struct {
	*repository.GormNotificationRepository
}

func (r outboxReadFailure) GetOutbox(uint) (*models.NotificationOutbox, error) {
	return nil, errors.New("connection reset")
}

func TestProcessOutboxReleasesClaimWhenReadFails(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	entry := models.NotificationOutbox{EventType: constants.NotificationEventOrderCreated, Payload: models.JSON{}, Status: constants.OutboxStatusPending}
	if err := env.db.Create(&entry).Error; err != nil {
		t.Fatalf("create outbox failed: %v", err)
	}
	env.notification.repo = outboxReadFailure{repository.NewNotificationRepository(env.db)}

	if err := env.notification.ProcessOutbox(context.Background(), entry.ID); err == nil {
		t.Fatalf("expected read error")
	}
	var stored models.NotificationOutbox
	if err := env.db.First(&stored, entry.ID).Error; err != nil {
		t.Fatalf("load outbox failed: %v", err)
	}
	if stored.Status != constants.OutboxStatusPending || stored.LastError != "connection reset" {
		t.Fatalf("claim should be released: %+v", stored)
	}
}

func TestSendTestErrors(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	ctx := context.Background()
	if err := env.notification.SendTest(ctx, " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := env.notification.SendTest(ctx, "42"); !errors.Is(err, ErrTelegramNotConfigured) {
		t.Fatalf("expected ErrTelegramNotConfigured, got %v", err)
	}
	env.configureBot(t)
	env.channel.failChats["43"] = true
	if err := env.notification.SendTest(ctx, "43"); !errors.Is(err, ErrTelegramSendFailed) {
		t.Fatalf("expected ErrTelegramSendFailed, got %v", err)
	}
	if err := env.notification.SendTest(ctx, "42"); err != nil {
		t.Fatalf("send test failed: %v", err)
	}
	messages := env.channel.messages()
	if len(messages) != 1 || messages[0].Text != telegramTestMessage {
		t.Fatalf("unexpected test message: %+v", messages)
	}
}

func TestListSentFiltersByOrder(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	env.configureBot(t)
	env.createRecipient(t, "admin1", constants.RoleAdmin, "5601")
	first, err := env.orders.CreateOrder(CreateOrderInput{OrderNumber: "ORD-701"})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := env.orders.CreateOrder(CreateOrderInput{OrderNumber: "ORD-702"}); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	records, total, err := env.notification.ListSent(repository.NotificationListFilter{OrderID: first.ID, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list sent failed: %v", err)
	}
	if total != 1 || len(records) != 1 || records[0].OrderID == nil || *records[0].OrderID != first.ID {
		t.Fatalf("unexpected records: total=%d %+v", total, records)
	}
}

func TestFormatRoute(t *testing.T) {
	cases := []struct {
		from, to, want string
	}{
		{"A", "B", "A → B"},
		{"", "B", "N/A → B"},
		{"A", "", "A → N/A"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := formatRoute(tc.from, tc.to); got != tc.want {
			t.Fatalf("formatRoute(%q, %q) = %q, want %q", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRenderNotificationMessagePlaceholders(t *testing.T) {
	text, err := RenderNotificationMessage(constants.NotificationEventOrderCreated, NotificationPayload{OrderNumber: "ORD-1"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"<b>ORD-1</b>", "Заказчики: Не указано", "Перевозчик: Не указан", "Дата: N/A"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message missing %q: %s", want, text)
		}
	}
	if _, err := RenderNotificationMessage("unknown", NotificationPayload{}); !errors.Is(err, ErrNotificationEventInvalid) {
		t.Fatalf("expected ErrNotificationEventInvalid, got %v", err)
	}
}
