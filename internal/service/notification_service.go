package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/queue"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultNotificationSendTimeout = 10 * time.Second
	defaultOutboxStaleAfter        = time.Minute
	defaultOutboxMaxAttempts       = 5
	defaultOutboxBatchSize         = 50

	notConfiguredMessage = "Telegram bot is not configured"
	noRecipientsMessage  = "No recipients for this event type"
)

// NotificationChannel 通知发送通道
type NotificationChannel interface {
	Send(ctx context.Context, botToken, chatID, text string) error
}

// RecipientPolicy 判断角色是否订阅某类通知
type RecipientPolicy interface {
	AllowsNotification(role, event string) (bool, error)
}

// NotificationOptions 通知投递参数
type NotificationOptions struct {
	SendTimeout time.Duration
	StaleAfter  time.Duration
	MaxAttempts int
	BatchSize   int
	// InlineDelivery 为 true 时 Publish 在当前 goroutine 内同步投递
	InlineDelivery bool
}

func (o NotificationOptions) normalized() NotificationOptions {
	if o.SendTimeout <= 0 {
		o.SendTimeout = defaultNotificationSendTimeout
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = defaultOutboxStaleAfter
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultOutboxMaxAttempts
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultOutboxBatchSize
	}
	return o
}

// DispatchResult 单次分发结果
type DispatchResult struct {
	Configured      bool   `json:"configured"`
	Sent            int    `json:"sent"`
	TotalRecipients int    `json:"total_recipients"`
	Message         string `json:"message,omitempty"`
}

// NotificationService 通知分发服务（发件箱 + Telegram）
type NotificationService struct {
	repo           repository.NotificationRepository
	userRepo       repository.UserRepository
	orderRepo      repository.OrderRepository
	stageRepo      repository.TransportStageRepository
	settingService *SettingService
	channel        NotificationChannel
	policy         RecipientPolicy
	queueClient    *queue.Client
	options        NotificationOptions
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	stageRepo repository.TransportStageRepository,
	settingService *SettingService,
	channel NotificationChannel,
	policy RecipientPolicy,
	queueClient *queue.Client,
	options NotificationOptions,
) *NotificationService {
	return &NotificationService{
		repo:           repo,
		userRepo:       userRepo,
		orderRepo:      orderRepo,
		stageRepo:      stageRepo,
		settingService: settingService,
		channel:        channel,
		policy:         policy,
		queueClient:    queueClient,
		options:        options.normalized(),
	}
}

// Dispatch 立即向订阅该事件的用户发送通知
func (s *NotificationService) Dispatch(ctx context.Context, eventType string, payload NotificationPayload) (*DispatchResult, error) {
	return s.dispatch(ctx, eventType, payload, nil)
}

func (s *NotificationService) dispatch(ctx context.Context, eventType string, payload NotificationPayload, outboxID *uint) (*DispatchResult, error) {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	if !IsNotificationEventSupported(eventType) {
		return nil, ErrNotificationEventInvalid
	}

	bot, err := s.settingService.GetTelegramBotSetting()
	if err != nil {
		return nil, err
	}
	if !bot.Configured() {
		return &DispatchResult{Configured: false, Message: notConfiguredMessage}, nil
	}

	recipients, err := s.resolveRecipients(eventType)
	if err != nil {
		return nil, err
	}
	result := &DispatchResult{Configured: true, TotalRecipients: len(recipients)}
	if len(recipients) == 0 {
		result.Message = noRecipientsMessage
		return result, nil
	}
	if s.channel == nil {
		return nil, ErrNotificationChannelNil
	}

	message, err := RenderNotificationMessage(eventType, payload)
	if err != nil {
		return nil, err
	}

	for _, user := range recipients {
		sendErr := s.sendOne(ctx, bot.BotToken, user.TelegramChatID, message)
		record := &models.TelegramNotification{
			OrderID:   payload.OrderID,
			OutboxID:  outboxID,
			UserID:    user.ID,
			EventType: eventType,
			ChatID:    user.TelegramChatID,
			Message:   message,
			IsSuccess: sendErr == nil,
		}
		if sendErr != nil {
			record.ErrorMessage = sendErr.Error()
			logger.Warnw("notification_send_failed",
				"event_type", eventType,
				"user_id", user.ID,
				"chat_id", user.TelegramChatID,
				"error", sendErr,
			)
		} else {
			result.Sent++
		}
		if err := s.repo.CreateSent(record); err != nil {
			logger.Errorw("notification_record_save_failed",
				"event_type", eventType,
				"user_id", user.ID,
				"error", err,
			)
		}
	}
	return result, nil
}

func (s *NotificationService) sendOne(ctx context.Context, token, chatID, message string) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.options.SendTimeout)
	defer cancel()
	return s.channel.Send(sendCtx, token, chatID, message)
}

// resolveRecipients 有效用户中角色订阅了该事件的
func (s *NotificationService) resolveRecipients(eventType string) ([]models.User, error) {
	users, err := s.userRepo.ListNotifiable()
	if err != nil {
		return nil, err
	}
	recipients := make([]models.User, 0, len(users))
	for _, user := range users {
		if user.Role == nil {
			continue
		}
		allowed, err := s.roleAllows(*user.Role, eventType)
		if err != nil {
			return nil, err
		}
		if allowed {
			recipients = append(recipients, user)
		}
	}
	return recipients, nil
}

func (s *NotificationService) roleAllows(role models.Role, eventType string) (bool, error) {
	if s.policy == nil {
		return role.NotificationFlags()[eventType], nil
	}
	return s.policy.AllowsNotification(role.Name, eventType)
}

// Enqueue 在调用方事务内写入发件箱记录
func (s *NotificationService) Enqueue(tx *gorm.DB, eventType string, orderID *uint, payload NotificationPayload) (uint, error) {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	if !IsNotificationEventSupported(eventType) {
		return 0, ErrNotificationEventInvalid
	}
	if payload.OrderID == nil {
		payload.OrderID = orderID
	}
	data, err := payload.ToJSON()
	if err != nil {
		return 0, err
	}
	entry := &models.NotificationOutbox{
		EventType: eventType,
		OrderID:   orderID,
		Payload:   data,
		Status:    constants.OutboxStatusPending,
	}
	if err := s.repo.WithTx(tx).CreateOutbox(entry); err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// BuildOrderPayload 在事务内按订单当前数据构建模板变量
func (s *NotificationService) BuildOrderPayload(tx *gorm.DB, orderID uint) (NotificationPayload, error) {
	payload := NotificationPayload{}
	order, err := s.orderRepo.WithTx(tx).GetByID(orderID)
	if err != nil {
		return payload, err
	}
	if order == nil {
		return payload, ErrOrderNotFound
	}

	id := order.ID
	payload.OrderID = &id
	payload.OrderNumber = order.OrderNumber
	payload.Invoice = order.Invoice
	if order.OrderDate != nil {
		payload.OrderDate = order.OrderDate.Format("02.01.2006")
	}
	if order.Client != nil {
		payload.Carrier = order.Client.Name
	}
	names := make([]string, 0, len(order.Customers))
	for _, item := range order.Customers {
		if item.Customer != nil {
			names = append(names, item.Customer.DisplayName())
		}
	}
	payload.Customers = strings.Join(names, ", ")

	var first *repository.TransportStageViewRow
	err = s.stageRepo.WithTx(tx).IterateViews(orderID, func(row repository.TransportStageViewRow) bool {
		first = &row
		return false
	})
	if err != nil {
		return payload, err
	}
	if first != nil {
		applyStageToPayload(&payload, *first)
	}
	return payload, nil
}

func applyStageToPayload(payload *NotificationPayload, row repository.TransportStageViewRow) {
	payload.FromLocation = row.FromLocation
	payload.ToLocation = row.ToLocation
	payload.Route = formatRoute(row.FromLocation, row.ToLocation)
	payload.Driver = models.JoinNonEmpty(" ", row.DriverLastName, row.DriverFirstName, row.DriverMiddleName)
	payload.Vehicle = strings.TrimSpace(row.VehicleBrand)
	if payload.Vehicle == "" {
		payload.Vehicle = strings.TrimSpace(row.LicensePlate)
	}
	payload.LicensePlate = row.LicensePlate
	payload.Trailer = row.TrailerPlate
}

func formatRoute(from, to string) string {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" && to == "" {
		return ""
	}
	return fmt.Sprintf("%s → %s", templateFieldRaw(from), templateFieldRaw(to))
}

func templateFieldRaw(value string) string {
	if value == "" {
		return placeholderNA
	}
	return value
}

// Publish 提交后投递发件箱记录，错误只记录日志
func (s *NotificationService) Publish(ids ...uint) {
	if s == nil {
		return
	}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if s.options.InlineDelivery {
			s.processLogged(context.Background(), id)
			continue
		}
		if s.queueClient.Enabled() {
			err := s.queueClient.DeliverOutbox(context.Background(), id)
			if err == nil {
				continue
			}
			logger.Warnw("notification_outbox_enqueue_failed", "outbox_id", id, "error", err)
		}
		// 只限制单次发送，不给整条记录设总时限，慢收件人不影响后面的收件人
		go s.processLogged(context.Background(), id)
	}
}

func (s *NotificationService) processLogged(ctx context.Context, id uint) {
	if err := s.ProcessOutbox(ctx, id); err != nil {
		logger.Warnw("notification_outbox_process_failed", "outbox_id", id, "error", err)
	}
}

// ProcessOutbox 抢占并投递一条发件箱记录
func (s *NotificationService) ProcessOutbox(ctx context.Context, id uint) error {
	claimed, err := s.repo.ClaimOutbox(id)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	entry, err := s.repo.GetOutbox(id)
	if err != nil {
		// 退回 pending，交给下一轮补投
		if markErr := s.markOutbox(id, constants.OutboxStatusPending, err.Error(), nil); markErr != nil {
			logger.Warnw("notification_outbox_release_failed", "outbox_id", id, "error", markErr)
		}
		return err
	}
	if entry == nil {
		return nil
	}

	payload, err := NotificationPayloadFromJSON(entry.Payload)
	if err != nil {
		return s.markOutbox(id, constants.OutboxStatusFailed, err.Error(), nil)
	}
	if payload.OrderID == nil {
		payload.OrderID = entry.OrderID
	}

	result, err := s.dispatch(ctx, entry.EventType, payload, &entry.ID)
	if err != nil {
		if errors.Is(err, ErrNotificationEventInvalid) || entry.Attempts >= s.options.MaxAttempts {
			if markErr := s.markOutbox(id, constants.OutboxStatusFailed, err.Error(), nil); markErr != nil {
				return markErr
			}
			return err
		}
		if markErr := s.markOutbox(id, constants.OutboxStatusPending, err.Error(), nil); markErr != nil {
			return markErr
		}
		return err
	}
	if !result.Configured {
		return s.markOutbox(id, constants.OutboxStatusSkipped, result.Message, result)
	}
	return s.markOutbox(id, constants.OutboxStatusDispatched, "", result)
}

func (s *NotificationService) markOutbox(id uint, status, lastError string, result *DispatchResult) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}
	if result != nil {
		now := time.Now()
		updates["sent"] = result.Sent
		updates["total_recipients"] = result.TotalRecipients
		updates["dispatched_at"] = &now
	}
	return s.repo.UpdateOutbox(id, updates)
}

// SweepOutbox 补投超时未处理的 pending 记录，返回处理条数
func (s *NotificationService) SweepOutbox(ctx context.Context) (int, error) {
	before := time.Now().Add(-s.options.StaleAfter)
	entries, err := s.repo.ListStaleOutbox(before, s.options.MaxAttempts, s.options.BatchSize)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := s.ProcessOutbox(ctx, entry.ID); err != nil {
			logger.Warnw("notification_outbox_sweep_item_failed", "outbox_id", entry.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// SendTest 使用当前 token 发送测试消息
func (s *NotificationService) SendTest(ctx context.Context, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return newValidationError("chat_id", "chat_id required")
	}
	bot, err := s.settingService.GetTelegramBotSetting()
	if err != nil {
		return err
	}
	if !bot.Configured() {
		return ErrTelegramNotConfigured
	}
	if s.channel == nil {
		return ErrNotificationChannelNil
	}
	if err := s.sendOne(ctx, bot.BotToken, chatID, telegramTestMessage); err != nil {
		return fmt.Errorf("%w: %v", ErrTelegramSendFailed, err)
	}
	return nil
}

// ListSent 发送记录
func (s *NotificationService) ListSent(filter repository.NotificationListFilter) ([]models.TelegramNotification, int64, error) {
	return s.repo.ListSent(filter)
}
