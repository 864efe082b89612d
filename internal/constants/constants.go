package constants

// 订单状态常量（调用方可写入其它非空值）
const (
	OrderStatusPending   = "pending"
	OrderStatusLoading   = "loading"
	OrderStatusInTransit = "in_transit"
	OrderStatusDelivered = "delivered"
)

// 运输段状态常量
const (
	StageStatusPlanned    = "planned"
	StageStatusInProgress = "in_progress"
	StageStatusCompleted  = "completed"
)

// 操作日志类型
const (
	ActionCreateOrder   = "create_order"
	ActionUpdateOrder   = "update_order"
	ActionUpdateStage   = "update_stage"
	ActionAddStage      = "add_stage"
	ActionDeleteStage   = "delete_stage"
	ActionAddCustoms    = "add_customs"
	ActionAddNote       = "add_note"
	ActionCreateDoc     = "create_document"
	DefaultActorLabel   = "Пользователь"
	ActivityRecentLimit = 100
)

// 通知事件类型
const (
	NotificationEventOrderCreated   = "order_created"
	NotificationEventOrderLoaded    = "order_loaded"
	NotificationEventOrderInTransit = "order_in_transit"
	NotificationEventOrderDelivered = "order_delivered"
	NotificationEventStageCompleted = "stage_completed"
)

// NotificationEvents 所有支持的通知事件
var NotificationEvents = []string{
	NotificationEventOrderCreated,
	NotificationEventOrderLoaded,
	NotificationEventOrderInTransit,
	NotificationEventOrderDelivered,
	NotificationEventStageCompleted,
}

// 通知发件箱状态
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusDispatched = "dispatched"
	OutboxStatusSkipped    = "skipped"
	OutboxStatusFailed     = "failed"
)

// 角色权限 JSON 键
const (
	PermissionTelegramNotifications = "telegram_notifications"
)

// 设置键
const (
	SettingKeyTelegramBot = "telegram_bot"
)

// 文档类型
const (
	DocumentTypeWaybill         = "waybill"
	DocumentTypePowerOfAttorney = "power_of_attorney"
	DocumentTypeContract        = "contract"
)

// 队列与任务
const (
	QueueDefault       = "default"
	QueueNotifications = "notifications"

	TaskNotificationDispatch = "notification:dispatch"
)

// 默认角色
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleLogist  = "logist"
	RoleDriver  = "driver"
)
