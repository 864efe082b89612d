package queue

import (
	"encoding/json"

	"github.com/freightdesk/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch 发件箱通知投递任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
)

// NotificationDispatchPayload 发件箱投递任务载荷
type NotificationDispatchPayload struct {
	OutboxID uint `json:"outbox_id"`
}

// NewNotificationDispatchTask 创建发件箱投递任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// ParseNotificationDispatchPayload 解析发件箱投递任务载荷
func ParseNotificationDispatchPayload(task *asynq.Task) (NotificationDispatchPayload, error) {
	var payload NotificationDispatchPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
