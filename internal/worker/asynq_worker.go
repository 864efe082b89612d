package worker

import (
	"context"

	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/provider"
	"github.com/freightdesk/internal/queue"

	"github.com/hibiken/asynq"
)

// OutboxProcessor 发件箱处理能力
type OutboxProcessor interface {
	ProcessOutbox(ctx context.Context, id uint) error
	SweepOutbox(ctx context.Context) (int, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	outbox OutboxProcessor
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{}
	if c != nil && c.NotificationService != nil {
		consumer.outbox = c.NotificationService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
}

func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseNotificationDispatchPayload(task)
	if err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.OutboxID == 0 {
		logger.Debugw("worker_notification_dispatch_skip_invalid_payload", "outbox_id", payload.OutboxID)
		return nil
	}
	if c.outbox == nil {
		logger.Warnw("worker_notification_dispatch_skip_service_nil", "outbox_id", payload.OutboxID)
		return nil
	}
	if err := c.outbox.ProcessOutbox(ctx, payload.OutboxID); err != nil {
		logger.Warnw("worker_notification_dispatch_failed", "outbox_id", payload.OutboxID, "error", err)
		return err
	}
	return nil
}
