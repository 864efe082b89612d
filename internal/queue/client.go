package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/freightdesk/internal/config"
	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// NotificationQueue 通知投递队列
	NotificationQueue = constants.QueueNotifications

	notificationMaxRetry = 3
	defaultConcurrency   = 10
	maxRetryDelay        = 5 * time.Minute
)

// Client 发件箱投递任务的生产端；未启用时所有投递都是空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// DeliverOutbox 以 outbox id 作为任务 ID 入队，同一行重复入队视为成功
func (c *Client) DeliverOutbox(ctx context.Context, outboxID uint) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewNotificationDispatchTask(NotificationDispatchPayload{OutboxID: outboxID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(NotificationQueue),
		asynq.MaxRetry(notificationMaxRetry),
		asynq.TaskID(outboxTaskID(outboxID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func outboxTaskID(outboxID uint) string {
	return "notification-outbox-" + strconv.FormatUint(uint64(outboxID), 10)
}

// BuildServerConfig 消费端配置：默认并发 10，重试间隔指数增长且不超过 5 分钟
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency:    defaultConcurrency,
		Queues:         map[string]int{DefaultQueue: 1, NotificationQueue: 1},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Warnw("queue_task_failed", "task_type", task.Type(), "retried", retried, "error", err)
		}),
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return redisOpt(cfg), serverCfg
}

func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 8 {
		return maxRetryDelay
	}
	delay := time.Duration(1<<uint(n)) * 5 * time.Second
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
