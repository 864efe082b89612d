package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/freightdesk/internal/config"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 通知投递队列的消费端
type Service struct {
	server   *asynq.Server
	consumer *Consumer
}

// NewService 队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = asynqLogger{}
	return &Service{server: asynq.NewServer(opt, serverCfg), consumer: consumer}, nil
}

// Name 服务名称
func (s *Service) Name() string { return "worker" }

// Start 确认 redis 可达后开始消费，直到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Ping(); err != nil {
		return fmt.Errorf("queue redis unreachable: %w", err)
	}
	mux := asynq.NewServeMux()
	s.consumer.Register(mux)
	if err := s.server.Start(mux); err != nil {
		return err
	}
	logger.Infow("worker_started", "task_types", []string{queue.TaskNotificationDispatch})
	<-ctx.Done()
	return nil
}

// Stop 等待处理中的任务结束；asynq 自身的超时由 ShutdownTimeout 控制
func (s *Service) Stop(context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}
