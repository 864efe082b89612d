package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/freightdesk/internal/logger"

	"github.com/robfig/cron/v3"
)

const defaultSweepSpec = "@every 1m"

// Sweeper 定时补投发件箱
type Sweeper struct {
	name   string
	spec   string
	cron   *cron.Cron
	outbox OutboxProcessor
}

// NewSweeper 创建补投任务，spec 为 cron 表达式或 @every 描述
func NewSweeper(spec string, outbox OutboxProcessor) (*Sweeper, error) {
	if outbox == nil {
		return nil, errors.New("outbox processor is nil")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = defaultSweepSpec
	}
	s := &Sweeper{
		name:   "outbox_sweeper",
		spec:   spec,
		outbox: outbox,
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	))
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Name 服务名称
func (s *Sweeper) Name() string {
	if s == nil || s.name == "" {
		return "outbox_sweeper"
	}
	return s.name
}

// Start 启动定时器并阻塞到 ctx 结束
func (s *Sweeper) Start(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return errors.New("sweeper not initialized")
	}
	logger.Infow("worker_outbox_sweeper_start", "spec", s.spec)
	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 停止定时器，等待进行中的补投结束
func (s *Sweeper) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 执行一次补投
func (s *Sweeper) RunOnce(ctx context.Context) int {
	if s == nil || s.outbox == nil {
		return 0
	}
	processed, err := s.outbox.SweepOutbox(ctx)
	if err != nil {
		logger.Warnw("worker_outbox_sweep_failed", "error", err)
	}
	if processed > 0 {
		logger.Infow("worker_outbox_sweep_done", "processed", processed)
	}
	return processed
}

// cronLogger 将 cron 日志转到 zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debugw("cron_"+strings.ReplaceAll(msg, " ", "_"), keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Errorw("cron_"+strings.ReplaceAll(msg, " ", "_"), append(keysAndValues, "error", err)...)
}
