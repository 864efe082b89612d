package app

import (
	"errors"
	"fmt"
	"net"

	"github.com/freightdesk/internal/config"
	"github.com/freightdesk/internal/provider"
	"github.com/freightdesk/internal/router"
	"github.com/freightdesk/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !isKnownMode(mode) {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	container := provider.NewContainer(cfg)
	services, err := buildServices(cfg, container, mode)
	if err != nil {
		container.Close()
		return nil, err
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

// buildServices 按模式组装服务；未启用队列时发件箱只由清扫器投递
func buildServices(cfg *config.Config, container *provider.Container, mode string) ([]Service, error) {
	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(listenAddr(cfg), engine))
	}

	if (mode == ModeAll || mode == ModeWorker) && cfg.Queue.Enabled {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	if mode == ModeAll || mode == ModeWorker || !cfg.Queue.Enabled {
		sweeper, err := worker.NewSweeper(cfg.Notification.OutboxSweepCron, container.NotificationService)
		if err != nil {
			return nil, err
		}
		services = append(services, sweeper)
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return services, nil
}

func listenAddr(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", listenAddr(opts.Config), "mode", opts.Mode, "queue_enabled", opts.Config.Queue.Enabled)
	return RunWithOptions(runner, opts)
}
