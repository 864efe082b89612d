package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/freightdesk/internal/app"
	"github.com/freightdesk/internal/config"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := prepareDatabase(cfg); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	seedDefaultAdmin(cfg, stdLog)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// prepareDatabase 连接、迁移并写入默认角色
func prepareDatabase(cfg *config.Config) error {
	pool := models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogLevel, pool); err != nil {
		return err
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := models.InitDefaultRoles(); err != nil {
		return fmt.Errorf("default roles: %w", err)
	}
	return nil
}

// seedDefaultAdmin release 模式下未提供密码时跳过
func seedDefaultAdmin(cfg *config.Config, stdLog *log.Logger) {
	username := os.Getenv("FD_DEFAULT_ADMIN_USERNAME")
	password := os.Getenv("FD_DEFAULT_ADMIN_PASSWORD")
	if cfg.Server.Mode == "release" && password == "" {
		stdLog.Printf("警告: 未设置 FD_DEFAULT_ADMIN_PASSWORD，已跳过默认管理员初始化")
		return
	}
	if err := models.InitDefaultAdmin(username, password); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║                 🚚 Freightdesk Portal API 启动中             ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + "███████╗██████╗ ███████╗██╗ ██████╗ ██╗  ██╗████████╗" + ansiReset)
	fmt.Println(ansiCyan + "██╔════╝██╔══██╗██╔════╝██║██╔════╝ ██║  ██║╚══██╔══╝" + ansiReset)
	fmt.Println(ansiCyan + "█████╗  ██████╔╝█████╗  ██║██║  ███╗███████║   ██║   " + ansiReset)
	fmt.Println(ansiCyan + "██╔══╝  ██╔══██╗██╔══╝  ██║██║   ██║██╔══██║   ██║   " + ansiReset)
	fmt.Println(ansiCyan + "██║     ██║  ██║███████╗██║╚██████╔╝██║  ██║   ██║   " + ansiReset)
	fmt.Println(ansiCyan + "╚═╝     ╚═╝  ╚═╝╚══════╝╚═╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   " + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Orders · Stages · Customs · Telegram" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}
