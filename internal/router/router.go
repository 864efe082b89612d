package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/freightdesk/internal/cache"
	"github.com/freightdesk/internal/config"
	adminhandlers "github.com/freightdesk/internal/http/handlers/admin"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/provider"

	"github.com/gin-gonic/gin"
)

// PortalPath 门户统一入口
const PortalPath = "/api/v1/portal"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	writeRule := RateLimitRule{
		Prefix:        cache.Key("rate", "portal_write"),
		WindowSeconds: cfg.Security.WriteRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WriteRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
		Methods:       []string{http.MethodPost, http.MethodPut, http.MethodDelete},
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", healthHandler)

	portal := r.Group(PortalPath)
	portal.Use(RateLimitMiddleware(cache.Client(), writeRule, KeyByIPAndActor))
	{
		portal.GET("", adminHandler.PortalGet)
		portal.POST("", adminHandler.PortalPost)
		portal.PUT("", adminHandler.PortalPut)
		portal.DELETE("", adminHandler.PortalDelete)
	}

	return r
}

// healthHandler 存活检查，附带数据库与 Redis 状态
func healthHandler(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := pingDatabase(ctx); err != nil {
		logger.Warnw("health_database_unavailable", "error", err)
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unavailable"
	}
	if cache.Enabled() {
		body["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			logger.Warnw("health_redis_unavailable", "error", err)
			body["redis"] = "unavailable"
		}
	}
	c.JSON(status, body)
}

func pingDatabase(ctx context.Context) error {
	if models.DB == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
