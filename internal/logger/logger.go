package logger

import (
	"log"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// L 全局结构化日志实例，未初始化时各方法回退到控制台日志
var L *zap.Logger

var (
	fallbackOnce sync.Once
	fallbackLog  *zap.Logger
)

// Init 初始化全局日志并替换 zap 全局实例
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

// StdLogger 启动阶段使用的标准库 logger
func StdLogger() *log.Logger {
	return zap.NewStdLog(current())
}

func current() *zap.Logger {
	if L != nil {
		return L
	}
	fallbackOnce.Do(func() {
		fallbackLog = zap.New(consoleCore(zap.NewAtomicLevelAt(zap.InfoLevel), false), zap.AddCaller(), zap.AddCallerSkip(1))
	})
	return fallbackLog
}

// S 返回 SugaredLogger
func S() *zap.SugaredLogger {
	return current().Sugar()
}

// SW 返回带上下文字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	return S().With(kv...)
}

// ForOrder 订单相关日志统一带 order_id / order_number
func ForOrder(orderID uint, orderNumber string) *zap.SugaredLogger {
	if orderNumber = strings.TrimSpace(orderNumber); orderNumber == "" {
		return SW("order_id", orderID)
	}
	return SW("order_id", orderID, "order_number", orderNumber)
}

func Debugw(event string, kv ...interface{}) { S().Debugw(event, kv...) }

func Infow(event string, kv ...interface{}) { S().Infow(event, kv...) }

func Warnw(event string, kv ...interface{}) { S().Warnw(event, kv...) }

func Errorw(event string, kv ...interface{}) { S().Errorw(event, kv...) }
