package worker

import (
	"fmt"
	"os"

	"github.com/freightdesk/internal/logger"
)

// asynqLogger 将 asynq 内部日志转到 zap
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) {
	logger.Debugw("asynq_log", "message", fmt.Sprint(args...))
}

func (asynqLogger) Info(args ...interface{}) {
	logger.Infow("asynq_log", "message", fmt.Sprint(args...))
}

func (asynqLogger) Warn(args ...interface{}) {
	logger.Warnw("asynq_log", "message", fmt.Sprint(args...))
}

func (asynqLogger) Error(args ...interface{}) {
	logger.Errorw("asynq_log", "message", fmt.Sprint(args...))
}

func (asynqLogger) Fatal(args ...interface{}) {
	logger.Errorw("asynq_fatal", "message", fmt.Sprint(args...))
	os.Exit(1)
}
