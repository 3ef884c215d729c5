package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 全局日志，初始化前为 Nop
var Logger = zap.NewNop()

// InitLogger 按 gin 运行模式构建日志：release 输出 JSON，debug 输出彩色文本，test 静默
func InitLogger(mode string) error {
	var cfg zap.Config
	switch mode {
	case "test":
		Logger = zap.NewNop()
		return nil
	case "release":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build(zap.Fields(zap.String("app", "multiverso")))
	if err != nil {
		return err
	}
	Logger = logger
	return nil
}

// Sync 刷新缓冲
func Sync() {
	_ = Logger.Sync()
}
