package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/BaSui01/shopcrew/config"
)

// ParseLevel 解析日志级别，未知值回退到 info
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig(format string) zapcore.EncoderConfig {
	if format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return ec
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}

// New 按配置构建 logger。
// File.Path 非空时额外以 JSON 写入滚动日志文件（lumberjack）。
// 返回的 sync 函数应在进程退出前调用。
func New(cfg config.LogConfig) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             level,
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig(cfg.Format),
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	base, err := zapConfig.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	if cfg.File.Path == "" {
		return base, func() { _ = base.Sync() }, nil
	}

	rotator := NewFileWriter(cfg.File)
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig("json")),
		zapcore.AddSync(rotator),
		level,
	)
	logger := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))

	return logger, func() {
		_ = logger.Sync()
		_ = rotator.Close()
	}, nil
}

// NewFileWriter 创建滚动日志文件写入器
func NewFileWriter(cfg config.LogFileConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
