package logger

import (
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`
	Filename   string `env:"LOG_FILENAME"`
	MaxSize    int    `env:"LOG_MAX_SIZE"`
	MaxAge     int    `env:"LOG_MAX_AGE"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS"`
}

var Lg = zap.NewNop()

// Init 初始化全局日志；配置了 Filename 时写入滚动文件，非 release 模式同时输出到控制台
func Init(cfg *LogConfig, mode string) error {
	level := zapcore.InfoLevel
	if cfg != nil && cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return err
		}
	}

	var cores []zapcore.Core
	if cfg != nil && cfg.Filename != "" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "time"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    orDefault(cfg.MaxSize, 100),
			MaxAge:     orDefault(cfg.MaxAge, 30),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), writer, level))
	}
	if mode != "release" || len(cores) == 0 {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level))
	}

	Lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	zap.ReplaceGlobals(Lg)
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func Debug(msg string, fields ...zap.Field) { Lg.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Lg.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Lg.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Lg.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { Lg.Fatal(msg, fields...) }

// Sync 刷新缓冲区，进程退出前调用
func Sync() error {
	return Lg.Sync()
}
