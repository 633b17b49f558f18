package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - настройка логирования
//
// Назначение:
// Инициализация структурированного логирования на zap.
// Logger создается один раз в main и передается зависимостям явно.
//
// Функции:
// - InitLogger: создать и настроить logger
//   * Формат: json или console
//   * Уровни: debug, info, warn, error

// InitLogger создает настроенный zap.Logger
//
// Параметры:
//   - level: debug | info | warn | error
//   - format: json | console
func InitLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}

// MustInitLogger как InitLogger, но паникует при ошибке.
// Используется только в main при старте процесса.
func MustInitLogger(level, format string) *zap.Logger {
	logger, err := InitLogger(level, format)
	if err != nil {
		panic(err)
	}
	return logger
}
