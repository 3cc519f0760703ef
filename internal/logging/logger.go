package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable consulted when no level is given.
// Valid values: "none", "error", "warn", "info", "debug"
const LogLevelEnvVar = "WIFIPROV_LOG_LEVEL"

// DefaultLevel is used when neither the caller nor the environment picks a level.
const DefaultLevel = "info"

// ParseLevel maps a level name to a zap level.
// The second return value is false for "none", which disables output entirely.
func ParseLevel(level string) (zapcore.Level, bool, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "none", "off":
		return zapcore.InfoLevel, false, nil
	case "debug":
		return zapcore.DebugLevel, true, nil
	case "info", "":
		return zapcore.InfoLevel, true, nil
	case "warn", "warning":
		return zapcore.WarnLevel, true, nil
	case "error":
		return zapcore.ErrorLevel, true, nil
	default:
		return zapcore.InfoLevel, true, fmt.Errorf("unknown log level %q", level)
	}
}

// Initialize creates a new logger with the specified level.
// If level is empty, WIFIPROV_LOG_LEVEL is checked, then DefaultLevel is used.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		level = DefaultLevel
	}

	zapLevel, enabled, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if !enabled {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built.Named("wifiprov")

	return nil
}

// SetLogger replaces the global logger. Tests use this with zaptest or observer cores.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogTransition logs a state machine phase change
func LogTransition(from, to string, reason string) {
	Info("State transition",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("reason", reason),
	)
}

// LogHTTPRequest logs a request served by one of the device HTTP surfaces
func LogHTTPRequest(surface, remoteAddr, method, path string, status int) {
	Debug("HTTP request served",
		zap.String("surface", surface),
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
	)
}

// LogReset logs a reset trigger firing
func LogReset(trigger string, reason string) {
	Info("Performing reset",
		zap.String("trigger", trigger),
		zap.String("reason", reason),
	)
}

// LogHook logs dispatch of a host application hook
func LogHook(name string, fields ...zap.Field) {
	Debug("Dispatching hook", append([]zap.Field{zap.String("hook", name)}, fields...)...)
}

// MaskSecret renders a secret for logs without revealing it
func MaskSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<%d chars>", len(secret))
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
