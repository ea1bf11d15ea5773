// Package logging provides structured logging using Zap, tee'd into the OpenTelemetry log bridge
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"optimal_execution/internal/core"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// instrumentation scope reported to the OTel log bridge
const scopeName = "optimal_execution"

// ZapLogger implements core.ILogger on top of zap.Logger
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a logger writing to stderr. Stdout is reserved for
// command output such as JSON reports.
func NewZapLogger(levelStr string) (*ZapLogger, error) {
	return NewZapLoggerWithWriter(levelStr, os.Stderr)
}

// NewZapLoggerWithWriter creates a logger writing console-encoded entries to w.
func NewZapLoggerWithWriter(levelStr string, w io.Writer) (*ZapLogger, error) {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level.zapLevel(),
	)

	otelCore := otelzap.NewCore(scopeName, otelzap.WithLoggerProvider(global.GetLoggerProvider()))
	combinedCore := zapcore.NewTee(consoleCore, otelCore)

	return &ZapLogger{
		logger: zap.New(combinedCore, zap.AddCaller(), zap.AddCallerSkip(1)),
	}, nil
}

// Level represents log levels
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "INFO"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zap.DebugLevel
	case WarnLevel:
		return zap.WarnLevel
	case ErrorLevel:
		return zap.ErrorLevel
	case FatalLevel:
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

// ParseLevel parses a log level string. An empty string means INFO.
func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel, nil
	case "INFO", "":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "FATAL":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// convertToZapFields converts alternating key/value pairs to zap fields.
// A trailing key without a value is dropped.
func (l *ZapLogger) convertToZapFields(fields []interface{}) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debug(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.logger.Info(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warn(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...interface{}) {
	l.logger.Error(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Fatal(msg string, fields ...interface{}) {
	l.logger.Fatal(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) WithField(key string, value interface{}) core.ILogger {
	return &ZapLogger{
		logger: l.logger.With(zap.Any(key, value)),
	}
}

func (l *ZapLogger) WithFields(fields map[string]interface{}) core.ILogger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &ZapLogger{
		logger: l.logger.With(zapFields...),
	}
}

// Sync flushes any buffered log entries
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// NopLogger discards everything. It backs library code that was handed no logger.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{})                    {}
func (NopLogger) Info(string, ...interface{})                     {}
func (NopLogger) Warn(string, ...interface{})                     {}
func (NopLogger) Error(string, ...interface{})                    {}
func (NopLogger) Fatal(string, ...interface{})                    {}
func (n NopLogger) WithField(string, interface{}) core.ILogger    { return n }
func (n NopLogger) WithFields(map[string]interface{}) core.ILogger { return n }

// OrNop returns logger, or a NopLogger when logger is nil.
func OrNop(logger core.ILogger) core.ILogger {
	if logger == nil {
		return NopLogger{}
	}
	return logger
}

// Global logger instance
var globalLogger core.ILogger

func init() {
	logger, _ := NewZapLogger("INFO")
	globalLogger = logger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger core.ILogger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() core.ILogger {
	return globalLogger
}
