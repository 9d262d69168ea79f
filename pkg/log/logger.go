package log

import (
	"context"
	"strings"
)

type Logger interface {
	Info(ctx context.Context, format string, args ...interface{})
	Alert(ctx context.Context, format string, args ...interface{})
	Error(ctx context.Context, format string, args ...interface{})
	Warn(ctx context.Context, format string, args ...interface{})
	Debug(ctx context.Context, format string, args ...interface{})
	Notice(ctx context.Context, format string, args ...interface{})
	Critical(ctx context.Context, format string, args ...interface{})
	Emergency(ctx context.Context, format string, args ...interface{})
}

func NewLogger(logger Logger) (Logger, error) {
	return logger, nil
}

type Level int

// Severity grows downwards
const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarn
	LevelError
	LevelCritical
	LevelAlert
	LevelEmergency
)

var levelNames = map[Level]string{
	LevelDebug:     "DEBUG",
	LevelInfo:      "INFO",
	LevelNotice:    "NOTICE",
	LevelWarn:      "WARN",
	LevelError:     "ERROR",
	LevelCritical:  "CRITICAL",
	LevelAlert:     "ALERT",
	LevelEmergency: "EMERGENCY",
}

func (l Level) String() string {
	return levelNames[l]
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(name string) Level {
	for level, n := range levelNames {
		if strings.EqualFold(n, name) {
			return level
		}
	}
	if strings.EqualFold(name, "warning") {
		return LevelWarn
	}
	return LevelInfo
}

type NopLogger struct{}

func (NopLogger) Info(context.Context, string, ...interface{})      {}
func (NopLogger) Alert(context.Context, string, ...interface{})     {}
func (NopLogger) Error(context.Context, string, ...interface{})     {}
func (NopLogger) Warn(context.Context, string, ...interface{})      {}
func (NopLogger) Debug(context.Context, string, ...interface{})     {}
func (NopLogger) Notice(context.Context, string, ...interface{})    {}
func (NopLogger) Critical(context.Context, string, ...interface{})  {}
func (NopLogger) Emergency(context.Context, string, ...interface{}) {}
