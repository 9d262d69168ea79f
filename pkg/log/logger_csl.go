package log

import (
	"context"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// CslLogger writes "[LEVEL][component] message" lines through the standard log package.
type CslLogger struct {
	out       *log.Logger
	component string
	level     *atomic.Int32
}

func NewCslLogger() (*CslLogger, error) {
	return NewCslLoggerTo(os.Stderr, LevelInfo), nil
}

func NewCslLoggerTo(w io.Writer, level Level) *CslLogger {
	l := &CslLogger{
		out:   log.New(w, "", log.LstdFlags),
		level: &atomic.Int32{},
	}
	l.level.Store(int32(level))
	return l
}

// With returns a logger sharing output and level, tagged with component.
func (l *CslLogger) With(component string) *CslLogger {
	return &CslLogger{out: l.out, component: component, level: l.level}
}

// SetLevel is safe to call while other goroutines log.
func (l *CslLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

func (l *CslLogger) printf(level Level, format string, args ...interface{}) {
	if int32(level) < l.level.Load() {
		return
	}
	prefix := "[" + level.String() + "] "
	if l.component != "" {
		prefix = "[" + level.String() + "][" + l.component + "] "
	}
	l.out.Printf(prefix+format, args...)
}

func (l *CslLogger) Info(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelInfo, format, args...)
}

func (l *CslLogger) Alert(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelAlert, format, args...)
}

func (l *CslLogger) Error(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelError, format, args...)
}

func (l *CslLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelWarn, format, args...)
}

func (l *CslLogger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelDebug, format, args...)
}

func (l *CslLogger) Critical(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelCritical, format, args...)
}

func (l *CslLogger) Emergency(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelEmergency, format, args...)
}

func (l *CslLogger) Notice(ctx context.Context, format string, args ...interface{}) {
	l.printf(LevelNotice, format, args...)
}
