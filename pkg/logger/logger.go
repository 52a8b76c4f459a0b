// Package logger wraps zap with the fields the CRM attaches to almost every
// line: the service name, the request correlation id and the lead,
// subscriber and conversation ids.
package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

type Options struct {
	Level       string
	Development bool
	Service     string
}

// New builds a JSON logger, or a colored console one in development.
// Unknown levels fall back to info.
func New(opts Options) (*Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if opts.Service != "" {
		l = l.With(zap.String("service", opts.Service))
	}
	return &Logger{Logger: l}, nil
}

func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger.Named(component)}
}

// Ctx tags the logger with the correlation id carried by ctx, if any.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	if id := CorrelationID(ctx); id != "" {
		return l.With(zap.String("correlation_id", id))
	}
	return l
}

type correlationKey struct{}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}

func LeadID(id string) zap.Field         { return zap.String("lead_id", id) }
func SubscriberID(id string) zap.Field   { return zap.String("subscriber_id", id) }
func ConversationID(id string) zap.Field { return zap.String("conversation_id", id) }

var global = fallback()

func fallback() *Logger {
	l, err := New(Options{Development: os.Getenv("ENV") == "development"})
	if err != nil {
		return NewNop()
	}
	return l
}

// Global returns the process-wide logger used when a component is built
// without one.
func Global() *Logger {
	return global
}

func SetGlobal(l *Logger) {
	global = l
}
