package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// Logger writes JSON log lines carrying the service name and the correlation
// id found in the context.
type Logger struct {
	z       *zap.Logger
	service string
}

// NewLogger creates an info-level logger writing to out.
func NewLogger(out io.Writer, service string) *Logger {
	return NewLoggerWithLevel(out, service, "info")
}

// NewLoggerWithLevel creates a logger that drops entries below level. Unknown
// levels fall back to info.
func NewLoggerWithLevel(out io.Writer, service, level string) *Logger {
	if out == nil {
		out = io.Discard
	}

	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		lvl = zapcore.InfoLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(out)), lvl)

	service = strings.TrimSpace(service)
	z := zap.New(core)
	if service != "" {
		z = z.With(zap.String("service", service))
	}
	return &Logger{z: z, service: service}
}

// WithCorrelationID attaches a correlation id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey, strings.TrimSpace(id))
}

// CorrelationIDFromContext returns the correlation id stored in ctx, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

func (l *Logger) Printf(ctx context.Context, format string, v ...any) {
	if l == nil {
		return
	}
	l.z.Info(fmt.Sprintf(format, v...), l.fields(ctx)...)
}

func (l *Logger) Println(ctx context.Context, v ...any) {
	if l == nil {
		return
	}
	l.z.Info(strings.TrimSpace(fmt.Sprintln(v...)), l.fields(ctx)...)
}

func (l *Logger) Debugf(ctx context.Context, format string, v ...any) {
	if l == nil {
		return
	}
	l.z.Debug(fmt.Sprintf(format, v...), l.fields(ctx)...)
}

func (l *Logger) Warnf(ctx context.Context, format string, v ...any) {
	if l == nil {
		return
	}
	l.z.Warn(fmt.Sprintf(format, v...), l.fields(ctx)...)
}

func (l *Logger) Errorf(ctx context.Context, format string, v ...any) {
	if l == nil {
		return
	}
	l.z.Error(fmt.Sprintf(format, v...), l.fields(ctx)...)
}

func (l *Logger) Fatalf(ctx context.Context, format string, v ...any) {
	if l == nil {
		os.Exit(1)
	}
	l.z.Fatal(fmt.Sprintf(format, v...), l.fields(ctx)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.z.Sync()
}

func (l *Logger) fields(ctx context.Context) []zap.Field {
	if id := CorrelationIDFromContext(ctx); id != "" {
		return []zap.Field{zap.String("trace_id", id)}
	}
	return nil
}
