// Package logging provides the structured logger shared by every component
// of the quoting engine.
package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// contextKey avoids collisions with other packages' context keys.
type contextKey string

// RequestIDKey is the context key under which the current request ID is stored.
const RequestIDKey contextKey = "request_id"

// Logger wraps zap.Logger with freight-engine specific helpers.
type Logger struct {
	*zap.Logger
	service string
}

// Config controls logger construction.
type Config struct {
	Level       string
	Service     string
	Environment string
	Format      string // json or console
}

// New builds a Logger from Config, defaulting unset fields.
func New(cfg Config) *Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Service == "" {
		cfg.Service = "freightquote"
	}
	if cfg.Environment == "" {
		cfg.Environment = getEnv("FREIGHTQUOTE_ENV", "development")
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	base := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).With(
		zap.String("service", cfg.Service),
		zap.String("environment", cfg.Environment),
	)

	return &Logger{Logger: base, service: cfg.Service}
}

// WithRequestID attaches a request ID to the logger's context.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID)), service: l.service}
}

// FromContext pulls a request ID off ctx, if present, and attaches it.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return l.WithRequestID(id)
	}
	return l
}

// WithRequestIDContext stores requestID on ctx under the shared context
// key, for handlers that want it recoverable later via FromContext.
func WithRequestIDContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// CarrierLogger logs a per-carrier fan-out failure without escalating it.
func (l *Logger) CarrierLogger(carrierID, carrierName, reason string) {
	l.Warn("carrier evaluation skipped",
		zap.String("carrier_id", carrierID),
		zap.String("carrier_name", carrierName),
		zap.String("reason", reason),
	)
}

// CacheLogger logs cache get/set outcomes.
func (l *Logger) CacheLogger(operation, key string, hit bool) {
	l.Debug("cache operation",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Bool("hit", hit),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
