package gologger

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_ glog.Logger         = (*ZapLogger)(nil)
	_ glog.FieldsLogger   = (*ZapLogger)(nil)
	_ glog.LoggerProvider = (*ZapProvider)(nil)
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ZapLogger exposes a zap logger through the glog contract. Variadic args
// are treated as alternating key/value pairs.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

func NewZapLogger(base *zap.Logger) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{sugar: base.Sugar()}
}

func (l *ZapLogger) Trace(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
func (l *ZapLogger) Fatal(msg string, args ...any) { l.sugar.Fatalw(msg, args...) }

func (l *ZapLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *ZapLogger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &ZapLogger{sugar: l.sugar.With(args...)}
}

// Zap returns the underlying zap logger, e.g. for flushing on shutdown.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

// ZapProvider hands out loggers named after the requesting component.
type ZapProvider struct {
	base *zap.Logger
}

func NewZapProvider(base *zap.Logger) *ZapProvider {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapProvider{base: base}
}

func (p *ZapProvider) GetLogger(name string) glog.Logger {
	base := p.base
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		base = base.Named(trimmed)
	}
	return NewZapLogger(base)
}

// Options configures the process logger built by New.
type Options struct {
	Level  string
	Format string
}

// New builds a production zap logger. Format "console" switches to the
// human readable development encoder.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return nil, fmt.Errorf("gologger: invalid level %q: %w", opts.Level, err)
		}
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("gologger: unsupported format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
