package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveDeterministicFallback(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	loggerOnly := NewZapLogger(zap.New(core).Named("logger"))
	provider := NewZapProvider(zap.New(core))

	_, resolved := Resolve("connector", provider, loggerOnly)
	if resolved == glog.Logger(loggerOnly) {
		t.Fatalf("expected provider logger precedence")
	}

	resolvedProvider, resolved := Resolve("connector", nil, loggerOnly)
	if resolved != glog.Logger(loggerOnly) {
		t.Fatalf("expected direct logger when provider is nil")
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve("connector", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestZapLogger_WritesKeyValuesAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	provider := NewZapProvider(zap.New(core))

	logger := provider.GetLogger("sync")
	fields, ok := logger.(glog.FieldsLogger)
	if !ok {
		t.Fatalf("expected fields logger, got %T", logger)
	}
	fields.WithFields(map[string]any{"user_id": "usr_1"}).WithContext(context.Background()).
		Info("companies synced", "count", 3)
	logger.Trace("trace goes to debug")

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.LoggerName != "sync" || first.Message != "companies synced" || first.Level != zapcore.InfoLevel {
		t.Fatalf("unexpected entry %#v", first.Entry)
	}
	ctx := first.ContextMap()
	if ctx["user_id"] != "usr_1" || ctx["count"] != int64(3) {
		t.Fatalf("unexpected context %#v", ctx)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Fatalf("expected trace mapped to debug, got %v", entries[1].Level)
	}
}

func TestNew_ValidatesOptions(t *testing.T) {
	logger, err := New(Options{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("new console logger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
}
