package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"
)

// metricTagKeys are the event fields promoted to metric tags. Anything else
// stays in the log line only, keeping tag cardinality bounded.
var metricTagKeys = []string{"integration_type", "stage"}

// operationEvent is the outcome of one connector operation as seen by logs
// and metrics. Fields must never carry token material.
type operationEvent struct {
	name     string
	duration time.Duration
	err      error
	fields   map[string]any
}

func newOperationEvent(name string, startedAt time.Time, err error, fields map[string]any) operationEvent {
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	if name == "" {
		name = "unknown"
	}
	return operationEvent{
		name:     name,
		duration: time.Since(startedAt),
		err:      err,
		fields:   cloneFields(fields),
	}
}

func (e operationEvent) outcome() string {
	if e.err != nil {
		return "failure"
	}
	return "success"
}

func (e operationEvent) logFields() map[string]any {
	out := cloneFields(e.fields)
	out["event_type"] = e.name
	out["status"] = e.outcome()
	out["duration_ms"] = e.duration.Milliseconds()
	if e.err != nil {
		out["error"] = e.err.Error()
		if mapped := MapError(e.err); mapped != nil {
			out["error_code"] = mapped.TextCode
		}
	}
	return out
}

func (e operationEvent) metricTags() map[string]string {
	tags := map[string]string{"operation": e.name, "status": e.outcome()}
	for _, key := range metricTagKeys {
		if value, ok := e.fields[key].(string); ok && strings.TrimSpace(value) != "" {
			tags[key] = value
		}
	}
	return tags
}

// observeOperation emits one log line plus a counter and a duration
// histogram named connector.<operation>.*.
func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	event := newOperationEvent(operation, startedAt, err, fields)
	s.emitMetrics(ctx, event)

	message := event.name + "." + event.outcome()
	if event.err != nil {
		s.logError(ctx, message, event.logFields())
		return
	}
	s.logInfo(ctx, message, event.logFields())
}

func (s *Service) emitMetrics(ctx context.Context, event operationEvent) {
	if s.metricsRecorder == nil {
		return
	}
	prefix := "connector." + event.name
	tags := event.metricTags()
	s.metricsRecorder.IncCounter(ctx, prefix+".total", 1, cloneTags(tags))
	s.metricsRecorder.ObserveHistogram(ctx, prefix+".duration_ms", float64(event.duration.Milliseconds()), cloneTags(tags))
}

func (s *Service) logDebug(ctx context.Context, message string, fields map[string]any) {
	if logger, args := s.scopedLogger(ctx, fields); logger != nil {
		logger.Debug(message, args...)
	}
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	if logger, args := s.scopedLogger(ctx, fields); logger != nil {
		logger.Info(message, args...)
	}
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	if logger, args := s.scopedLogger(ctx, fields); logger != nil {
		logger.Error(message, args...)
	}
}

// scopedLogger binds the context and, when the logger supports it, the
// fields. Otherwise the fields come back as sorted key/value pairs.
func (s *Service) scopedLogger(ctx context.Context, fields map[string]any) (Logger, []any) {
	if s == nil || s.logger == nil {
		return nil, nil
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		return fieldsLogger.WithFields(cloneFields(fields)), nil
	}
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return logger, args
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return maps.Clone(fields)
}
