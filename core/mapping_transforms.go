package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func toIntValue(value any) (int64, error) {
	switch typed := value.(type) {
	case int:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint32:
		return int64(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return 0, fmt.Errorf("core: %d overflows int64", typed)
		}
		return int64(typed), nil
	case float32:
		return floatToInt(float64(typed))
	case float64:
		return floatToInt(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed, nil
		}
		floatParsed, floatErr := typed.Float64()
		if floatErr != nil {
			return 0, fmt.Errorf("core: parse number as int: %w", err)
		}
		return floatToInt(floatParsed)
	case string:
		candidate := normalizeNumeric(typed)
		if candidate == "" {
			return 0, fmt.Errorf("core: empty string cannot convert to int")
		}
		if parsed, err := strconv.ParseInt(candidate, 10, 64); err == nil {
			return parsed, nil
		}
		floatParsed, err := strconv.ParseFloat(candidate, 64)
		if err != nil {
			return 0, fmt.Errorf("core: parse %q as int: %w", typed, err)
		}
		return floatToInt(floatParsed)
	default:
		return 0, fmt.Errorf("core: unsupported int value type %T", value)
	}
}

func toFloatValue(value any) (float64, error) {
	var out float64
	switch typed := value.(type) {
	case int:
		out = float64(typed)
	case int32:
		out = float64(typed)
	case int64:
		out = float64(typed)
	case uint32:
		out = float64(typed)
	case uint64:
		out = float64(typed)
	case float32:
		out = float64(typed)
	case float64:
		out = typed
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, fmt.Errorf("core: parse number as float: %w", err)
		}
		out = parsed
	case string:
		candidate := normalizeNumeric(typed)
		if candidate == "" {
			return 0, fmt.Errorf("core: empty string cannot convert to float")
		}
		parsed, err := strconv.ParseFloat(candidate, 64)
		if err != nil {
			return 0, fmt.Errorf("core: parse %q as float: %w", typed, err)
		}
		out = parsed
	default:
		return 0, fmt.Errorf("core: unsupported float value type %T", value)
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("core: %v is not a finite number", value)
	}
	return out, nil
}

func toTimeValue(value any) (time.Time, error) {
	switch typed := value.(type) {
	case time.Time:
		if typed.IsZero() {
			return time.Time{}, fmt.Errorf("core: zero time")
		}
		return typed.UTC(), nil
	case string:
		candidate := strings.TrimSpace(typed)
		if candidate == "" {
			return time.Time{}, fmt.Errorf("core: empty string cannot convert to time")
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, candidate); err == nil {
				return parsed.UTC(), nil
			}
		}
		millis, err := strconv.ParseInt(candidate, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("core: parse %q as time", typed)
		}
		return epochMillis(millis)
	default:
		millis, err := toIntValue(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("core: unsupported time value type %T", value)
		}
		return epochMillis(millis)
	}
}

func toStringValue(value any) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return "", false
	case string:
		trimmed := strings.TrimSpace(typed)
		return trimmed, trimmed != ""
	case json.Number:
		return typed.String(), true
	case fmt.Stringer:
		trimmed := strings.TrimSpace(typed.String())
		return trimmed, trimmed != ""
	case bool, int, int32, int64, float32, float64, uint32, uint64:
		return fmt.Sprint(typed), true
	default:
		return "", false
	}
}

func floatToInt(value float64) (int64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value > math.MaxInt64 || value < math.MinInt64 {
		return 0, fmt.Errorf("core: %v cannot convert to int", value)
	}
	return int64(value), nil
}

func epochMillis(millis int64) (time.Time, error) {
	if millis <= 0 {
		return time.Time{}, fmt.Errorf("core: epoch %d out of range", millis)
	}
	return time.UnixMilli(millis).UTC(), nil
}

func normalizeNumeric(raw string) string {
	candidate := strings.TrimSpace(raw)
	candidate = strings.ReplaceAll(candidate, ",", "")
	candidate = strings.ReplaceAll(candidate, "_", "")
	return candidate
}
