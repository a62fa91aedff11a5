package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const missingKey = "arg"

// toFields turns alternating key/value args into zap fields. A non-string or
// empty key becomes "arg"; a dangling key is logged with a nil value.
func toFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(args)/2+3)
	for i := 0; i < len(args); i += 2 {
		key, _ := args[i].(string)
		if key == "" {
			key = missingKey
		}
		var value any
		if i+1 < len(args) {
			value = args[i+1]
		}
		fields = append(fields, toField(key, value))
	}
	return fields
}

func toField(key string, value any) zap.Field {
	if sensitive(key) {
		return zap.String(key, redactedValue)
	}
	switch v := value.(type) {
	case error:
		return zap.NamedError(key, v)
	case string:
		return zap.String(key, v)
	case int:
		return zap.Int(key, v)
	case bool:
		return zap.Bool(key, v)
	}
	return zap.Any(key, value)
}

// spanFields correlates an entry with the active span, if any.
func spanFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	}
}
