package observability

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	otellog "go.opentelemetry.io/otel/log"
	otelglobal "go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap/zapcore"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

const uptraceLogInstrumentation = "fixture-calendar-sync/internal/platform/logging"

// Request logs for these paths are probes or static docs and never mirrored.
var uptraceSkippedPaths = map[string]struct{}{
	"/healthz":      {},
	"/openapi.yaml": {},
	"/docs":         {},
}

func newUptraceLogMirror(serviceVersion string) logging.MirrorFunc {
	otelLogger := otelglobal.Logger(
		uptraceLogInstrumentation,
		otellog.WithInstrumentationVersion(serviceVersion),
	)

	return func(ctx context.Context, level logging.Level, msg string, args ...any) {
		if shouldSkipUptraceLog(msg, args) {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		severity := severityFor(level)
		if otelLogger.Enabled(ctx, otellog.EnabledParameters{Severity: severity, EventName: msg}) {
			otelLogger.Emit(ctx, newLogRecord(time.Now().UTC(), level, msg, args))
		}
	}
}

func newLogRecord(at time.Time, level logging.Level, msg string, args []any) otellog.Record {
	var r otellog.Record
	r.SetTimestamp(at)
	r.SetObservedTimestamp(at)
	r.SetSeverity(severityFor(level))
	r.SetSeverityText(strings.ToUpper(level.String()))
	r.SetEventName(msg)
	r.SetBody(otellog.StringValue(msg))
	r.AddAttributes(buildOTelLogAttributes(args)...)
	return r
}

func shouldSkipUptraceLog(msg string, args []any) bool {
	if msg != "http request" {
		return false
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, _ := args[i].(string); key != "path" {
			continue
		}
		path, _ := args[i+1].(string)
		_, skip := uptraceSkippedPaths[path]
		return skip
	}
	return false
}

// buildOTelLogAttributes turns slog-style key/value pairs into attributes. A
// trailing key without a value becomes an empty attribute.
func buildOTelLogAttributes(args []any) []otellog.KeyValue {
	if len(args) == 0 {
		return nil
	}

	attrs := make([]otellog.KeyValue, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, _ := args[i].(string)
		if strings.TrimSpace(key) == "" {
			key = fmt.Sprintf("arg_%d", i/2)
		}
		if i+1 >= len(args) {
			attrs = append(attrs, otellog.Empty(key))
			continue
		}
		attrs = append(attrs, otellog.KeyValue{Key: key, Value: toOTelLogValue(args[i+1])})
	}
	return attrs
}

var otelSeverities = map[zapcore.Level]otellog.Severity{
	zapcore.DebugLevel: otellog.SeverityDebug,
	zapcore.InfoLevel:  otellog.SeverityInfo,
	zapcore.WarnLevel:  otellog.SeverityWarn,
	zapcore.ErrorLevel: otellog.SeverityError,
}

// severityFor maps zap levels onto OTel severities. DPanic and above are
// reported as fatal.
func severityFor(level zapcore.Level) otellog.Severity {
	if severity, ok := otelSeverities[level]; ok {
		return severity
	}
	if level < zapcore.DebugLevel {
		return otellog.SeverityDebug
	}
	return otellog.SeverityFatal
}

// toOTelLogValue maps scalars to their native attribute kind. Anything
// composite (fixtures, sync reports, id slices) is flattened to its JSON form
// so the backend can index it as a single string.
func toOTelLogValue(value any) otellog.Value {
	switch v := value.(type) {
	case nil:
		return otellog.Value{}
	case string:
		return otellog.StringValue(v)
	case bool:
		return otellog.BoolValue(v)
	case int:
		return otellog.IntValue(v)
	case int32:
		return otellog.Int64Value(int64(v))
	case int64:
		return otellog.Int64Value(v)
	case uint32:
		return otellog.Int64Value(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return otellog.StringValue(fmt.Sprint(v))
		}
		return otellog.Int64Value(int64(v))
	case float64:
		return otellog.Float64Value(v)
	case float32:
		return otellog.Float64Value(float64(v))
	case []byte:
		return otellog.BytesValue(append([]byte(nil), v...))
	case time.Time:
		return otellog.StringValue(v.UTC().Format(time.RFC3339Nano))
	case time.Duration:
		return otellog.StringValue(v.String())
	case error:
		return otellog.StringValue(v.Error())
	case fmt.Stringer:
		return otellog.StringValue(v.String())
	}

	encoded, err := sonic.ConfigStd.MarshalToString(value)
	if err != nil {
		return otellog.StringValue(fmt.Sprint(value))
	}
	return otellog.StringValue(encoded)
}
