package logger

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/log"
)

// otelLogger emits every entry as an OpenTelemetry log record.
type otelLogger struct {
	ctx        context.Context
	prefixes   []string
	metadata   map[string]log.Value
	logLevel   LogLevel
	otelLogger log.Logger
	child      Logger
}

var _ Logger = (*otelLogger)(nil)

func (o *otelLogger) clone() *otelLogger {
	metadata := make(map[string]log.Value, len(o.metadata))
	for k, v := range o.metadata {
		metadata[k] = v
	}
	return &otelLogger{
		ctx:        o.ctx,
		prefixes:   slices.Clone(o.prefixes),
		metadata:   metadata,
		logLevel:   o.logLevel,
		otelLogger: o.otelLogger,
		child:      o.child,
	}
}

func (o *otelLogger) WithPrefix(prefix string) Logger {
	l := o.clone()
	if !slices.Contains(l.prefixes, prefix) {
		l.prefixes = append(l.prefixes, prefix)
	}
	if l.child != nil {
		l.child = l.child.WithPrefix(prefix)
	}
	return l
}

// WithContext ties emitted records to ctx, so they carry its span.
func (o *otelLogger) WithContext(ctx context.Context) Logger {
	l := o.clone()
	l.ctx = ctx
	if l.child != nil {
		l.child = l.child.WithContext(ctx)
	}
	return l
}

func toLogValue(unknown interface{}) log.Value {
	switch v := unknown.(type) {
	case string:
		return log.StringValue(v)
	case int:
		return log.IntValue(v)
	case int64:
		return log.Int64Value(v)
	case bool:
		return log.BoolValue(v)
	case float64:
		return log.Float64Value(v)
	case time.Duration:
		return log.StringValue(v.String())
	case []byte:
		return log.BytesValue(v)
	case []string:
		values := make([]log.Value, len(v))
		for i, s := range v {
			values[i] = log.StringValue(s)
		}
		return log.SliceValue(values...)
	case []interface{}:
		values := make([]log.Value, len(v))
		for i, item := range v {
			values[i] = toLogValue(item)
		}
		return log.SliceValue(values...)
	case map[string]interface{}:
		values := make([]log.KeyValue, 0, len(v))
		for key, val := range v {
			values = append(values, log.KeyValue{Key: key, Value: toLogValue(val)})
		}
		return log.MapValue(values...)
	default:
		return log.StringValue(fmt.Sprintf("%v", v))
	}
}

func (o *otelLogger) With(metadata map[string]interface{}) Logger {
	l := o.clone()
	for k, v := range metadata {
		l.metadata[k] = toLogValue(v)
	}
	if l.child != nil {
		l.child = l.child.With(metadata)
	}
	return l
}

func (o *otelLogger) log(level LogLevel, severity log.Severity, msg string, args ...interface{}) {
	if level < o.logLevel {
		return
	}
	body := fmt.Sprintf(msg, args...)
	if len(o.prefixes) > 0 {
		body = strings.Join(o.prefixes, " ") + " " + body
	}
	now := time.Now()

	var record log.Record
	record.SetBody(log.StringValue(body))
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	for k, v := range o.metadata {
		record.AddAttributes(log.KeyValue{Key: k, Value: v})
	}

	ctx := o.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	o.otelLogger.Emit(ctx, record)
}

func (o *otelLogger) Trace(msg string, args ...interface{}) {
	o.log(LevelTrace, log.SeverityTrace, msg, args...)
	if o.child != nil {
		o.child.Trace(msg, args...)
	}
}

func (o *otelLogger) Debug(msg string, args ...interface{}) {
	o.log(LevelDebug, log.SeverityDebug, msg, args...)
	if o.child != nil {
		o.child.Debug(msg, args...)
	}
}

func (o *otelLogger) Info(msg string, args ...interface{}) {
	o.log(LevelInfo, log.SeverityInfo, msg, args...)
	if o.child != nil {
		o.child.Info(msg, args...)
	}
}

func (o *otelLogger) Warn(msg string, args ...interface{}) {
	o.log(LevelWarn, log.SeverityWarn, msg, args...)
	if o.child != nil {
		o.child.Warn(msg, args...)
	}
}

func (o *otelLogger) Error(msg string, args ...interface{}) {
	o.log(LevelError, log.SeverityError, msg, args...)
	if o.child != nil {
		o.child.Error(msg, args...)
	}
}

func (o *otelLogger) Fatal(msg string, args ...interface{}) {
	o.log(LevelError, log.SeverityFatal, msg, args...)
	if o.child != nil {
		o.child.Error(msg, args...)
	}
	os.Exit(1)
}

func (o *otelLogger) Stack(next Logger) Logger {
	l := o.clone()
	l.child = next
	return l
}

// NewOtelLogger returns a Logger emitting records at level and above to l.
func NewOtelLogger(l log.Logger, level LogLevel) Logger {
	return &otelLogger{ctx: context.Background(), otelLogger: l, logLevel: level, metadata: map[string]log.Value{}}
}
