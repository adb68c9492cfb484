// Package telemetry installs the OpenTelemetry providers that export load
// spans and log records over OTLP/HTTP.
package telemetry

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/agentuity/go-caselaw/logger"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type ShutdownFunc func()

const exportTimeout = 10 * time.Second

func endpointURL(endpoint string, path string) (*url.URL, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing otlp endpoint")
	}
	u.Path = path
	return u, nil
}

// New exports spans and log records to the collector at endpoint and installs
// the tracer provider globally. The returned logger writes records at level
// and above to the collector and then to log. An empty endpoint returns log
// unchanged and leaves the global no-op provider in place.
func New(ctx context.Context, log logger.Logger, level logger.LogLevel, endpoint string, authToken string, serviceName string) (logger.Logger, ShutdownFunc, error) {
	if endpoint == "" {
		return log, func() {}, nil
	}
	tracesURL, err := endpointURL(endpoint, "/v1/traces")
	if err != nil {
		return nil, nil, err
	}
	logsURL, err := endpointURL(endpoint, "/v1/logs")
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		log.Warn("incomplete telemetry resource: %s", err)
	} else if err != nil {
		return nil, nil, errors.Wrap(err, "error creating resource")
	}

	headers := make(map[string]string)
	if authToken != "" {
		headers["Authorization"] = "Bearer " + authToken
	}

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(tracesURL.String()),
		otlptracehttp.WithHeaders(headers),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if tracesURL.Scheme == "http" {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error creating trace exporter")
	}

	logOpts := []otlploghttp.Option{
		otlploghttp.WithEndpointURL(logsURL.String()),
		otlploghttp.WithHeaders(headers),
		otlploghttp.WithTimeout(exportTimeout),
		otlploghttp.WithCompression(otlploghttp.GzipCompression),
	}
	if logsURL.Scheme == "http" {
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}
	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error creating log exporter")
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	otelLog := logger.NewOtelLogger(loggerProvider.Logger(serviceName), level).Stack(log)
	log.Debug("exporting telemetry to %s", tracesURL.Host)

	return otelLog, func() {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Warn("error shutting down tracer provider: %s", err)
		}
		if err := loggerProvider.Shutdown(ctx); err != nil {
			log.Warn("error shutting down logger provider: %s", err)
		}
	}, nil
}
