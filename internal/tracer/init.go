package tracer

import (
	"context"

	"ai-pdfchat-client/internal/config"
	"ai-pdfchat-client/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const logModule = "Tracer"

// Shutdown flushes buffered spans.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// InitTracer exports spans of serviceName over OTLP/HTTP when tracing is
// enabled in cfg. Otherwise the global no-op provider stays in place and the
// returned Shutdown does nothing.
func InitTracer(serviceName string, cfg config.AppConfig, log logger.ILogger) Shutdown {
	if !cfg.OtelEnabled {
		log.Debug(logModule, "Tracing disabled", map[string]interface{}{"service": serviceName})
		return noop
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.OtelEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn(logModule, "OTLP exporter unavailable, tracing disabled", map[string]interface{}{
			"endpoint": cfg.OtelEndpoint,
			"error":    err.Error(),
		})
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Info(logModule, "Tracing enabled", map[string]interface{}{
		"endpoint": cfg.OtelEndpoint,
		"service":  serviceName,
	})
	return tp.Shutdown
}
