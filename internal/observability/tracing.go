package observability

import (
	"context"
	"strings"

	"github.com/stackspendlabs/stackspend/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SetupTracing installs the global tracer provider. With no OTLP endpoint
// configured spans are still created (otelgorm instruments queries) but never
// exported.
func SetupTracing(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("stackspend"),
	))
	if err != nil {
		return err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	endpoint := strings.TrimSpace(cfg.Telemetry.OTLPEndpoint)
	if endpoint != "" {
		exporter, err := newExporter(context.Background(), cfg)
		if err != nil {
			return err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		log.Info("trace export enabled",
			zap.String("endpoint", endpoint),
			zap.String("protocol", cfg.Telemetry.OTLPProtocol),
		)
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	return nil
}

func newExporter(ctx context.Context, cfg config.Config) (sdktrace.SpanExporter, error) {
	if strings.EqualFold(cfg.Telemetry.OTLPProtocol, "http") {
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
}
