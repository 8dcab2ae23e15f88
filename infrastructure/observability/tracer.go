// Package observability provides OpenTelemetry tracing for pipeline runs.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const tracerName = "groundwork"

// Exporter selects how spans leave the process.
type Exporter string

const (
	// ExporterStdout writes spans to the configured writer.
	ExporterStdout Exporter = "stdout"

	// ExporterOTLP ships spans to an OTLP collector over gRPC.
	ExporterOTLP Exporter = "otlp"
)

// Config configures the tracing provider.
type Config struct {
	// ServiceName identifies the pipeline in exported spans.
	ServiceName string

	// ServiceVersion is the pipeline version.
	ServiceVersion string

	// Enabled turns span export on. When false all spans are no-ops.
	Enabled bool

	// Exporter selects the span destination. Defaults to stdout.
	Exporter Exporter

	// Endpoint is the OTLP collector address (host:port).
	Endpoint string

	// Insecure disables transport security for the OTLP connection.
	Insecure bool

	// Writer receives exported spans. Defaults to os.Stdout.
	Writer io.Writer

	// PrettyPrint formats exported spans for human reading.
	PrettyPrint bool
}

// DefaultConfig returns a disabled tracing configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "groundwork",
		ServiceVersion: "dev",
	}
}

// Provider manages the tracer lifecycle.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// New creates a tracing provider. When tracing is disabled the
// returned provider produces no-op spans.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(tracerName)}, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tracerProvider: tp,
		tracer:         tp.Tracer(tracerName),
	}, nil
}

// newExporter builds the span exporter selected by the configuration.
func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts,
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
				otlptracegrpc.WithInsecure(),
			)
		}
		return otlptracegrpc.New(context.Background(), opts...)

	case ExporterStdout, "":
		opts := []stdouttrace.Option{}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		} else {
			opts = append(opts, stdouttrace.WithWriter(os.Stdout))
		}
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)

	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// StartRun opens the root span for a pipeline run.
func (p *Provider) StartRun(ctx context.Context, runID, userTask string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.task", userTask),
		),
	)
}

// StartStage opens a span for a single pipeline stage.
func (p *Provider) StartStage(ctx context.Context, stage, runID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "pipeline.stage."+stage,
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage", stage),
		),
	)
}

// EndStage records the stage outcome on the span and ends it.
func EndStage(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
