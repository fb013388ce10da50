package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"iapdcli/internal/config"
	"iapdcli/pkg/contracts"
)

const (
	ServiceName = "iapdcsv"
	TracerName  = "iapdcli"
)

// Telemetry holds the tracer and metrics used during one batch run
type Telemetry struct {
	Tracer  trace.Tracer
	Metrics *BatchMetrics

	provider    *sdktrace.TracerProvider
	traceFile   *os.File
	metricsFile string
	logger      *slog.Logger
}

// InitializeTelemetry sets up span export and the metrics registry
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}

	t := &Telemetry{
		Tracer:      noop.NewTracerProvider().Tracer(TracerName),
		Metrics:     NewBatchMetrics(),
		metricsFile: cfg.MetricsFile,
		logger:      logger,
	}

	switch cfg.TraceExporter {
	case "stdout":
		if err := t.initializeTracing(cfg.TraceFile); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	case "none", "":
		// No exporter - tracing disabled
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	logger.Debug("Telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metrics_file", cfg.MetricsFile))

	return t, nil
}

// initializeTracing exports spans as JSON lines into traceFile
func (t *Telemetry) initializeTracing(traceFile string) error {
	if err := os.MkdirAll(filepath.Dir(traceFile), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	f, err := os.OpenFile(traceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(contracts.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	t.provider = tp
	t.traceFile = f
	t.Tracer = tp.Tracer(TracerName, trace.WithInstrumentationVersion(contracts.Version))
	return nil
}

// Shutdown flushes spans and writes the metrics textfile if configured
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var firstErr error

	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("failed to shut down tracer provider: %w", err)
		}
		if err := t.traceFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close trace file: %w", err)
		}
	}

	if t.metricsFile != "" {
		if err := t.Metrics.WriteTextfile(t.metricsFile); err != nil && firstErr == nil {
			firstErr = err
		} else if err == nil {
			t.logger.Debug("Metrics written", slog.String("path", t.metricsFile))
		}
	}

	return firstErr
}
