// Package otel sets up OpenTelemetry providers and holds the instrument sets
// shared across hypedesk packages.
package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Config configures Init.
type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// Providers is the result of Init.
type Providers struct {
	Meter  metric.Meter
	Tracer trace.Tracer
	// LogHandler bridges slog to OTel logs. Nil when disabled.
	LogHandler slog.Handler

	shutdown []func(context.Context) error
}

// Shutdown flushes and stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		if err := p.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Init builds OTLP/gRPC meter, tracer and logger providers and installs them
// globally. When disabled it returns noop providers.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "hypedesk"
	}

	if !cfg.Enabled {
		return &Providers{
			Meter:  metricnoop.NewMeterProvider().Meter(name),
			Tracer: tracenoop.NewTracerProvider().Tracer(name),
		}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", name)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Providers{}

	// Metrics
	metricOpts := []otlpmetricgrpc.Option{}
	if cfg.Endpoint != "" {
		metricOpts = append(metricOpts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
	)
	p.shutdown = append(p.shutdown, mp.Shutdown)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		p.Shutdown(ctx)
		return nil, fmt.Errorf("start runtime instrumentation: %w", err)
	}

	// Traces
	traceOpts := []otlptracegrpc.Option{}
	if cfg.Endpoint != "" {
		traceOpts = append(traceOpts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
	}
	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		p.Shutdown(ctx)
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	p.shutdown = append(p.shutdown, tp.Shutdown)
	otel.SetTracerProvider(tp)

	// Logs
	logOpts := []otlploggrpc.Option{}
	if cfg.Endpoint != "" {
		logOpts = append(logOpts, otlploggrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}
	logExporter, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		p.Shutdown(ctx)
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	p.shutdown = append(p.shutdown, lp.Shutdown)
	global.SetLoggerProvider(lp)

	p.Meter = mp.Meter(name)
	p.Tracer = tp.Tracer(name)
	p.LogHandler = otelslog.NewHandler(name, otelslog.WithLoggerProvider(lp))
	return p, nil
}
