// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package telemetry bootstraps OpenTelemetry tracing and metrics for the CLI
// and records one span plus a few instruments per solve.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"

	scope = "github.com/curioloop/parallelqp"
)

// ErrUnknownExporter is returned for an exporter name other than none or stdout.
var ErrUnknownExporter = errors.New("unknown telemetry exporter")

type Config struct {
	ServiceName    string
	ServiceVersion string
	Traces         string    // none|stdout
	Metrics        string    // none|stdout
	Writer         io.Writer // destination of the stdout exporters, os.Stdout when nil
}

// Provider holds the tracer and the solve instruments.
type Provider struct {
	tracer     trace.Tracer
	solves     metric.Int64Counter
	iterations metric.Int64Histogram
	duration   metric.Float64Histogram

	shutdownFuncs []func(context.Context) error
}

// Init creates the providers selected by cfg and installs them globally.
// Shutdown flushes pending spans and metrics.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		return nil, errors.New("telemetry: nil context")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pqp"
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	p := new(Provider)

	var tp trace.TracerProvider = tracenoop.NewTracerProvider()
	switch cfg.Traces {
	case ExporterNone, "":
	case ExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		sdk := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		p.shutdownFuncs = append(p.shutdownFuncs, sdk.Shutdown)
		otel.SetTracerProvider(sdk)
		tp = sdk
	default:
		return nil, fmt.Errorf("%w: traces %q", ErrUnknownExporter, cfg.Traces)
	}

	var mp metric.MeterProvider = metricnoop.NewMeterProvider()
	switch cfg.Metrics {
	case ExporterNone, "":
	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Writer), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		sdk := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		)
		p.shutdownFuncs = append(p.shutdownFuncs, sdk.Shutdown)
		otel.SetMeterProvider(sdk)
		mp = sdk
	default:
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, cfg.Metrics)
	}

	p.tracer = tp.Tracer(scope)
	if err := p.initMetrics(mp.Meter(scope)); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return p, nil
}

func (p *Provider) initMetrics(meter metric.Meter) (err error) {
	p.solves, err = meter.Int64Counter(
		"pqp_solve_total",
		metric.WithDescription("Total number of solves"),
	)
	if err != nil {
		return
	}
	p.iterations, err = meter.Int64Histogram(
		"pqp_solve_iterations",
		metric.WithDescription("Iterations performed per solve"),
	)
	if err != nil {
		return
	}
	p.duration, err = meter.Float64Histogram(
		"pqp_solve_duration_seconds",
		metric.WithDescription("Duration of the fixpoint iteration"),
		metric.WithUnit("s"),
	)
	return
}

// Shutdown flushes and stops every exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdownFuncs = nil
	return errors.Join(errs...)
}

// SolveInfo describes a solve for its span.
type SolveInfo struct {
	N       int
	Split   string
	Workers int
	Async   bool
}

// Outcome is what a finished solve reports.
type Outcome struct {
	Status     string
	Iterations int
	Residual   float64
	Converged  bool
	Duration   time.Duration
	Err        error
}

// StartSolve opens the span wrapping one solve.
func (p *Provider) StartSolve(ctx context.Context, info SolveInfo) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "pqp.Solve",
		trace.WithAttributes(
			attribute.Int("pqp.n", info.N),
			attribute.String("pqp.split", info.Split),
			attribute.Int("pqp.workers", info.Workers),
			attribute.Bool("pqp.async", info.Async),
		),
	)
}

// EndSolve records the outcome on span and the instruments, then ends span.
func (p *Provider) EndSolve(ctx context.Context, span trace.Span, out Outcome) {
	defer span.End()

	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	} else {
		span.SetAttributes(
			attribute.String("pqp.status", out.Status),
			attribute.Int("pqp.iterations", out.Iterations),
			attribute.Float64("pqp.residual", out.Residual),
			attribute.Bool("pqp.converged", out.Converged),
		)
	}

	attrs := metric.WithAttributes(
		attribute.String("status", out.Status),
		attribute.Bool("success", out.Err == nil),
	)
	p.solves.Add(ctx, 1, attrs)
	if out.Err == nil {
		p.iterations.Record(ctx, int64(out.Iterations), attrs)
		p.duration.Record(ctx, out.Duration.Seconds(), attrs)
	}
}
