// Package telemetry wires OpenTelemetry metrics and traces for sprintdash.
//
// Telemetry is off by default and installs no-op providers. When enabled,
// spans and metrics go to stdout (telemetry.stdout) and/or metrics to an
// OTLP/HTTP endpoint (telemetry.endpoint).
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/tgienger/sprintdash"

// Options selects exporters
type Options struct {
	Enabled  bool
	Stdout   bool
	Endpoint string
	// Writer receives stdout exporter output; nil means os.Stdout
	Writer io.Writer
}

// Shutdown flushes and stops the providers installed by Init
type Shutdown func(context.Context) error

// Init installs global meter and tracer providers according to opts
func Init(ctx context.Context, opts Options) (Shutdown, error) {
	if !opts.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return func(context.Context) error { return nil }, nil
	}

	var shutdowns []Shutdown

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sdktrace.AlwaysSample())}
	if opts.Stdout {
		exp, err := stdouttrace.New(stdoutTraceOptions(opts)...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tp)
	shutdowns = append(shutdowns, tp.Shutdown)

	var meterOpts []sdkmetric.Option
	if opts.Stdout {
		exp, err := stdoutmetric.New(stdoutMetricOptions(opts)...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second)),
		))
	}
	if opts.Endpoint != "" {
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(opts.Endpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second)),
		))
	}
	mp := sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(mp)
	shutdowns = append(shutdowns, mp.Shutdown)

	return func(ctx context.Context) error {
		var firstErr error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}, nil
}

func stdoutTraceOptions(opts Options) []stdouttrace.Option {
	if opts.Writer == nil {
		return nil
	}
	return []stdouttrace.Option{stdouttrace.WithWriter(opts.Writer)}
}

func stdoutMetricOptions(opts Options) []stdoutmetric.Option {
	if opts.Writer == nil {
		return nil
	}
	return []stdoutmetric.Option{stdoutmetric.WithWriter(opts.Writer)}
}

// Tracer returns a tracer for the named component
func Tracer(name string) trace.Tracer {
	return otel.Tracer(instrumentationScope + "/" + name)
}

// Meter returns a meter for the named component
func Meter(name string) metric.Meter {
	return otel.Meter(instrumentationScope + "/" + name)
}

// Counter creates an int64 counter, falling back to a no-op counter if the
// provider rejects the instrument.
func Counter(m metric.Meter, name, description string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		c, _ = metricnoop.NewMeterProvider().Meter(instrumentationScope).Int64Counter(name)
	}
	return c
}
