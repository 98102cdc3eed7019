package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/webassets"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal        metric.Int64Counter
	BuildErrorsTotal   metric.Int64Counter
	BuildWarningsTotal metric.Int64Counter
	BuildDuration      metric.Float64Histogram

	// Output metrics
	OutputFilesTotal metric.Int64Counter
	OutputBytes      metric.Int64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for build spans.
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"webassets.builds.total",
		metric.WithDescription("Total number of builds, including rebuilds in watch mode"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"webassets.builds.errors.total",
		metric.WithDescription("Total number of errors reported by builds"),
		metric.WithUnit("{error}"),
	)

	m.BuildWarningsTotal, _ = meter.Int64Counter(
		"webassets.builds.warnings.total",
		metric.WithDescription("Total number of warnings reported by builds"),
		metric.WithUnit("{warning}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"webassets.builds.duration",
		metric.WithDescription("Duration of builds"),
		metric.WithUnit("ms"),
	)

	m.OutputFilesTotal, _ = meter.Int64Counter(
		"webassets.outputs.total",
		metric.WithDescription("Total number of output files written"),
		metric.WithUnit("{file}"),
	)

	m.OutputBytes, _ = meter.Int64Histogram(
		"webassets.outputs.bytes",
		metric.WithDescription("Size of output files"),
		metric.WithUnit("By"),
	)

	return m
}
