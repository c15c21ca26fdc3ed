// Package telemetry provides the logging, tracing, and metrics seams shared
// by every component of the cognitive pipeline. cmd/assistant and
// cmd/proactive-worker wire the zerolog logger; the OTel-backed Tracer and
// Metrics adapters defined here are not wired by either command. Everything
// below this package depends only on the narrow interfaces, never on
// zerolog or otel types directly.
package telemetry

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the minimal structured-logging interface satisfied by zerolog
// (and by the no-op implementation used in tests).
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
}

// Metrics is the minimal observability-counters interface. Implementations
// may forward to OTel, Prometheus, or nowhere at all (NoopMetrics).
type Metrics interface {
	IncCounter(name string, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
}

// Clock abstracts time so orchestrator/state tests can control expiry.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NoopMetrics implements Metrics without side effects, for tests and for
// deployments that run without a metrics backend configured.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, map[string]string)                {}
func (NoopMetrics) ObserveHistogram(string, float64, map[string]string) {}

// ZerologLogger adapts zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	base zerolog.Logger
}

// NewZerologLogger builds a JSON logger writing to stdout at the given level.
func NewZerologLogger(levelName string) *ZerologLogger {
	lvl, err := zerolog.ParseLevel(levelName)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	base := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	return &ZerologLogger{base: base}
}

func (l *ZerologLogger) Info(msg string, fields map[string]any) {
	l.base.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields map[string]any) {
	l.base.Error().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Debug(msg string, fields map[string]any) {
	l.base.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, fields map[string]any) {
	l.base.Warn().Fields(fields).Msg(msg)
}

// NoopLogger discards everything; used in unit tests that don't assert on
// log output.
type NoopLogger struct{}

func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Warn(string, map[string]any)  {}

// OtelMetrics adapts an OTel meter into the Metrics interface, lazily
// creating instruments by name on first use.
type OtelMetrics struct {
	meter      metric.Meter
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOtelMetrics constructs an OtelMetrics backed by the given meter.
func NewOtelMetrics(meter metric.Meter) *OtelMetrics {
	return &OtelMetrics{
		meter:      meter,
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (m *OtelMetrics) IncCounter(name string, labels map[string]string) {
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Float64Counter(name)
		if err != nil {
			return
		}
		m.counters[name] = c
	}
	c.Add(context.Background(), 1, metric.WithAttributes(attrsFromLabels(labels)...))
}

func (m *OtelMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {
	h, ok := m.histograms[name]
	if !ok {
		var err error
		h, err = m.meter.Float64Histogram(name)
		if err != nil {
			return
		}
		m.histograms[name] = h
	}
	h.Record(context.Background(), value, metric.WithAttributes(attrsFromLabels(labels)...))
}

// Tracer exposes a narrow span-starting seam so components don't import
// go.opentelemetry.io/otel/trace directly.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, func())
}

// OtelTracer adapts trace.Tracer into the Tracer interface.
type OtelTracer struct {
	tracer trace.Tracer
}

func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}

// NoopTracer implements Tracer without creating real spans.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, func()) {
	return ctx, func() {}
}
