// Package telemetry defines the small logging/metrics/tracing interfaces
// consumed throughout this module, with Clue/OpenTelemetry-backed and
// no-op implementations selectable via functional options (a nil
// implementation passed to agent/orchestrator constructors defaults to
// the no-op variant).
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the runtime.
// Implementations typically delegate to Clue, but the interface is
// intentionally small so tests can provide lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for runtime
// instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so runtime code can remain agnostic of
// the underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// Provider bundles the three telemetry surfaces an agent or orchestrator
// needs. Use NewNoopProvider for tests and NewClueProvider in production.
type Provider struct {
	Logger  Logger
	Metrics Metrics
	Tracer  Tracer
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger overrides the provider's Logger.
func WithLogger(l Logger) Option { return func(p *Provider) { p.Logger = l } }

// WithMetrics overrides the provider's Metrics.
func WithMetrics(m Metrics) Option { return func(p *Provider) { p.Metrics = m } }

// WithTracer overrides the provider's Tracer.
func WithTracer(t Tracer) Option { return func(p *Provider) { p.Tracer = t } }

// NewNoopProvider returns a Provider whose every surface discards its
// input, optionally overridden per-surface via opts.
func NewNoopProvider(opts ...Option) *Provider {
	p := &Provider{Logger: NewNoopLogger(), Metrics: NewNoopMetrics(), Tracer: NewNoopTracer()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewClueProvider returns a Provider backed by goa.design/clue and
// OpenTelemetry, optionally overridden per-surface via opts.
func NewClueProvider(opts ...Option) *Provider {
	p := &Provider{Logger: NewClueLogger(), Metrics: NewClueMetrics(), Tracer: NewClueTracer()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
