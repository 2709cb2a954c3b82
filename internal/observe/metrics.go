// Package observe holds the OpenTelemetry instruments used by narration and
// the remote clip sources. Instruments are recorded through the global
// providers unless a caller builds its own Metrics with NewMetrics.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/dgnsrekt/narrator"

// Metrics holds the narration instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// StepsStarted counts steps whose audio handle was acquired.
	// Attributes: language.
	StepsStarted metric.Int64Counter

	// AcquisitionFailures counts steps whose handle could not be acquired or
	// failed mid-playback. Attributes: language.
	AcquisitionFailures metric.Int64Counter

	// ActiveSessions tracks sessions that have ducked the ambient track and
	// not yet released it.
	ActiveSessions metric.Int64UpDownCounter

	// ClipFetchDuration tracks remote clip fetch latency.
	// Attributes: source, status.
	ClipFetchDuration metric.Float64Histogram

	// ClipCacheHits counts clips served without a fetch.
	ClipCacheHits metric.Int64Counter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	var err error
	met := &Metrics{}

	if met.StepsStarted, err = m.Int64Counter("narrator.steps.started",
		metric.WithDescription("Narration steps that began playing."),
	); err != nil {
		return nil, err
	}
	if met.AcquisitionFailures, err = m.Int64Counter("narrator.playback.failures",
		metric.WithDescription("Steps whose playback could not be acquired or failed."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("narrator.sessions.active",
		metric.WithDescription("Narration sessions currently holding the output."),
	); err != nil {
		return nil, err
	}
	if met.ClipFetchDuration, err = m.Float64Histogram("narrator.clip.fetch.duration",
		metric.WithDescription("Latency of remote text-to-speech clip fetches."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ClipCacheHits, err = m.Int64Counter("narrator.clip.cache.hits",
		metric.WithDescription("Clips served from the clip cache."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics built on the global meter
// provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// StepStarted records one acquired step.
func (m *Metrics) StepStarted(ctx context.Context, language string) {
	if m == nil {
		return
	}
	m.StepsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("language", language)))
}

// AcquisitionFailed records one failed step.
func (m *Metrics) AcquisitionFailed(ctx context.Context, language string) {
	if m == nil {
		return
	}
	m.AcquisitionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("language", language)))
}

// SessionActive moves the active session gauge by delta.
func (m *Metrics) SessionActive(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}

// ClipFetched records a fetch latency in seconds.
func (m *Metrics) ClipFetched(ctx context.Context, source string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ClipFetchDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	))
}

// ClipCacheHit records one cache hit.
func (m *Metrics) ClipCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.ClipCacheHits.Add(ctx, 1)
}

// StartSpan starts a span on the global tracer provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, name, opts...)
}
