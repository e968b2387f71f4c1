package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "hospital-booking"

// Metrics holds the engine's instruments. Without an installed SDK the
// global providers are no-ops and recording costs nothing.
type Metrics struct {
	AllocationCount    metric.Int64Counter
	AllocationDuration metric.Float64Histogram
	CacheHitCount      metric.Int64Counter
	CacheMissCount     metric.Int64Counter
}

// InitMetrics registers the instruments on the global meter provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	allocationCount, err := meter.Int64Counter(
		"allocation.operations",
		metric.WithDescription("Inventory operations by kind and outcome"),
	)
	if err != nil {
		return nil, err
	}

	allocationDuration, err := meter.Float64Histogram(
		"allocation.duration",
		metric.WithDescription("Inventory operation latency including lock wait and retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"query.cache.hit.count",
		metric.WithDescription("Availability and utilization reads served from cache"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"query.cache.miss.count",
		metric.WithDescription("Availability and utilization reads that hit storage"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AllocationCount:    allocationCount,
		AllocationDuration: allocationDuration,
		CacheHitCount:      cacheHitCount,
		CacheMissCount:     cacheMissCount,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// RecordAllocation records one engine operation.
func (m *Metrics) RecordAllocation(ctx context.Context, op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("allocation.op", op),
		attribute.String("allocation.outcome", outcome),
	)
	m.AllocationCount.Add(ctx, 1, attrs)
	m.AllocationDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *Metrics) RecordCacheHit(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.kind", kind)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.kind", kind)))
}
