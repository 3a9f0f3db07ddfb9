package cache

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exposes cache metric instruments. With no meter provider installed
// the global otel provider is a no-op.
type Metrics struct {
	Hits        metric.Int64Counter
	Misses      metric.Int64Counter
	StoreErrors metric.Int64Counter
	Rejected    metric.Int64Counter
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
	metricsErr      error
)

// GetMetrics lazily creates the instruments once per process.
func GetMetrics() (*Metrics, error) {
	metricsOnce.Do(func() {
		metricsInstance, metricsErr = newMetrics()
	})
	return metricsInstance, metricsErr
}

func newMetrics() (*Metrics, error) {
	meter := otel.GetMeterProvider().Meter(
		"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	m := &Metrics{}
	var err error
	if m.Hits, err = meter.Int64Counter("garage_cache_hits_total",
		metric.WithDescription("Response cache hits by layer"),
		metric.WithUnit("{hit}")); err != nil {
		return nil, fmt.Errorf("garage_cache_hits_total: %w", err)
	}
	if m.Misses, err = meter.Int64Counter("garage_cache_misses_total",
		metric.WithDescription("Response cache misses"),
		metric.WithUnit("{miss}")); err != nil {
		return nil, fmt.Errorf("garage_cache_misses_total: %w", err)
	}
	if m.StoreErrors, err = meter.Int64Counter("garage_cache_store_errors_total",
		metric.WithDescription("Persistent layer faults"),
		metric.WithUnit("{error}")); err != nil {
		return nil, fmt.Errorf("garage_cache_store_errors_total: %w", err)
	}
	if m.Rejected, err = meter.Int64Counter("garage_cache_stale_fills_total",
		metric.WithDescription("Fills dropped because a newer fill or an invalidation won"),
		metric.WithUnit("{fill}")); err != nil {
		return nil, fmt.Errorf("garage_cache_stale_fills_total: %w", err)
	}
	return m, nil
}

var (
	attrLayer = attribute.Key("layer")
	attrOp    = attribute.Key("operation")
	attrRes   = attribute.Key("resource")
)

func (m *Metrics) hit(ctx context.Context, layer string, r Resource) {
	if m == nil {
		return
	}
	m.Hits.Add(ctx, 1, metric.WithAttributes(attrLayer.String(layer), attrRes.String(string(r))))
}

func (m *Metrics) miss(ctx context.Context, r Resource) {
	if m == nil {
		return
	}
	m.Misses.Add(ctx, 1, metric.WithAttributes(attrRes.String(string(r))))
}

func (m *Metrics) storeError(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attrOp.String(op)))
}

func (m *Metrics) rejected(ctx context.Context, r Resource) {
	if m == nil {
		return
	}
	m.Rejected.Add(ctx, 1, metric.WithAttributes(attrRes.String(string(r))))
}
