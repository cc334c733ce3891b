package cache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/goliatone/go-query-cache/cache"

// Metric names recorded by Store.
const (
	MetricHits        = "querycache.cache.hits"
	MetricMisses      = "querycache.cache.misses"
	MetricStoreErrors = "querycache.cache.store_errors"
)

type instruments struct {
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	storeErrors metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) *instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	inst := &instruments{}
	// Instrument creation only fails on invalid names; a nil counter is skipped.
	inst.hits, _ = meter.Int64Counter(MetricHits, metric.WithDescription("Cache lookups served from the store"))
	inst.misses, _ = meter.Int64Counter(MetricMisses, metric.WithDescription("Cache lookups that ran the fetch function"))
	inst.storeErrors, _ = meter.Int64Counter(MetricStoreErrors, metric.WithDescription("Driver failures during get or put"))
	return inst
}

func (i *instruments) add(ctx context.Context, counter metric.Int64Counter, tagged bool) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cache.tagged", tagged)))
}
