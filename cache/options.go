package cache

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	prefix        string
	logger        *slog.Logger
	meterProvider metric.MeterProvider
}

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
	}
}

// WithPrefix namespaces every key written by the store as "{prefix}:{key}".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLogger sets the logger used for hit/miss and backend failure records.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}
