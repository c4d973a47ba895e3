package airquality

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/breatheroute/whoair/internal/airquality"

// LoadMetrics holds metrics for dataset loads.
type LoadMetrics struct {
	loadDuration metric.Float64Histogram
	loadTotal    metric.Int64Counter
	records      metric.Int64Gauge
}

// NewLoadMetrics creates the dataset load instruments on the global meter provider.
func NewLoadMetrics() (*LoadMetrics, error) {
	meter := otel.Meter(meterName)

	loadDuration, err := meter.Float64Histogram(
		"dataset.load.duration",
		metric.WithDescription("Duration of dataset loads in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	loadTotal, err := meter.Int64Counter(
		"dataset.load.total",
		metric.WithDescription("Total number of dataset loads"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Gauge(
		"dataset.records",
		metric.WithDescription("Number of records in the last loaded dataset"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &LoadMetrics{
		loadDuration: loadDuration,
		loadTotal:    loadTotal,
		records:      records,
	}, nil
}

// RecordLoad records a dataset load attempt.
func (m *LoadMetrics) RecordLoad(ctx context.Context, source string, duration time.Duration, records int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("dataset.source", source),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	m.loadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.loadTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err == nil {
		m.records.Record(ctx, int64(records), metric.WithAttributes(attrs...))
	}
}
