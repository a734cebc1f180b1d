package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records transition and dispatch outcomes through an OTel
// meter exported to Prometheus.
type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	transitionCount  otelmetric.Int64Counter
	transitionLapse  otelmetric.Float64Histogram
	dispatchOutcomes otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	transitionCount, _ := meter.Int64Counter(
		"transitions.processed",
		otelmetric.WithDescription("Number of lifecycle transitions processed"),
	)

	transitionLapse, _ := meter.Float64Histogram(
		"transitions.duration",
		otelmetric.WithDescription("Transition processing duration"),
		otelmetric.WithUnit("ms"),
	)

	dispatchOutcomes, _ := meter.Int64Counter(
		"notifications.dispatched",
		otelmetric.WithDescription("Number of notification intents dispatched"),
	)

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		transitionCount:  transitionCount,
		transitionLapse:  transitionLapse,
		dispatchOutcomes: dispatchOutcomes,
	}
}

func (o *Observability) RecordTransition(ctx context.Context, action, status string) {
	if o.transitionCount != nil {
		o.transitionCount.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordTransitionDuration(ctx context.Context, duration time.Duration, action string) {
	if o.transitionLapse != nil {
		o.transitionLapse.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("action", action),
		))
	}
}

func (o *Observability) RecordDispatch(ctx context.Context, kind, outcome string) {
	if o.dispatchOutcomes != nil {
		o.dispatchOutcomes.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
