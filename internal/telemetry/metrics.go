package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// Metrics holds the checkout domain counters. A nil *Metrics is valid
// and records nothing, so callers never branch on instrumentation.
type Metrics struct {
	ordersPlaced        metric.Int64Counter
	reservationFailures metric.Int64Counter
	paymentsVerified    metric.Int64Counter
	ordersReconciled    metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("checkout")

	ordersPlaced, err := meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders successfully placed"))
	if err != nil {
		return nil, err
	}

	reservationFailures, err := meter.Int64Counter("checkout.reservations.failed",
		metric.WithDescription("Holds rejected or rolled back"))
	if err != nil {
		return nil, err
	}

	paymentsVerified, err := meter.Int64Counter("checkout.payments.verified",
		metric.WithDescription("Provider callbacks applied"))
	if err != nil {
		return nil, err
	}

	ordersReconciled, err := meter.Int64Counter("checkout.orders.reconciled",
		metric.WithDescription("Orders cancelled by expiry reconciliation"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersPlaced:        ordersPlaced,
		reservationFailures: reservationFailures,
		paymentsVerified:    paymentsVerified,
		ordersReconciled:    ordersReconciled,
	}, nil
}

func (m *Metrics) OrderPlaced(ctx context.Context, paymentMethod string) {
	if m == nil {
		return
	}
	m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", paymentMethod)))
}

func (m *Metrics) ReservationFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.reservationFailures.Add(ctx, 1)
}

func (m *Metrics) PaymentVerified(ctx context.Context) {
	if m == nil {
		return
	}
	m.paymentsVerified.Add(ctx, 1)
}

func (m *Metrics) OrderReconciled(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersReconciled.Add(ctx, 1)
}
