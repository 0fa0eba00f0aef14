package observability

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// StorefrontMetrics bundles the instruments recorded by the storefront service.
type StorefrontMetrics struct {
	ordersPlaced   metric.Int64Counter
	couponsApplied metric.Int64Counter
	couponsInvalid metric.Int64Counter
	orderTotal     metric.Float64Histogram
}

// NewStorefrontMetrics registers the instruments on provider. A nil provider uses the global one.
func NewStorefrontMetrics(provider metric.MeterProvider) (*StorefrontMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	var (
		m   StorefrontMetrics
		err error
	)
	if m.ordersPlaced, err = meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders placed at checkout")); err != nil {
		return nil, err
	}
	if m.couponsApplied, err = meter.Int64Counter("storefront.coupons.applied",
		metric.WithDescription("Coupon codes accepted")); err != nil {
		return nil, err
	}
	if m.couponsInvalid, err = meter.Int64Counter("storefront.coupons.invalid",
		metric.WithDescription("Coupon codes rejected")); err != nil {
		return nil, err
	}
	if m.orderTotal, err = meter.Float64Histogram("storefront.order.total",
		metric.WithDescription("Order total amount"), metric.WithUnit("USD")); err != nil {
		return nil, err
	}
	return &m, nil
}

// NoopStorefrontMetrics returns instruments that record nothing.
func NoopStorefrontMetrics() *StorefrontMetrics {
	m, _ := NewStorefrontMetrics(noop.NewMeterProvider())
	return m
}

// OrderPlaced records a completed order.
func (m *StorefrontMetrics) OrderPlaced(ctx context.Context, total decimal.Decimal, coupon string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("coupon", coupon))
	m.ordersPlaced.Add(ctx, 1, attrs)
	m.orderTotal.Record(ctx, total.InexactFloat64(), attrs)
}

// CouponApplied records an accepted coupon code.
func (m *StorefrontMetrics) CouponApplied(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.couponsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("coupon", code)))
}

// CouponInvalid records a rejected coupon code. The code itself is user input and not recorded.
func (m *StorefrontMetrics) CouponInvalid(ctx context.Context) {
	if m == nil {
		return
	}
	m.couponsInvalid.Add(ctx, 1)
}
