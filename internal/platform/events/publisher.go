package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// OrderPlacedEvent is the event type attached to every published order.
const OrderPlacedEvent = "storefront.order.placed.v1"

// OrderPublisher delivers placed orders to a downstream sink.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, order domain.Order) error
}

// Closer is implemented by publishers holding network resources.
type Closer interface {
	Close() error
}

// Pinger is implemented by sinks that can report broker reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LogPublisher writes orders to the structured log. It is the default sink.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher builds a LogPublisher. A nil logger discards output.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger.Named("orders")}
}

// PublishOrder logs the order record.
func (p *LogPublisher) PublishOrder(_ context.Context, order domain.Order) error {
	couponCode := ""
	if order.Coupon != nil {
		couponCode = order.Coupon.Code
	}
	p.logger.Info("order placed",
		zap.String("event", OrderPlacedEvent),
		zap.String("order_id", order.ID),
		zap.Int("lines", len(order.Items)),
		zap.String("subtotal", order.Subtotal),
		zap.String("discount", order.Discount),
		zap.String("total", order.Total),
		zap.String("coupon", couponCode),
		zap.String("payment_method", order.PaymentMethod),
		zap.String("timestamp", order.Timestamp),
		zap.Any("items", order.Items),
	)
	return nil
}

// MultiPublisher fans an order out to every sink. All sinks are attempted; failures are joined.
type MultiPublisher struct {
	sinks []namedPublisher
}

type namedPublisher struct {
	name string
	pub  OrderPublisher
}

// NewMultiPublisher creates an empty fan-out publisher.
func NewMultiPublisher() *MultiPublisher {
	return &MultiPublisher{}
}

// Add registers a sink under name.
func (m *MultiPublisher) Add(name string, pub OrderPublisher) *MultiPublisher {
	if pub != nil {
		m.sinks = append(m.sinks, namedPublisher{name: name, pub: pub})
	}
	return m
}

// Len reports the number of registered sinks.
func (m *MultiPublisher) Len() int { return len(m.sinks) }

// PublishOrder delivers order to each sink in registration order.
func (m *MultiPublisher) PublishOrder(ctx context.Context, order domain.Order) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.pub.PublishOrder(ctx, order); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiPublisher) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.pub.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s sink: %w", s.name, err))
			}
		}
	}
	return errors.Join(errs...)
}
