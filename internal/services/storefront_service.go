package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/catalog"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/events"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/observability"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/requestctx"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/storefront"
)

const defaultSinkTimeout = 5 * time.Second

var (
	errStorefrontCatalogRequired = errors.New("storefront service: catalog is required")
	errStorefrontStoreRequired   = errors.New("storefront service: session store is required")
)

// ErrSessionRequired indicates the caller has no shopper session.
var ErrSessionRequired = errors.New("storefront service: session is required")

// ErrActionRequired indicates a nil action was dispatched.
var ErrActionRequired = errors.New("storefront service: action is required")

// StorefrontService drives a shopper's storefront session.
type StorefrontService interface {
	View(ctx context.Context, sessionID string) (View, error)
	Dispatch(ctx context.Context, sessionID string, action storefront.Action) (View, storefront.Result, error)
	TakeNotice(ctx context.Context, sessionID string) string
	Browse(ctx context.Context, filter domain.FilterState) []domain.Product
	Categories(ctx context.Context) []domain.Category
}

// StorefrontServiceDeps wires the storefront service collaborators.
type StorefrontServiceDeps struct {
	Catalog     *catalog.Catalog
	Sessions    *SessionStore
	Orders      events.OrderPublisher
	Metrics     *observability.StorefrontMetrics
	Logger      *zap.Logger
	Clock       func() time.Time
	IDGenerator func() string
	SinkTimeout time.Duration
}

type storefrontService struct {
	catalog     *catalog.Catalog
	reducer     *storefront.Reducer
	sessions    *SessionStore
	orders      events.OrderPublisher
	metrics     *observability.StorefrontMetrics
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
	sinkTimeout time.Duration
}

// NewStorefrontService constructs a StorefrontService enforcing dependency validation.
func NewStorefrontService(deps StorefrontServiceDeps) (StorefrontService, error) {
	if deps.Catalog == nil {
		return nil, errStorefrontCatalogRequired
	}
	if deps.Sessions == nil {
		return nil, errStorefrontStoreRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	orders := deps.Orders
	if orders == nil {
		orders = events.NewLogPublisher(logger)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NoopStorefrontMetrics()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	timeout := deps.SinkTimeout
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}

	return &storefrontService{
		catalog:     deps.Catalog,
		reducer:     storefront.NewReducer(deps.Catalog),
		sessions:    deps.Sessions,
		orders:      orders,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return clock().UTC() },
		newID:       idGen,
		sinkTimeout: timeout,
	}, nil
}

func (s *storefrontService) View(ctx context.Context, sessionID string) (View, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return View{}, ErrSessionRequired
	}
	return BuildView(s.catalog, s.sessions.Load(sessionID)), nil
}

func (s *storefrontService) Dispatch(ctx context.Context, sessionID string, action storefront.Action) (View, storefront.Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return View{}, storefront.Result{}, ErrSessionRequired
	}
	if action == nil {
		return View{}, storefront.Result{}, ErrActionRequired
	}
	if place, ok := action.(storefront.PlaceOrder); ok {
		if place.OrderID == "" {
			place.OrderID = s.newID()
		}
		if place.At.IsZero() {
			place.At = s.now()
		}
		action = place
	}

	var result storefront.Result
	state := s.sessions.Update(sessionID, func(current storefront.State) (storefront.State, string) {
		var next storefront.State
		next, result = s.reducer.Reduce(current, action)
		return next, result.Notice()
	})

	s.record(ctx, action, result)
	if result.Kind == storefront.ResultOrderPlaced && result.Order != nil {
		s.publish(ctx, *result.Order)
	}
	return BuildView(s.catalog, state), result, nil
}

func (s *storefrontService) TakeNotice(_ context.Context, sessionID string) string {
	return s.sessions.TakeNotice(strings.TrimSpace(sessionID))
}

func (s *storefrontService) Browse(_ context.Context, filter domain.FilterState) []domain.Product {
	return s.catalog.Apply(filter)
}

func (s *storefrontService) Categories(_ context.Context) []domain.Category {
	return s.catalog.Categories()
}

func (s *storefrontService) record(ctx context.Context, action storefront.Action, result storefront.Result) {
	logger := s.loggerFor(ctx)
	switch result.Kind {
	case storefront.ResultCouponApplied:
		s.metrics.CouponApplied(ctx, result.Code)
		logger.Info("coupon applied", zap.String("coupon", result.Code))
	case storefront.ResultCouponInvalid:
		s.metrics.CouponInvalid(ctx)
		logger.Info("coupon rejected")
	case storefront.ResultOrderPlaced:
		coupon := ""
		if result.Order.Coupon != nil {
			coupon = result.Order.Coupon.Code
		}
		s.metrics.OrderPlaced(ctx, result.OrderTotal, coupon)
		logger.Info("order placed", zap.String("order_id", result.Order.ID), zap.String("total", result.Order.Total))
	case storefront.ResultNone:
		logger.Debug("storefront action", zap.String("action", storefront.ActionName(action)))
	default:
		logger.Info("storefront action rejected",
			zap.String("action", storefront.ActionName(action)),
			zap.String("result", string(result.Kind)),
		)
	}
}

// publish hands the order to the sinks. It runs detached from request cancellation with its own
// timeout; failures are logged and never undo the checkout.
func (s *storefrontService) publish(ctx context.Context, order domain.Order) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkTimeout)
	defer cancel()
	if err := s.orders.PublishOrder(pubCtx, order); err != nil {
		s.loggerFor(ctx).Error("order sink failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *storefrontService) loggerFor(ctx context.Context) *zap.Logger {
	if logger := requestctx.Logger(ctx); logger != requestctx.NoopLogger() {
		return logger
	}
	return s.logger
}
