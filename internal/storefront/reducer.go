package storefront

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/catalog"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// TimestampLayout renders order timestamps as ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Reducer applies actions to storefront state against a fixed catalog.
type Reducer struct {
	catalog *catalog.Catalog
}

// NewReducer binds a reducer to a catalog.
func NewReducer(cat *catalog.Catalog) *Reducer {
	return &Reducer{catalog: cat}
}

// Catalog exposes the catalog the reducer resolves product ids against.
func (r *Reducer) Catalog() *catalog.Catalog { return r.catalog }

// Reduce returns the next state and the result event for action. The input state is never
// modified. Rejected actions return the input state unchanged.
func (r *Reducer) Reduce(s State, action Action) (State, Result) {
	switch a := action.(type) {
	case SelectCategory:
		if !r.catalog.HasCategory(a.Category) {
			return s, Result{Kind: ResultInvalidCategory, Category: a.Category}
		}
		s.Filter.Category = a.Category
		return s, none()

	case SetSearch:
		s.Filter.Search = a.Query
		return s, none()

	case SetPriceRange:
		s.Filter.MinPrice, s.Filter.MaxPrice = clampRange(a.Min, a.Max)
		return s, none()

	case SetSort:
		s.Filter.Sort = catalog.NormalizeSortKey(string(a.Key))
		return s, none()

	case AddToCart:
		product, ok := r.catalog.Product(a.ProductID)
		if !ok {
			return s, Result{Kind: ResultUnknownProduct, ProductID: a.ProductID}
		}
		s.Cart = s.Cart.Add(product)
		return s, none()

	case UpdateQuantity:
		s.Cart = s.Cart.UpdateQuantity(a.ProductID, a.Delta)
		if s.Cart.IsEmpty() {
			s.Panels.CheckoutOpen = false
		}
		return s, none()

	case RemoveFromCart:
		s.Cart = s.Cart.Remove(a.ProductID)
		if s.Cart.IsEmpty() {
			s.Panels.CheckoutOpen = false
		}
		return s, none()

	case SetCouponInput:
		s.CouponInput = a.Code
		return s, none()

	case ApplyCoupon:
		raw := a.Code
		if raw == "" {
			raw = s.CouponInput
		}
		code := NormalizeCouponCode(raw)
		coupon, ok := LookupCoupon(code)
		if !ok {
			return s, Result{Kind: ResultCouponInvalid, Code: code}
		}
		s.Coupon = &coupon
		return s, Result{Kind: ResultCouponApplied, Code: coupon.Code, Savings: Savings(coupon)}

	case OpenCart:
		s.Panels.CartOpen = true
		return s, none()

	case CloseCart:
		s.Panels.CartOpen = false
		return s, none()

	case OpenCheckout:
		if s.Cart.IsEmpty() {
			return s, none()
		}
		s.Panels.CheckoutOpen = true
		return s, none()

	case CloseCheckout:
		s.Panels.CheckoutOpen = false
		return s, none()

	case PlaceOrder:
		// Checkout always ends with an empty cart and closed panels; only a non-empty cart yields an order.
		empty := s.Cart.IsEmpty()
		var order domain.Order
		total := s.Totals().Total
		if !empty {
			order = snapshotOrder(s, a.OrderID, a.At)
		}
		s.Cart = Cart{}
		s.Coupon = nil
		s.CouponInput = ""
		s.Panels = Panels{}
		if empty {
			return s, Result{Kind: ResultCartEmpty}
		}
		return s, Result{Kind: ResultOrderPlaced, Order: &order, OrderTotal: total}
	}
	return s, none()
}

func clampRange(lo, hi decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	clamp := func(v decimal.Decimal) decimal.Decimal {
		if v.LessThan(domain.PriceFloor) {
			return domain.PriceFloor
		}
		if v.GreaterThan(domain.PriceCeiling) {
			return domain.PriceCeiling
		}
		return v
	}
	lo, hi = clamp(lo), clamp(hi)
	if lo.GreaterThan(hi) {
		lo, hi = hi, lo
	}
	return lo, hi
}

func snapshotOrder(s State, id string, at time.Time) domain.Order {
	totals := s.Totals()
	order := domain.Order{
		ID:            id,
		Items:         s.Cart.Lines(),
		Subtotal:      Money(totals.Subtotal),
		Discount:      Money(totals.Discount),
		Total:         Money(totals.Total),
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		Timestamp:     at.UTC().Format(TimestampLayout),
	}
	if s.Coupon != nil {
		coupon := *s.Coupon
		order.Coupon = &coupon
	}
	return order
}
