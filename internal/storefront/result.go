package storefront

import (
	"github.com/shopspring/decimal"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// ResultKind classifies the outcome of a reduction.
type ResultKind string

const (
	ResultNone            ResultKind = "none"
	ResultCouponApplied   ResultKind = "couponApplied"
	ResultCouponInvalid   ResultKind = "couponInvalid"
	ResultOrderPlaced     ResultKind = "orderPlaced"
	ResultCartEmpty       ResultKind = "cartEmpty"
	ResultInvalidCategory ResultKind = "invalidCategory"
	ResultUnknownProduct  ResultKind = "unknownProduct"
)

// Result is the event emitted alongside the next state. Only the fields relevant to Kind are set.
type Result struct {
	Kind      ResultKind    `json:"kind"`
	Code      string        `json:"code,omitempty"`
	Savings   string        `json:"savings,omitempty"`
	Category  string        `json:"category,omitempty"`
	ProductID int           `json:"productId,omitempty"`
	Order     *domain.Order `json:"order,omitempty"`
	// OrderTotal is Order.Total as a decimal, for metrics.
	OrderTotal decimal.Decimal `json:"-"`
}

// Notice is the one-shot message shown to the shopper, empty for ResultNone.
func (r Result) Notice() string {
	switch r.Kind {
	case ResultCouponApplied:
		return "Coupon applied! You saved " + r.Savings
	case ResultCouponInvalid:
		return "Invalid coupon code"
	case ResultOrderPlaced:
		return "Order placed successfully! You will receive your items with " + domain.PaymentMethodCashOnDelivery + "."
	case ResultCartEmpty:
		return "Your cart is empty"
	case ResultInvalidCategory:
		return "Unknown category"
	case ResultUnknownProduct:
		return "Product not found"
	default:
		return ""
	}
}

// IsError reports whether the result represents a rejected action.
func (r Result) IsError() bool {
	switch r.Kind {
	case ResultCouponInvalid, ResultCartEmpty, ResultInvalidCategory, ResultUnknownProduct:
		return true
	}
	return false
}

func none() Result { return Result{Kind: ResultNone} }
