package storefront

import (
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// Panels tracks which overlays are visible.
type Panels struct {
	CartOpen     bool `json:"cartOpen"`
	CheckoutOpen bool `json:"checkoutOpen"`
}

// Phase names the checkout state machine position derived from Panels.
type Phase string

const (
	PhaseBrowsing     Phase = "browsing"
	PhaseCartOpen     Phase = "cart"
	PhaseCheckoutOpen Phase = "checkout"
)

// State is one shopper's storefront. Values are treated as immutable; Reduce returns a new one.
type State struct {
	Filter      domain.FilterState
	Cart        Cart
	Coupon      *domain.Coupon
	CouponInput string
	Panels      Panels
}

// NewState returns the state a fresh session starts in.
func NewState() State {
	return State{Filter: domain.DefaultFilterState()}
}

// Phase reports the checkout state machine position.
func (s State) Phase() Phase {
	switch {
	case s.Panels.CheckoutOpen:
		return PhaseCheckoutOpen
	case s.Panels.CartOpen:
		return PhaseCartOpen
	default:
		return PhaseBrowsing
	}
}

// Totals computes the current cart totals with the active coupon.
func (s State) Totals() domain.Totals {
	return ComputeTotals(s.Cart.lines, s.Coupon)
}
