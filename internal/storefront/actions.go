package storefront

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// Action is a user intent fed into Reduce. The set is closed.
type Action interface {
	actionName() string
}

type (
	SelectCategory struct{ Category string }
	SetSearch      struct{ Query string }
	SetPriceRange  struct{ Min, Max decimal.Decimal }
	SetSort        struct{ Key domain.SortKey }
	AddToCart      struct{ ProductID int }
	UpdateQuantity struct {
		ProductID int
		Delta     int
	}
	RemoveFromCart struct{ ProductID int }
	SetCouponInput struct{ Code string }
	// ApplyCoupon applies Code, or the pending coupon input when Code is empty.
	ApplyCoupon   struct{ Code string }
	OpenCart      struct{}
	CloseCart     struct{}
	OpenCheckout  struct{}
	CloseCheckout struct{}
	// PlaceOrder carries the order id and clock reading so Reduce stays deterministic.
	PlaceOrder struct {
		OrderID string
		At      time.Time
	}
)

func (SelectCategory) actionName() string { return "selectCategory" }
func (SetSearch) actionName() string      { return "setSearch" }
func (SetPriceRange) actionName() string  { return "setPriceRange" }
func (SetSort) actionName() string        { return "setSort" }
func (AddToCart) actionName() string      { return "addToCart" }
func (UpdateQuantity) actionName() string { return "updateQuantity" }
func (RemoveFromCart) actionName() string { return "removeFromCart" }
func (SetCouponInput) actionName() string { return "setCouponInput" }
func (ApplyCoupon) actionName() string    { return "applyCoupon" }
func (OpenCart) actionName() string       { return "openCart" }
func (CloseCart) actionName() string      { return "closeCart" }
func (OpenCheckout) actionName() string   { return "openCheckout" }
func (CloseCheckout) actionName() string  { return "closeCheckout" }
func (PlaceOrder) actionName() string     { return "placeOrder" }

// ActionName returns the wire name of an action, matching the JSON "type" field.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}
