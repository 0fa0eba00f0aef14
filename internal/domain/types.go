package domain

import (
	"github.com/shopspring/decimal"
)

// CategoryAll is the sentinel category matching every product.
const CategoryAll = "all"

// PaymentMethodCashOnDelivery is the only payment method offered at checkout.
const PaymentMethodCashOnDelivery = "Cash on Delivery"

// PriceFloor and PriceCeiling bound the price range filter.
var (
	PriceFloor   = decimal.Zero
	PriceCeiling = decimal.NewFromInt(200)
)

// Product is an immutable catalog entry.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

// Category groups products for the sidebar. Count is derived from the catalog.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}

// CartLine is one product plus its requested quantity.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal returns price × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CouponKind describes how a coupon value is interpreted.
type CouponKind string

const (
	// CouponPercentage discounts value percent of the subtotal.
	CouponPercentage CouponKind = "percentage"
	// CouponFixed discounts a flat amount.
	CouponFixed CouponKind = "fixed"
)

// Coupon is a named discount rule.
type Coupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Kind     CouponKind      `json:"type"`
}

// SortKey selects the ordering of the display list.
type SortKey string

const (
	SortName      SortKey = "name"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// FilterState captures the catalog filter inputs.
type FilterState struct {
	Category string          `json:"category"`
	Search   string          `json:"search"`
	MinPrice decimal.Decimal `json:"minPrice"`
	MaxPrice decimal.Decimal `json:"maxPrice"`
	Sort     SortKey         `json:"sort"`
}

// DefaultFilterState returns the filter state a new session starts with.
func DefaultFilterState() FilterState {
	return FilterState{
		Category: CategoryAll,
		MinPrice: PriceFloor,
		MaxPrice: PriceCeiling,
		Sort:     SortName,
	}
}

// Totals is the subtotal/discount/total triple rounded to cents.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Order is the snapshot handed to order sinks when a customer checks out.
type Order struct {
	ID            string     `json:"id"`
	Items         []CartLine `json:"items"`
	Subtotal      string     `json:"subtotal"`
	Discount      string     `json:"discount"`
	Total         string     `json:"total"`
	Coupon        *Coupon    `json:"coupon"`
	PaymentMethod string     `json:"paymentMethod"`
	Timestamp     string     `json:"timestamp"`
}
