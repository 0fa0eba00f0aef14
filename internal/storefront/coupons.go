package storefront

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

var couponTable = map[string]domain.Coupon{
	"SAVE10":    {Code: "SAVE10", Discount: decimal.NewFromInt(10), Kind: domain.CouponPercentage},
	"FLAT20":    {Code: "FLAT20", Discount: decimal.NewFromInt(20), Kind: domain.CouponFixed},
	"WELCOME15": {Code: "WELCOME15", Discount: decimal.NewFromInt(15), Kind: domain.CouponPercentage},
}

// NormalizeCouponCode trims and upper-cases user input before lookup.
func NormalizeCouponCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// LookupCoupon finds a coupon by code. Input is normalized first.
func LookupCoupon(code string) (domain.Coupon, bool) {
	coupon, ok := couponTable[NormalizeCouponCode(code)]
	return coupon, ok
}

// Savings renders the customer-facing amount a coupon takes off: "10%" or "$20".
func Savings(c domain.Coupon) string {
	if c.Kind == domain.CouponFixed {
		return "$" + c.Discount.String()
	}
	return c.Discount.String() + "%"
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals derives subtotal, discount and total rounded to cents. The total is computed
// from the rounded subtotal and discount so the three displayed values always reconcile.
// Fixed discounts are not clamped, the total may be negative.
func ComputeTotals(lines []domain.CartLine, coupon *domain.Coupon) domain.Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}

	discount := decimal.Zero
	if coupon != nil {
		switch coupon.Kind {
		case domain.CouponPercentage:
			discount = subtotal.Mul(coupon.Discount).Div(hundred)
		case domain.CouponFixed:
			discount = coupon.Discount
		}
	}

	subtotal = subtotal.Round(2)
	discount = discount.Round(2)
	return domain.Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}

// Money formats a decimal with two fractional digits.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
