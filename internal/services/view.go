package services

import (
	"html/template"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/catalog"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/storefront"
)

// ProductView is a catalog entry prepared for display.
type ProductView struct {
	domain.Product
	PriceText       string        `json:"priceText"`
	DescriptionHTML template.HTML `json:"-"`
	InCart          int           `json:"inCart"`
}

// CartLineView is a cart line with its formatted line total.
type CartLineView struct {
	domain.CartLine
	PriceText string `json:"priceText"`
	LineTotal string `json:"lineTotal"`
}

// TotalsView holds the totals formatted to two decimals.
type TotalsView struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

// CouponView describes the active coupon.
type CouponView struct {
	Code    string `json:"code"`
	Kind    string `json:"type"`
	Savings string `json:"savings"`
}

// View is everything derived from one session's state that a page or API client renders.
type View struct {
	Filter        domain.FilterState `json:"filter"`
	Title         string             `json:"title"`
	Products      []ProductView      `json:"products"`
	ProductCount  int                `json:"productCount"`
	Categories    []domain.Category  `json:"categories"`
	Cart          []CartLineView     `json:"cart"`
	ItemCount     int                `json:"itemCount"`
	Totals        TotalsView         `json:"totals"`
	Coupon        *CouponView        `json:"coupon"`
	CouponInput   string             `json:"couponInput"`
	Panels        storefront.Panels  `json:"panels"`
	Phase         storefront.Phase   `json:"phase"`
	PaymentMethod string             `json:"paymentMethod"`
	PriceFloor    string             `json:"priceFloor"`
	PriceCeiling  string             `json:"priceCeiling"`
}

// BuildView derives the view for state against cat.
func BuildView(cat *catalog.Catalog, state storefront.State) View {
	products := cat.Apply(state.Filter)
	items := make([]ProductView, 0, len(products))
	for _, p := range products {
		items = append(items, ProductView{
			Product:         p,
			PriceText:       storefront.Money(p.Price),
			DescriptionHTML: catalog.RenderDescription(p.Description),
			InCart:          state.Cart.Quantity(p.ID),
		})
	}

	lines := state.Cart.Lines()
	cartLines := make([]CartLineView, 0, len(lines))
	for _, line := range lines {
		cartLines = append(cartLines, CartLineView{
			CartLine:  line,
			PriceText: storefront.Money(line.Price),
			LineTotal: storefront.Money(line.LineTotal()),
		})
	}

	totals := state.Totals()
	view := View{
		Filter:       state.Filter,
		Title:        cat.Title(state.Filter.Category),
		Products:     items,
		ProductCount: len(items),
		Categories:   cat.Categories(),
		Cart:         cartLines,
		ItemCount:    state.Cart.ItemCount(),
		Totals: TotalsView{
			Subtotal: storefront.Money(totals.Subtotal),
			Discount: storefront.Money(totals.Discount),
			Total:    storefront.Money(totals.Total),
		},
		CouponInput:   state.CouponInput,
		Panels:        state.Panels,
		Phase:         state.Phase(),
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		PriceFloor:    domain.PriceFloor.String(),
		PriceCeiling:  domain.PriceCeiling.String(),
	}
	if state.Coupon != nil {
		view.Coupon = &CouponView{
			Code:    state.Coupon.Code,
			Kind:    string(state.Coupon.Kind),
			Savings: storefront.Savings(*state.Coupon),
		}
	}
	return view
}
