package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

var (
	// ErrUnknownAction is returned when the payload names an action type that does not exist.
	ErrUnknownAction = errors.New("storefront: unknown action")
	// ErrInvalidAction is returned when the payload is malformed for its type.
	ErrInvalidAction = errors.New("storefront: invalid action payload")
)

type actionPayload struct {
	Type      string           `json:"type"`
	Category  string           `json:"category"`
	Query     string           `json:"query"`
	Min       *decimal.Decimal `json:"min"`
	Max       *decimal.Decimal `json:"max"`
	Sort      string           `json:"sort"`
	ProductID *int             `json:"productId"`
	Delta     int              `json:"delta"`
	Code      string           `json:"code"`
}

// DecodeAction parses the JSON action envelope `{"type": "...", ...}`. PlaceOrder is not
// accepted here because order ids and timestamps are assigned server side.
func DecodeAction(data []byte) (Action, error) {
	var p actionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return p.action()
}

// ActionFromForm builds an action of the named type from form values, as posted by the HTML
// storefront. Field names match the JSON envelope.
func ActionFromForm(kind string, get func(string) string) (Action, error) {
	p := actionPayload{
		Type:     kind,
		Category: get("category"),
		Query:    get("query"),
		Sort:     get("sort"),
		Code:     get("code"),
	}
	if raw := strings.TrimSpace(get("productId")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: productId %q", ErrInvalidAction, raw)
		}
		p.ProductID = &id
	}
	if raw := strings.TrimSpace(get("delta")); raw != "" {
		delta, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: delta %q", ErrInvalidAction, raw)
		}
		p.Delta = delta
	}
	for field, dst := range map[string]**decimal.Decimal{"min": &p.Min, "max": &p.Max} {
		raw := strings.TrimSpace(get(field))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidAction, field, raw)
		}
		*dst = &d
	}
	return p.action()
}

func (p actionPayload) action() (Action, error) {
	requireProduct := func() (int, error) {
		if p.ProductID == nil {
			return 0, fmt.Errorf("%w: %s requires productId", ErrInvalidAction, p.Type)
		}
		return *p.ProductID, nil
	}

	switch strings.TrimSpace(p.Type) {
	case "selectCategory":
		if strings.TrimSpace(p.Category) == "" {
			return nil, fmt.Errorf("%w: selectCategory requires category", ErrInvalidAction)
		}
		return SelectCategory{Category: strings.TrimSpace(p.Category)}, nil
	case "setSearch":
		return SetSearch{Query: p.Query}, nil
	case "setPriceRange":
		lo, hi := domain.PriceFloor, domain.PriceCeiling
		if p.Min != nil {
			lo = *p.Min
		}
		if p.Max != nil {
			hi = *p.Max
		}
		return SetPriceRange{Min: lo, Max: hi}, nil
	case "setSort":
		return SetSort{Key: domain.SortKey(p.Sort)}, nil
	case "addToCart":
		id, err := requireProduct()
		if err != nil {
			return nil, err
		}
		return AddToCart{ProductID: id}, nil
	case "updateQuantity":
		id, err := requireProduct()
		if err != nil {
			return nil, err
		}
		return UpdateQuantity{ProductID: id, Delta: p.Delta}, nil
	case "removeFromCart":
		id, err := requireProduct()
		if err != nil {
			return nil, err
		}
		return RemoveFromCart{ProductID: id}, nil
	case "setCouponInput":
		return SetCouponInput{Code: p.Code}, nil
	case "applyCoupon":
		return ApplyCoupon{Code: p.Code}, nil
	case "openCart":
		return OpenCart{}, nil
	case "closeCart":
		return CloseCart{}, nil
	case "openCheckout":
		return OpenCheckout{}, nil
	case "closeCheckout":
		return CloseCheckout{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidAction)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, p.Type)
	}
}
