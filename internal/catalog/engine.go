package catalog

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// Apply filters then sorts the catalog for display. The catalog itself is never modified.
func (c *Catalog) Apply(filter domain.FilterState) []domain.Product {
	return Sort(Filter(c.products, filter), filter.Sort)
}

// Filter returns the products matching every predicate of the filter, in input order.
func Filter(products []domain.Product, filter domain.FilterState) []domain.Product {
	fold := cases.Fold()
	needle := fold.String(filter.Search)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !Matches(p, filter, fold, needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Matches evaluates the inclusion predicate for one product. needle must already be case folded.
func Matches(p domain.Product, filter domain.FilterState, fold cases.Caser, needle string) bool {
	if filter.Category != domain.CategoryAll && p.Category != filter.Category {
		return false
	}
	if needle != "" && !strings.Contains(fold.String(p.Name), needle) {
		return false
	}
	if p.Price.LessThan(filter.MinPrice) || p.Price.GreaterThan(filter.MaxPrice) {
		return false
	}
	return true
}

// Sort returns a stably sorted copy. Unknown keys sort by name.
func Sort(products []domain.Product, key domain.SortKey) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)

	switch key {
	case domain.SortPriceLow:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case domain.SortPriceHigh:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return b.Price.Cmp(a.Price)
		})
	default:
		fold := cases.Fold()
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return strings.Compare(fold.String(a.Name), fold.String(b.Name))
		})
	}
	return out
}

// NormalizeSortKey maps free-form input onto a supported key.
func NormalizeSortKey(raw string) domain.SortKey {
	switch domain.SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.SortPriceLow:
		return domain.SortPriceLow
	case domain.SortPriceHigh:
		return domain.SortPriceHigh
	default:
		return domain.SortName
	}
}
