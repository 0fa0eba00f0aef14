package catalog

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

func ids(products []domain.Product) []int {
	out := make([]int, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func filterWith(mut func(*domain.FilterState)) domain.FilterState {
	f := domain.DefaultFilterState()
	if mut != nil {
		mut(&f)
	}
	return f
}

func TestFilterPredicates(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	tests := []struct {
		name   string
		filter domain.FilterState
		want   []int
	}{
		{"all", filterWith(nil), []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
		{"category", filterWith(func(f *domain.FilterState) { f.Category = "cables" }), []int{1, 5, 9, 12}},
		{"search is case insensitive", filterWith(func(f *domain.FilterState) { f.Search = "CABLE" }), []int{1, 5, 9, 12}},
		{"search usb", filterWith(func(f *domain.FilterState) { f.Search = "usb" }), []int{5, 8, 9, 12}},
		{"price range inclusive", filterWith(func(f *domain.FilterState) {
			f.MinPrice = decimal.NewFromInt(20)
			f.MaxPrice = decimal.NewFromInt(30)
		}), []int{1, 5, 8, 10, 12}},
		{"combined", filterWith(func(f *domain.FilterState) {
			f.Category = "chargers"
			f.Search = "charger"
			f.MaxPrice = decimal.NewFromInt(40)
		}), []int{2, 8}},
		{"empty result", filterWith(func(f *domain.FilterState) { f.Search = "toaster" }), []int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Filter(c.Products(), tc.filter))
			if !slices.Equal(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFilterIsExactSubset(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	searches := []string{"", "a", "Cable", "pHoNe", "zzz"}
	cats := []string{"all", "accessories", "cables", "chargers"}
	bounds := [][2]int64{{0, 200}, {15, 45}, {30, 30}, {100, 200}}

	for _, cat := range cats {
		for _, s := range searches {
			for _, b := range bounds {
				f := domain.FilterState{
					Category: cat,
					Search:   s,
					MinPrice: decimal.NewFromInt(b[0]),
					MaxPrice: decimal.NewFromInt(b[1]),
					Sort:     domain.SortName,
				}
				got := map[int]bool{}
				for _, p := range c.Apply(f) {
					got[p.ID] = true
				}
				for _, p := range c.Products() {
					want := (cat == "all" || p.Category == cat) &&
						containsFold(p.Name, s) &&
						!p.Price.LessThan(f.MinPrice) && !p.Price.GreaterThan(f.MaxPrice)
					if got[p.ID] != want {
						t.Fatalf("filter %+v: product %d included=%v want %v", f, p.ID, got[p.ID], want)
					}
				}
			}
		}
	}
}

func containsFold(name, sub string) bool {
	if sub == "" {
		return true
	}
	n, s := []rune(name), []rune(sub)
	for i := 0; i+len(s) <= len(n); i++ {
		match := true
		for j := range s {
			if toLower(n[i+j]) != toLower(s[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func TestSortKeys(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	byName := ids(c.Apply(filterWith(nil)))
	wantName := []int{8, 1, 12, 9, 4, 10, 11, 2, 7, 5, 6, 3}
	if !slices.Equal(byName, wantName) {
		t.Fatalf("name order: expected %v, got %v", wantName, byName)
	}

	low := c.Apply(filterWith(func(f *domain.FilterState) { f.Sort = domain.SortPriceLow }))
	for i := 1; i < len(low); i++ {
		if low[i-1].Price.GreaterThan(low[i].Price) {
			t.Fatalf("price-low not ascending at %d: %v", i, ids(low))
		}
	}
	high := c.Apply(filterWith(func(f *domain.FilterState) { f.Sort = domain.SortPriceHigh }))
	for i := 1; i < len(high); i++ {
		if high[i-1].Price.LessThan(high[i].Price) {
			t.Fatalf("price-high not descending at %d: %v", i, ids(high))
		}
	}
	if high[0].ID != 3 || low[0].ID != 7 {
		t.Fatalf("unexpected extremes low=%d high=%d", low[0].ID, high[0].ID)
	}
}

func TestSortIsStableOnTies(t *testing.T) {
	price := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	fixture := []domain.Product{
		{ID: 1, Name: "Beta", Price: price(10)},
		{ID: 2, Name: "alpha", Price: price(20)},
		{ID: 3, Name: "Alpha", Price: price(10)},
		{ID: 4, Name: "beta", Price: price(20)},
		{ID: 5, Name: "ALPHA", Price: price(10)},
	}

	if got := ids(Sort(fixture, domain.SortName)); !slices.Equal(got, []int{2, 3, 5, 1, 4}) {
		t.Fatalf("name ties: got %v", got)
	}
	if got := ids(Sort(fixture, domain.SortPriceLow)); !slices.Equal(got, []int{1, 3, 5, 2, 4}) {
		t.Fatalf("price-low ties: got %v", got)
	}
	if got := ids(Sort(fixture, domain.SortPriceHigh)); !slices.Equal(got, []int{2, 4, 1, 3, 5}) {
		t.Fatalf("price-high ties: got %v", got)
	}
	if got := ids(Sort(fixture, "bogus")); !slices.Equal(got, []int{2, 3, 5, 1, 4}) {
		t.Fatalf("unknown key should sort by name, got %v", got)
	}
	if fixture[0].ID != 1 || fixture[4].ID != 5 {
		t.Fatalf("Sort mutated its input")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	f := filterWith(func(f *domain.FilterState) {
		f.Search = "c"
		f.Sort = domain.SortPriceHigh
	})
	first := ids(c.Apply(f))
	second := ids(c.Apply(f))
	if !slices.Equal(first, second) {
		t.Fatalf("Apply not deterministic: %v vs %v", first, second)
	}
	if got := ids(c.Products()); !slices.Equal(got, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}) {
		t.Fatalf("catalog order changed: %v", got)
	}
}

func TestNormalizeSortKey(t *testing.T) {
	cases := map[string]domain.SortKey{
		"":            domain.SortName,
		"name":        domain.SortName,
		" PRICE-LOW ": domain.SortPriceLow,
		"price-high":  domain.SortPriceHigh,
		"rating":      domain.SortName,
	}
	for in, want := range cases {
		if got := NormalizeSortKey(in); got != want {
			t.Errorf("NormalizeSortKey(%q) = %q, want %q", in, got, want)
		}
	}
}
