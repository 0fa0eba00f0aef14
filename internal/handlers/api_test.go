package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type productListBody struct {
	Products []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"products"`
	Count int `json:"count"`
}

func TestAPIHandlers_ListProductsFilters(t *testing.T) {
	s := newTestStorefront(t, "shop.example.com")

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?category=chargers&sort=price-high", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body productListBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 3 || len(body.Products) != 3 || body.Products[0].ID != 6 {
		t.Fatalf("unexpected products %+v", body)
	}

	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?min=500", nil))
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusOK || body.Count != 0 || body.Products == nil {
		t.Fatalf("expected empty list, got %d %+v", rr.Code, body)
	}
}

func TestAPIHandlers_ListProductsRejectsBadQuery(t *testing.T) {
	s := newTestStorefront(t, "shop.example.com")
	for _, query := range []string{"category=gadgets", "min=cheap", "max=abc"} {
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?"+query, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rr.Code)
		}
	}
}

func TestAPIHandlers_ListCategories(t *testing.T) {
	s := newTestStorefront(t, "shop.example.com")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories", nil))

	var body struct {
		Categories []struct {
			ID    string `json:"id"`
			Count int    `json:"count"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Categories) != 4 || body.Categories[0].ID != "all" || body.Categories[0].Count != 12 {
		t.Fatalf("unexpected categories %+v", body.Categories)
	}
}

type actionBody struct {
	Result struct {
		Kind string `json:"kind"`
	} `json:"result"`
	Notice string `json:"notice"`
	View   struct {
		ItemCount int `json:"itemCount"`
		Totals    struct {
			Subtotal string `json:"subtotal"`
			Discount string `json:"discount"`
			Total    string `json:"total"`
		} `json:"totals"`
	} `json:"view"`
}

func TestAPIHandlers_ActionsRoundTrip(t *testing.T) {
	s := newTestStorefront(t, "shop.example.com")
	c := s.newShopper(t)

	for _, payload := range []string{
		`{"type":"addToCart","productId":1}`,
		`{"type":"updateQuantity","productId":1,"delta":1}`,
		`{"type":"addToCart","productId":2}`,
	} {
		if rr := c.postJSON("/api/v1/storefront/actions", payload); rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", payload, rr.Code, rr.Body.String())
		}
	}

	rr := c.postJSON("/api/v1/storefront/actions", `{"type":"applyCoupon","code":"flat20"}`)
	var body actionBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Result.Kind != "couponApplied" || body.Notice != "Coupon applied! You saved $20" {
		t.Fatalf("unexpected result %+v", body)
	}
	if body.View.ItemCount != 3 || body.View.Totals.Subtotal != "85.00" || body.View.Totals.Total != "65.00" {
		t.Fatalf("unexpected view %+v", body.View)
	}

	rr = c.postJSON("/api/v1/storefront/actions", `{"type":"applyCoupon","code":"BOGUS"}`)
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Result.Kind != "couponInvalid" || body.View.Totals.Discount != "20.00" {
		t.Fatalf("invalid coupon must keep the active one, got %+v", body)
	}
}

func TestAPIHandlers_ActionErrors(t *testing.T) {
	s := newTestStorefront(t, "shop.example.com")
	c := s.newShopper(t)

	cases := map[string]int{
		`{"type":"teleport"}`:   http.StatusBadRequest,
		`{"type":"placeOrder"}`: http.StatusBadRequest,
		`{"type":"addToCart"}`:  http.StatusBadRequest,
		`not json`:              http.StatusBadRequest,
	}
	for payload, want := range cases {
		if rr := c.postJSON("/api/v1/storefront/actions", payload); rr.Code != want {
			t.Fatalf("%s: expected %d, got %d", payload, want, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storefront/actions", nil)
	if rr := c.do(req); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf header, got %d", rr.Code)
	}
}

func TestAPIHandlers_PlaceOrder(t *testing.T) {
	s := newTestStorefront(t, "shop.example.com")
	c := s.newShopper(t)

	rr := c.postJSON("/api/v1/storefront/order", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for empty cart, got %d", rr.Code)
	}
	var rejected map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &rejected); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rejected["error"] != "cart_empty" || rejected["result"] != "cartEmpty" || rejected["message"] != "Your cart is empty" {
		t.Fatalf("unexpected envelope %v", rejected)
	}

	c.postJSON("/api/v1/storefront/actions", `{"type":"addToCart","productId":2}`)
	rr = c.postJSON("/api/v1/storefront/order", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Order struct {
			ID            string `json:"id"`
			Total         string `json:"total"`
			PaymentMethod string `json:"paymentMethod"`
			Timestamp     string `json:"timestamp"`
		} `json:"order"`
		View struct {
			ItemCount int `json:"itemCount"`
		} `json:"view"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Order.ID != "01HZTESTORDER" || body.Order.Total != "35.00" || body.Order.PaymentMethod != "Cash on Delivery" {
		t.Fatalf("unexpected order %+v", body.Order)
	}
	if body.Order.Timestamp != "2024-06-01T09:00:00.000Z" || body.View.ItemCount != 0 {
		t.Fatalf("unexpected order state %+v", body)
	}
	if orders := s.publisher.Orders(); len(orders) != 1 || orders[0].ID != "01HZTESTORDER" {
		t.Fatalf("expected order to reach sink, got %+v", orders)
	}
}
