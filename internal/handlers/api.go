package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/catalog"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/httpx"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/session"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/services"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/storefront"
)

const maxActionBodySize = 8 * 1024

// APIHandlers exposes the catalog and the session storefront as JSON.
type APIHandlers struct {
	storefront services.StorefrontService
}

// NewAPIHandlers constructs the JSON API handlers.
func NewAPIHandlers(svc services.StorefrontService) *APIHandlers {
	return &APIHandlers{storefront: svc}
}

// Routes registers the JSON endpoints.
func (h *APIHandlers) Routes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/catalog", func(rt chi.Router) {
		rt.Get("/products", h.listProducts)
		rt.Get("/categories", h.listCategories)
	})
	r.Route("/storefront", func(rt chi.Router) {
		rt.Get("/", h.getStorefront)
		rt.Post("/actions", h.dispatchAction)
		rt.Post("/order", h.placeOrder)
	})
}

type productListResponse struct {
	Products []domain.Product   `json:"products"`
	Count    int                `json:"count"`
	Filter   domain.FilterState `json:"filter"`
}

type storefrontResponse struct {
	View      services.View `json:"view"`
	CSRFToken string        `json:"csrfToken"`
}

type actionResponse struct {
	Result storefront.Result `json:"result"`
	Notice string            `json:"notice,omitempty"`
	View   services.View     `json:"view"`
}

type orderResponse struct {
	Order  *domain.Order `json:"order"`
	Notice string        `json:"notice"`
	View   services.View `json:"view"`
}

func (h *APIHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilterQuery(r, h.storefront.Categories(r.Context()))
	if err != nil {
		httpx.WriteError(r.Context(), w, *err)
		return
	}
	products := h.storefront.Browse(r.Context(), filter)
	if products == nil {
		products = []domain.Product{}
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Products: products,
		Count:    len(products),
		Filter:   filter,
	})
}

func (h *APIHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"categories": h.storefront.Categories(r.Context()),
	})
}

func (h *APIHandlers) getStorefront(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeSessionMissing(w, r)
		return
	}
	view, err := h.storefront.View(r.Context(), sess.ID)
	if err != nil {
		writeStorefrontError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, storefrontResponse{View: view, CSRFToken: sess.CSRFToken})
}

func (h *APIHandlers) dispatchAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeSessionMissing(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBodySize+1))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
		return
	}
	if len(body) > maxActionBodySize {
		httpx.WriteError(r.Context(), w, httpx.PayloadTooLarge(maxActionBodySize))
		return
	}
	action, err := storefront.DecodeAction(body)
	if err != nil {
		writeStorefrontError(w, r, err)
		return
	}
	view, result, err := h.storefront.Dispatch(r.Context(), sess.ID, action)
	if err != nil {
		writeStorefrontError(w, r, err)
		return
	}
	// The notice was delivered in this response; drop the flash copy kept for the HTML page.
	h.storefront.TakeNotice(r.Context(), sess.ID)
	writeJSONResponse(w, http.StatusOK, actionResponse{Result: result, Notice: result.Notice(), View: view})
}

func (h *APIHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeSessionMissing(w, r)
		return
	}
	view, result, err := h.storefront.Dispatch(r.Context(), sess.ID, storefront.PlaceOrder{})
	if err != nil {
		writeStorefrontError(w, r, err)
		return
	}
	h.storefront.TakeNotice(r.Context(), sess.ID)
	if result.Kind != storefront.ResultOrderPlaced {
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_empty", result.Notice(), http.StatusConflict).WithResult(string(result.Kind)))
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: result.Order, Notice: result.Notice(), View: view})
}

// parseFilterQuery reads category, q, min, max and sort into a filter state. Omitted values keep
// their defaults; malformed prices and unknown categories are rejected.
func parseFilterQuery(r *http.Request, categories []domain.Category) (domain.FilterState, *httpx.Error) {
	q := r.URL.Query()
	filter := domain.DefaultFilterState()

	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		known := false
		for _, c := range categories {
			if c.ID == raw {
				known = true
				break
			}
		}
		if !known {
			e := httpx.NewError("invalid_category", "unknown category", http.StatusBadRequest).
				WithDetails(map[string]any{"category": raw})
			return filter, &e
		}
		filter.Category = raw
	}
	filter.Search = q.Get("q")
	for field, dst := range map[string]*decimal.Decimal{"min": &filter.MinPrice, "max": &filter.MaxPrice} {
		raw := strings.TrimSpace(q.Get(field))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			e := httpx.NewError("invalid_price", "price bounds must be numeric", http.StatusBadRequest).
				WithDetails(map[string]any{field: raw})
			return filter, &e
		}
		*dst = d
	}
	filter.Sort = catalog.NormalizeSortKey(q.Get("sort"))
	return filter, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}
