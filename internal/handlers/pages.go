package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/landing"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/httpx"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/session"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/services"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/storefront"
)

// formRoutes maps each form post under /products to the actions it dispatches, in order.
var formRoutes = []struct {
	path    string
	actions []string
}{
	{"/category", []string{"selectCategory"}},
	{"/filter", []string{"setSearch", "setPriceRange", "setSort"}},
	{"/search", []string{"setSearch"}},
	{"/price", []string{"setPriceRange"}},
	{"/sort", []string{"setSort"}},
	{"/cart/add", []string{"addToCart"}},
	{"/cart/update", []string{"updateQuantity"}},
	{"/cart/remove", []string{"removeFromCart"}},
	{"/cart/open", []string{"openCart"}},
	{"/cart/close", []string{"closeCart"}},
	{"/coupon", []string{"setCouponInput", "applyCoupon"}},
	{"/checkout/open", []string{"openCheckout"}},
	{"/checkout/close", []string{"closeCheckout"}},
}

type sortOption struct {
	Key   domain.SortKey
	Label string
}

var sortOptions = []sortOption{
	{Key: domain.SortName, Label: "Name"},
	{Key: domain.SortPriceLow, Label: "Price: Low to High"},
	{Key: domain.SortPriceHigh, Label: "Price: High to Low"},
}

type productsPageData struct {
	View        services.View
	Notice      string
	CSRF        string
	SortOptions []sortOption
}

// PageHandlers serves the HTML catalog. Every form post dispatches to the session's
// storefront state and redirects back with 303 See Other.
type PageHandlers struct {
	storefront services.StorefrontService
	renderer   *Renderer
}

// NewPageHandlers constructs the HTML catalog handlers.
func NewPageHandlers(svc services.StorefrontService, renderer *Renderer) *PageHandlers {
	return &PageHandlers{storefront: svc, renderer: renderer}
}

// Routes registers the catalog page and its form endpoints.
func (h *PageHandlers) Routes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/product", h.redirectToCatalog)
	r.Route(landing.CatalogPath, func(rt chi.Router) {
		rt.Get("/", h.catalogPage)
		for _, route := range formRoutes {
			rt.Post(route.path, h.dispatchForm(route.actions))
		}
		rt.Post("/order", h.placeOrder)
	})
}

func (h *PageHandlers) redirectToCatalog(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, landing.CatalogPath, http.StatusMovedPermanently)
}

func (h *PageHandlers) catalogPage(w http.ResponseWriter, r *http.Request) {
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
	w.Header().Set("Cache-Control", "no-store")
	h.renderer.Render(w, r, "products", productsPageData{
		View:        view,
		Notice:      h.storefront.TakeNotice(r.Context(), sess.ID),
		CSRF:        sess.CSRFToken,
		SortOptions: sortOptions,
	})
}

func (h *PageHandlers) dispatchForm(kinds []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			writeSessionMissing(w, r)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, session.DefaultMaxFormBytes)
		if err := r.ParseForm(); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpx.WriteError(r.Context(), w, httpx.PayloadTooLarge(tooLarge.Limit))
				return
			}
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_form", "failed to parse form", http.StatusBadRequest))
			return
		}

		actions := make([]storefront.Action, 0, len(kinds))
		for _, kind := range kinds {
			action, err := storefront.ActionFromForm(kind, r.PostForm.Get)
			if err != nil {
				writeStorefrontError(w, r, err)
				return
			}
			actions = append(actions, action)
		}
		for _, action := range actions {
			if _, _, err := h.storefront.Dispatch(r.Context(), sess.ID, action); err != nil {
				writeStorefrontError(w, r, err)
				return
			}
		}
		http.Redirect(w, r, landing.CatalogPath, http.StatusSeeOther)
	}
}

func (h *PageHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeSessionMissing(w, r)
		return
	}
	if _, _, err := h.storefront.Dispatch(r.Context(), sess.ID, storefront.PlaceOrder{}); err != nil {
		writeStorefrontError(w, r, err)
		return
	}
	http.Redirect(w, r, landing.CatalogPath, http.StatusSeeOther)
}

func writeSessionMissing(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("session_required", "a storefront session is required", http.StatusUnauthorized))
}

func writeStorefrontError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storefront.ErrUnknownAction):
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_action", err.Error(), http.StatusBadRequest))
	case errors.Is(err, storefront.ErrInvalidAction):
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_action", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrSessionRequired):
		writeSessionMissing(w, r)
	case errors.Is(err, services.ErrActionRequired):
		httpx.WriteError(r.Context(), w, httpx.NewError("action_required", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("internal_error", "storefront request failed", http.StatusInternalServerError))
	}
}
