package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/catalog"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/session"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/services"
)

type recordingPublisher struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (p *recordingPublisher) PublishOrder(_ context.Context, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return nil
}

func (p *recordingPublisher) Orders() []domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Order(nil), p.orders...)
}

type testStorefront struct {
	router    chi.Router
	publisher *recordingPublisher
}

func newTestStorefront(t *testing.T, publicHost string) *testStorefront {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	pub := &recordingPublisher{}
	svc, err := services.NewStorefrontService(services.StorefrontServiceDeps{
		Catalog:     cat,
		Sessions:    services.NewSessionStore(time.Hour, clock),
		Orders:      pub,
		Clock:       clock,
		IDGenerator: func() string { return "01HZTESTORDER" },
	})
	if err != nil {
		t.Fatalf("NewStorefrontService: %v", err)
	}
	manager, err := session.NewManager(session.Options{
		SigningKey: []byte(strings.Repeat("k", 32)),
		TTL:        time.Hour,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	landingHandlers, err := NewLandingHandlers(LandingDeps{PublicHost: publicHost, Renderer: renderer})
	if err != nil {
		t.Fatalf("NewLandingHandlers: %v", err)
	}

	router := NewRouter(
		WithMiddlewares(manager.Middleware),
		WithLandingRoutes(landingHandlers.Routes),
		WithPageRoutes(NewPageHandlers(svc, renderer).Routes),
		WithPageMiddlewares(manager.RequireCSRF),
		WithAPIRoutes(NewAPIHandlers(svc).Routes),
		WithAPIMiddlewares(manager.RequireCSRF),
	)
	return &testStorefront{router: router, publisher: pub}
}

// shopper replays the session cookie across requests like a browser would.
type shopper struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
	token   string
}

func (s *testStorefront) newShopper(t *testing.T) *shopper {
	return &shopper{t: t, handler: s.router}
}

func (c *shopper) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	if issued := rr.Result().Cookies(); len(issued) > 0 {
		c.cookies = issued
	}
	return rr
}

func (c *shopper) csrf() string {
	c.t.Helper()
	if c.token != "" {
		return c.token
	}
	rr := c.do(httptest.NewRequest(http.MethodGet, "/api/v1/storefront", nil))
	if rr.Code != http.StatusOK {
		c.t.Fatalf("GET /api/v1/storefront: status %d", rr.Code)
	}
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		c.t.Fatalf("decode storefront: %v", err)
	}
	if body.CSRFToken == "" {
		c.t.Fatalf("expected csrf token")
	}
	c.token = body.CSRFToken
	return c.token
}

func (c *shopper) postForm(path string, values map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	form := url.Values{session.CSRFField: {c.csrf()}}
	for k, v := range values {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *shopper) postJSON(path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(session.CSRFHeader, c.csrf())
	return c.do(req)
}
