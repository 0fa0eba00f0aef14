package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/landing"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/httpx"
)

const maxCachedQRCodes = 16

// LandingDeps wires the landing page handlers.
type LandingDeps struct {
	PublicHost string
	Renderer   *Renderer
	Logger     *zap.Logger
	QRSize     int
}

// LandingHandlers serves the QR landing page and its image.
type LandingHandlers struct {
	catalogURL string
	renderer   *Renderer
	logger     *zap.Logger
	qrSize     int

	fallbackOnce sync.Once

	mu     sync.Mutex
	qrPNGs map[string][]byte
}

type landingPageData struct {
	Page landing.Page
}

// NewLandingHandlers validates the public host up front. An unset host is allowed: each request
// then derives the catalog URL from its own scheme and host.
func NewLandingHandlers(deps LandingDeps) (*LandingHandlers, error) {
	if deps.Renderer == nil {
		return nil, errors.New("landing handlers: renderer is required")
	}
	catalogURL, err := landing.CatalogURL(deps.PublicHost)
	if err != nil && !errors.Is(err, landing.ErrPublicHostMissing) {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := deps.QRSize
	if size <= 0 {
		size = landing.DefaultQRSize
	}
	return &LandingHandlers{
		catalogURL: catalogURL,
		renderer:   deps.Renderer,
		logger:     logger,
		qrSize:     size,
		qrPNGs:     make(map[string][]byte),
	}, nil
}

// Routes registers the landing endpoints.
func (h *LandingHandlers) Routes(r chi.Router) {
	r.Get("/", h.page)
	r.Get("/qr.png", h.qrImage)
}

func (h *LandingHandlers) page(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, "landing", landingPageData{Page: landing.NewPage(h.resolveCatalogURL(r))})
}

func (h *LandingHandlers) qrImage(w http.ResponseWriter, r *http.Request) {
	target := h.resolveCatalogURL(r)
	png, err := h.qrFor(target)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("qr_failed", "failed to generate qr code", http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *LandingHandlers) qrFor(target string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if png, ok := h.qrPNGs[target]; ok {
		return png, nil
	}
	png, err := landing.QRCode(target, h.qrSize)
	if err != nil {
		return nil, err
	}
	if len(h.qrPNGs) >= maxCachedQRCodes {
		clear(h.qrPNGs)
	}
	h.qrPNGs[target] = png
	return png, nil
}

func (h *LandingHandlers) resolveCatalogURL(r *http.Request) string {
	if h.catalogURL != "" {
		return h.catalogURL
	}
	h.fallbackOnce.Do(func() {
		h.logger.Warn("public host not configured; deriving catalog url from request host",
			zap.String("host", r.Host),
		)
	})
	return requestScheme(r) + "://" + r.Host + landing.CatalogPath
}

func requestScheme(r *http.Request) string {
	if proto := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0]); proto == "https" || proto == "http" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
