package landing

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	// CatalogPath is the page the QR code points at.
	CatalogPath = "/products"
	// DefaultQRSize is the edge length of the QR PNG in pixels.
	DefaultQRSize = 200
)

var (
	// ErrPublicHostMissing is returned when no public host is configured.
	ErrPublicHostMissing = errors.New("landing: public host is not configured")
	// ErrInvalidPublicHost is returned when the configured host cannot form a URL.
	ErrInvalidPublicHost = errors.New("landing: invalid public host")
)

// Page is the data rendered on the landing page.
type Page struct {
	CatalogURL string
	QRImageURL string
	Steps      []string
}

// CatalogURL builds the absolute URL of the catalog page from a public host. A bare host gets
// an https scheme; a host carrying http:// or https:// is used as given. Trailing slashes are dropped.
func CatalogURL(publicHost string) (string, error) {
	raw := strings.TrimSpace(publicHost)
	if strings.Trim(raw, "/") == "" {
		return "", ErrPublicHostMissing
	}
	scheme, rest := "https://", raw
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "http://"):
		scheme, rest = raw[:len("http://")], raw[len("http://"):]
	case strings.HasPrefix(lower, "https://"):
		scheme, rest = raw[:len("https://")], raw[len("https://"):]
	}
	rest = strings.TrimRight(rest, "/")
	if rest == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPublicHost, publicHost)
	}
	base := scheme + rest
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPublicHost, publicHost)
	}
	return base + CatalogPath, nil
}

// QRCode encodes content as a PNG QR code with medium error recovery.
func QRCode(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("landing: qr content is empty")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("landing: encode qr: %w", err)
	}
	return png, nil
}

// NewPage assembles the landing page for catalogURL.
func NewPage(catalogURL string) Page {
	return Page{
		CatalogURL: catalogURL,
		QRImageURL: "/qr.png",
		Steps: []string{
			"Open your phone camera",
			"Point it at the QR code",
			"Tap the link to browse the catalog",
		},
	}
}
