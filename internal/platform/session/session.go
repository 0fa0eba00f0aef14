package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/httpx"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/requestctx"
)

const (
	// CSRFHeader carries the token on JSON requests.
	CSRFHeader = "X-CSRF-Token"
	// CSRFField carries the token on form posts.
	CSRFField = "csrf"

	defaultCookieName = "storefront_session"
)

// ErrInvalidCookie is returned when a cookie fails signature or payload checks.
var ErrInvalidCookie = errors.New("session: invalid cookie")

type contextKey struct{}

// Session identifies one shopper. Cart and filter state live server side, keyed by ID.
type Session struct {
	ID        string    `json:"id"`
	CSRFToken string    `json:"csrf"`
	IssuedAt  time.Time `json:"iat"`
}

// Options configures a Manager.
type Options struct {
	CookieName string
	SigningKey []byte
	TTL        time.Duration
	Secure     bool
	Clock      func() time.Time
	// MaxFormBytes caps form bodies parsed for the CSRF field. Zero uses DefaultMaxFormBytes.
	MaxFormBytes int64
}

// DefaultMaxFormBytes bounds storefront form posts.
const DefaultMaxFormBytes = 16 << 10

// Manager issues and verifies HMAC-signed session cookies.
type Manager struct {
	cookieName string
	key        []byte
	ttl        time.Duration
	secure     bool
	now        func() time.Time
	maxForm    int64
}

// NewManager validates options and builds a Manager.
func NewManager(opts Options) (*Manager, error) {
	if len(opts.SigningKey) == 0 {
		return nil, errors.New("session: signing key is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("session: ttl must be positive")
	}
	name := strings.TrimSpace(opts.CookieName)
	if name == "" {
		name = defaultCookieName
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	maxForm := opts.MaxFormBytes
	if maxForm <= 0 {
		maxForm = DefaultMaxFormBytes
	}
	key := make([]byte, len(opts.SigningKey))
	copy(key, opts.SigningKey)
	return &Manager{cookieName: name, key: key, ttl: opts.TTL, secure: opts.Secure, now: clock, maxForm: maxForm}, nil
}

// Middleware loads the session from the cookie, issuing a fresh one when the cookie is absent,
// tampered with or expired. The session is stored on the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.read(r)
		if err != nil {
			sess = m.issue()
			m.write(w, sess)
		}
		ctx := context.WithValue(r.Context(), contextKey{}, sess)
		ctx = requestctx.WithSessionID(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCSRF rejects unsafe requests whose token does not match the session token. Without the
// header the token is read from the form body, which is capped at the manager's form limit.
func (m *Manager) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		sess, ok := FromContext(r.Context())
		token := r.Header.Get(CSRFHeader)
		if token == "" {
			r.Body = http.MaxBytesReader(w, r.Body, m.maxForm)
			if err := r.ParseForm(); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httpx.WriteError(r.Context(), w, httpx.PayloadTooLarge(m.maxForm))
					return
				}
				httpx.WriteError(r.Context(), w, httpx.NewError("invalid_form", "failed to parse form", http.StatusBadRequest))
				return
			}
			token = r.PostForm.Get(CSRFField)
		}
		if !ok || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1 {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_csrf_token", "missing or invalid CSRF token", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FromContext returns the session bound by Middleware.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	sess, ok := ctx.Value(contextKey{}).(Session)
	return sess, ok
}

func (m *Manager) issue() Session {
	return Session{
		ID:        ulid.Make().String(),
		CSRFToken: randomToken(),
		IssuedAt:  m.now().UTC(),
	}
}

func (m *Manager) read(r *http.Request) (Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return Session{}, ErrInvalidCookie
	}
	return m.Decode(c.Value)
}

// Encode signs the session into a cookie value.
func (m *Manager) Encode(s Session) string {
	payload, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(m.sign(payload))
}

// Decode verifies a cookie value and returns the session it carries.
func (m *Manager) Decode(value string) (Session, error) {
	payloadPart, sigPart, ok := strings.Cut(value, ".")
	if !ok {
		return Session{}, ErrInvalidCookie
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return Session{}, ErrInvalidCookie
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, m.sign(payload)) {
		return Session{}, ErrInvalidCookie
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil || s.ID == "" || s.CSRFToken == "" {
		return Session{}, ErrInvalidCookie
	}
	if m.now().Sub(s.IssuedAt) > m.ttl {
		return Session{}, ErrInvalidCookie
	}
	return s, nil
}

func (m *Manager) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func (m *Manager) write(w http.ResponseWriter, s Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.Encode(s),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.IssuedAt.Add(m.ttl),
	})
}

func randomToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ulid.Make().String()
	}
	return hex.EncodeToString(b)
}
