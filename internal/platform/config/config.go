package config

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultEnvironment     = "local"
	defaultLogLevel        = "info"
	defaultSessionTTL      = 24 * time.Hour
	defaultSessionCookie   = "storefront_session"
	defaultSinkTimeout     = 5 * time.Second
	defaultAMQPExchange    = "storefront.orders"
	defaultAMQPRoutingKey  = "order.placed"
	defaultPubSubTopic     = "storefront-orders"
	minSigningKeyBytes     = 32
)

// Order sink names accepted in STOREFRONT_ORDER_SINKS.
const (
	SinkLog    = "log"
	SinkPubSub = "pubsub"
	SinkAMQP   = "amqp"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Storefront  StorefrontConfig
	Session     SessionConfig
	Orders      OrderSinkConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StorefrontConfig holds the public host encoded in the QR code and the catalog source.
type StorefrontConfig struct {
	PublicHost  string
	CatalogFile string
}

// SessionConfig controls the shopper session cookie and in-memory state lifetime.
type SessionConfig struct {
	CookieName   string
	SigningKey   []byte
	TTL          time.Duration
	SecureCookie bool
	// GeneratedKey is set when no signing key was configured and an ephemeral one was created.
	GeneratedKey bool
}

// OrderSinkConfig selects where placed orders are delivered.
type OrderSinkConfig struct {
	Sinks   []string
	Timeout time.Duration
	PubSub  PubSubConfig
	AMQP    AMQPConfig
}

// PubSubConfig targets a Google Cloud Pub/Sub topic.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	EmulatorHost string
}

// AMQPConfig targets a RabbitMQ topic exchange.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Enabled reports whether the named sink is configured.
func (c OrderSinkConfig) Enabled(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// IsLocal reports whether the service runs in a local development environment.
func (c Config) IsLocal() bool {
	return c.Environment == "local" || c.Environment == "dev" || c.Environment == "development"
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretResolver resolves secret:// and sm:// references. Plain values must be returned unchanged.
type SecretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// Resolve calls f.
func (f SecretResolverFunc) Resolve(ctx context.Context, value string) (string, error) {
	return f(ctx, value)
}

// SecretError reports a configuration field whose secret reference could not be resolved.
type SecretError struct {
	Field string
	Err   error
}

// Error implements the error interface. The reference itself is not echoed.
func (e *SecretError) Error() string {
	return fmt.Sprintf("config: resolve secret for %s: %v", e.Field, e.Err)
}

// Unwrap exposes the resolver error.
func (e *SecretError) Unwrap() error {
	return e.Err
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises the loader.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the dotenv file path. An empty path disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for the signing key and AMQP URL when they hold
// secret references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load reads configuration from the explicit map, the process environment and a dotenv file,
// in that order of precedence. Secret-bearing fields may hold secret:// references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	p := parser{lookup: lookup}
	cfg := Config{
		Environment: strings.ToLower(p.str("STOREFRONT_ENV", defaultEnvironment)),
		LogLevel:    p.str("LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Port:            p.str("STOREFRONT_SERVER_PORT", p.str("PORT", defaultPort)),
			ReadTimeout:     p.duration("STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    p.duration("STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     p.duration("STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: p.duration("STOREFRONT_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Storefront: StorefrontConfig{
			PublicHost:  p.str("STOREFRONT_PUBLIC_HOST", p.str("RAILWAY_PUBLIC_DOMAIN", "")),
			CatalogFile: p.str("STOREFRONT_CATALOG_FILE", ""),
		},
		Session: SessionConfig{
			CookieName: p.str("STOREFRONT_SESSION_COOKIE", defaultSessionCookie),
			TTL:        p.duration("STOREFRONT_SESSION_TTL", defaultSessionTTL),
		},
		Orders: OrderSinkConfig{
			Sinks:   p.csv("STOREFRONT_ORDER_SINKS", []string{SinkLog}),
			Timeout: p.duration("STOREFRONT_ORDER_SINK_TIMEOUT", defaultSinkTimeout),
			PubSub: PubSubConfig{
				ProjectID:    p.str("STOREFRONT_PUBSUB_PROJECT_ID", p.str("GOOGLE_CLOUD_PROJECT", "")),
				Topic:        p.str("STOREFRONT_PUBSUB_TOPIC", defaultPubSubTopic),
				EmulatorHost: p.str("PUBSUB_EMULATOR_HOST", ""),
			},
			AMQP: AMQPConfig{
				URL:        p.str("STOREFRONT_AMQP_URL", ""),
				Exchange:   p.str("STOREFRONT_AMQP_EXCHANGE", defaultAMQPExchange),
				RoutingKey: p.str("STOREFRONT_AMQP_ROUTING_KEY", defaultAMQPRoutingKey),
			},
		},
	}
	cfg.Session.SecureCookie = p.boolean("STOREFRONT_SESSION_SECURE_COOKIE", !cfg.IsLocal())

	signingKey, err := resolveSecret(ctx, "Session.SigningKey", p.str("STOREFRONT_SESSION_SIGNING_KEY", ""), options.secret)
	if err != nil {
		return Config{}, err
	}
	if cfg.Orders.AMQP.URL, err = resolveSecret(ctx, "Orders.AMQP.URL", cfg.Orders.AMQP.URL, options.secret); err != nil {
		return Config{}, err
	}

	if signingKey != "" {
		cfg.Session.SigningKey = []byte(signingKey)
	} else if cfg.IsLocal() {
		generated, err := randomKey(minSigningKeyBytes)
		if err != nil {
			return Config{}, fmt.Errorf("config: generate session key: %w", err)
		}
		cfg.Session.SigningKey = generated
		cfg.Session.GeneratedKey = true
	}

	if err := validateConfig(cfg, p.invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, field, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	if resolver == nil {
		return "", &SecretError{Field: field, Err: errSecretResolverNotConfigured}
	}
	resolved, err := resolver.Resolve(ctx, strings.TrimSpace(value))
	if err != nil {
		return "", &SecretError{Field: field, Err: err}
	}
	return resolved, nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if len(cfg.Session.SigningKey) < minSigningKeyBytes {
		missing = append(missing, "Session.SigningKey")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	if cfg.Orders.Timeout <= 0 {
		missing = append(missing, "Orders.Timeout")
	}
	if len(cfg.Orders.Sinks) == 0 {
		missing = append(missing, "Orders.Sinks")
	}
	for _, sink := range cfg.Orders.Sinks {
		switch sink {
		case SinkLog:
		case SinkPubSub:
			if cfg.Orders.PubSub.ProjectID == "" {
				missing = append(missing, "Orders.PubSub.ProjectID")
			}
			if cfg.Orders.PubSub.Topic == "" {
				missing = append(missing, "Orders.PubSub.Topic")
			}
		case SinkAMQP:
			if cfg.Orders.AMQP.URL == "" {
				missing = append(missing, "Orders.AMQP.URL")
			}
			if cfg.Orders.AMQP.Exchange == "" {
				missing = append(missing, "Orders.AMQP.Exchange")
			}
		default:
			missing = append(missing, fmt.Sprintf("Orders.Sinks[%s]", sink))
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func randomKey(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return []byte(hex.EncodeToString(buf)), nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}
