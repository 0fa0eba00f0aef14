package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultFallbackPath = ".secrets.local"

// ErrNotFound is returned when neither Secret Manager nor the fallback file holds the secret.
var ErrNotFound = errors.New("secrets: secret not found")

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver turns secret:// and sm:// references into their values. The Secret Manager client is
// dialled on the first reference, so deployments that only use plain values never reach GCP.
type Resolver struct {
	logger        *zap.Logger
	defaultProjID string
	clientOpts    []option.ClientOption
	fallbackPath  string

	clientOnce sync.Once
	client     secretManagerClient
	ownsClient bool

	fallbackOnce sync.Once
	fallbackVals map[string]string
	fallbackErr  error

	mu    sync.RWMutex
	cache map[string]string
}

type resolverConfig struct {
	logger       *zap.Logger
	defaultProj  string
	fallbackPath string
	client       secretManagerClient
	clientOpts   []option.ClientOption
}

// Option customises Resolver construction.
type Option func(*resolverConfig)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *resolverConfig) {
		cfg.logger = logger
	}
}

// WithDefaultProject sets the project used when a reference carries no ?project= override.
func WithDefaultProject(projectID string) Option {
	return func(cfg *resolverConfig) {
		cfg.defaultProj = strings.TrimSpace(projectID)
	}
}

// WithFallbackFile overrides the local secrets file consulted when Secret Manager is unreachable.
func WithFallbackFile(path string) Option {
	return func(cfg *resolverConfig) {
		cfg.fallbackPath = strings.TrimSpace(path)
	}
}

// WithSecretManagerClient injects a preconfigured client (primarily for tests).
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(cfg *resolverConfig) {
		cfg.client = client
	}
}

// WithClientOptions forwards Cloud client options when the client is dialled.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *resolverConfig) {
		cfg.clientOpts = append(cfg.clientOpts, opts...)
	}
}

// NewResolver builds a Resolver. No network calls happen until Resolve sees a reference.
func NewResolver(opts ...Option) *Resolver {
	cfg := resolverConfig{
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackPath,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	r := &Resolver{
		logger:        cfg.logger,
		defaultProjID: cfg.defaultProj,
		clientOpts:    cfg.clientOpts,
		fallbackPath:  cfg.fallbackPath,
		cache:         make(map[string]string),
	}
	if cfg.client != nil {
		r.client = cfg.client
		r.clientOnce.Do(func() {})
	}
	return r
}

// IsReference reports whether value points at Secret Manager rather than holding the secret itself.
func IsReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

// Resolve returns value unchanged unless it is a secret reference, in which case the secret is
// fetched from Secret Manager, or from the fallback file when Secret Manager is unavailable.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	ref, err := parseReference(value)
	if err != nil {
		return "", err
	}

	key := ref.canonical + "#" + ref.version
	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	projectID := ref.project
	if projectID == "" {
		projectID = r.defaultProjID
	}
	if projectID != "" {
		if client := r.dial(ctx); client != nil {
			secret, fetchErr := fetchRemote(ctx, client, projectID, ref)
			if fetchErr == nil {
				r.store(key, secret)
				return secret, nil
			}
			if !isFallbackError(fetchErr) {
				return "", fmt.Errorf("secrets: fetch %s: %w", ref.canonical, fetchErr)
			}
			r.logger.Debug("secret manager unavailable; using fallback file", zap.String("secret", ref.name), zap.Error(fetchErr))
		}
	}

	secret, ok := r.lookupFallback(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref.canonical)
	}
	r.store(key, secret)
	return secret, nil
}

// Close releases the Secret Manager client when the resolver dialled it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Resolver) dial(ctx context.Context) secretManagerClient {
	r.clientOnce.Do(func() {
		client, err := secretManagerClientFactory(ctx, r.clientOpts...)
		if err != nil {
			r.logger.Warn("secret manager client unavailable; using fallback file only", zap.Error(err))
			return
		}
		r.client = client
		r.ownsClient = true
	})
	return r.client
}

func (r *Resolver) store(key, value string) {
	r.mu.Lock()
	r.cache[key] = value
	r.mu.Unlock()
}

func fetchRemote(ctx context.Context, client secretManagerClient, projectID string, ref reference) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", projectID, ref.name, ref.version)
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("secret manager returned empty payload for %s", name)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (r *Resolver) lookupFallback(ref reference) (string, bool) {
	r.fallbackOnce.Do(func() {
		r.fallbackVals, r.fallbackErr = readFallbackFile(r.fallbackPath)
	})
	if r.fallbackErr != nil {
		r.logger.Warn("secrets fallback file unreadable", zap.Error(r.fallbackErr))
		return "", false
	}
	v, ok := r.fallbackVals[ref.canonical]
	return v, ok
}

// readFallbackFile parses lines of the form secret://name=value. Values always answer the latest version.
func readFallbackFile(path string) (map[string]string, error) {
	values := make(map[string]string)
	if path == "" {
		return values, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("secrets: open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		ref, err := parseReference(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		values[ref.canonical] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("secrets: read %s: %w", path, err)
	}
	return values, nil
}

type reference struct {
	canonical string
	name      string
	version   string
	project   string
}

func parseReference(raw string) (reference, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "sm://") {
		trimmed = "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference: %w", err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return reference{}, errors.New("secrets: reference is missing a secret name")
	}
	version := strings.TrimSpace(u.Query().Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{
		canonical: "secret://" + name,
		name:      name,
		version:   version,
		project:   strings.TrimSpace(u.Query().Get("project")),
	}, nil
}

func isFallbackError(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
