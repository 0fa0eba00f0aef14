package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/catalog"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/handlers"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/config"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/events"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/observability"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/secrets"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/session"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/services"
)

func main() {
	startedAt := time.Now().UTC()

	var envFile string
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file to read (empty disables)")
	flag.Parse()

	resolver := newSecretResolver()
	defer func() {
		_ = resolver.Close()
	}()

	cfg, err := config.Load(context.Background(),
		config.WithEnvFile(envFile),
		config.WithSecretResolver(resolver),
	)
	if err != nil {
		var invalid *config.ValidationError
		var secretErr *config.SecretError
		if errors.As(err, &secretErr) {
			fmt.Fprintf(os.Stderr, "failed to resolve secret for %s: %v\n", secretErr.Field, secretErr.Err)
		} else if errors.As(err, &invalid) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", invalid.Fields())
		} else {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel, cfg.IsLocal())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	if cfg.Session.GeneratedKey {
		logger.Warn("session signing key not configured; using an ephemeral key")
	}

	var cat *catalog.Catalog
	if cfg.Storefront.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.Storefront.CatalogFile)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		logger.Fatal("failed to load catalog", zap.String("file", cfg.Storefront.CatalogFile), zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("products", cat.Len()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, healthOpts, err := buildOrderSinks(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise order sinks", zap.Error(err))
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("order sink close error", zap.Error(err))
		}
	}()

	metrics, err := observability.NewStorefrontMetrics(nil)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	storefrontService, err := services.NewStorefrontService(services.StorefrontServiceDeps{
		Catalog:     cat,
		Sessions:    services.NewSessionStore(cfg.Session.TTL, nil),
		Orders:      sinks,
		Metrics:     metrics,
		Logger:      logger.Named("service"),
		SinkTimeout: cfg.Orders.Timeout,
	})
	if err != nil {
		logger.Fatal("failed to initialise storefront service", zap.Error(err))
	}

	sessions, err := session.NewManager(session.Options{
		CookieName: cfg.Session.CookieName,
		SigningKey: cfg.Session.SigningKey,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.SecureCookie,
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	renderer, err := handlers.NewRenderer()
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}
	landingHandlers, err := handlers.NewLandingHandlers(handlers.LandingDeps{
		PublicHost: cfg.Storefront.PublicHost,
		Renderer:   renderer,
		Logger:     logger.Named("landing"),
	})
	if err != nil {
		logger.Fatal("failed to initialise landing page", zap.Error(err))
	}
	pageHandlers := handlers.NewPageHandlers(storefrontService, renderer)
	apiHandlers := handlers.NewAPIHandlers(storefrontService)

	healthOpts = append(healthOpts,
		handlers.WithHealthStartedAt(startedAt),
		handlers.WithHealthEnvironment(cfg.Environment),
	)

	httpLogger := logger.Named("http")
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(),
			observability.InjectLoggerMiddleware(httpLogger),
			sessions.Middleware,
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(httpLogger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithLandingRoutes(landingHandlers.Routes),
		handlers.WithPageRoutes(pageHandlers.Routes),
		handlers.WithPageMiddlewares(middleware.Compress(5), sessions.RequireCSRF),
		handlers.WithAPIRoutes(apiHandlers.Routes),
		handlers.WithAPIMiddlewares(sessions.RequireCSRF),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverLogger := httpLogger.With(zap.String("addr", server.Addr))
	serverErr := make(chan error, 1)
	go func() {
		serverLogger.Info("storefront listening",
			zap.String("environment", cfg.Environment),
			zap.Strings("order_sinks", cfg.Orders.Sinks),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received; draining requests")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newSecretResolver reads its own settings from the process environment because it must exist
// before configuration is loaded. Secret Manager is only contacted for secret:// references.
func newSecretResolver() *secrets.Resolver {
	project := os.Getenv("STOREFRONT_SECRETS_PROJECT_ID")
	if project == "" {
		project = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	opts := []secrets.Option{secrets.WithDefaultProject(project)}
	if path := os.Getenv("STOREFRONT_SECRETS_FALLBACK_FILE"); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	return secrets.NewResolver(opts...)
}

// buildOrderSinks dials every configured sink and registers a readiness probe for the remote ones.
func buildOrderSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) (*events.MultiPublisher, []handlers.HealthOption, error) {
	sinks := events.NewMultiPublisher()
	var healthOpts []handlers.HealthOption

	if cfg.Orders.Enabled(config.SinkLog) {
		sinks.Add(config.SinkLog, events.NewLogPublisher(logger))
	}
	if cfg.Orders.Enabled(config.SinkPubSub) {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pub, err := events.DialPubSub(dialCtx, cfg.Orders.PubSub.ProjectID, cfg.Orders.PubSub.Topic, cfg.Orders.PubSub.EmulatorHost)
		cancel()
		if err != nil {
			_ = sinks.Close()
			return nil, nil, err
		}
		sinks.Add(config.SinkPubSub, pub)
		healthOpts = append(healthOpts, handlers.WithReadinessCheck(config.SinkPubSub, pub.Ping))
		logger.Info("pubsub order sink ready", zap.String("topic", cfg.Orders.PubSub.Topic))
	}
	if cfg.Orders.Enabled(config.SinkAMQP) {
		pub, err := events.DialAMQP(cfg.Orders.AMQP.URL, cfg.Orders.AMQP.Exchange, cfg.Orders.AMQP.RoutingKey)
		if err != nil {
			_ = sinks.Close()
			return nil, nil, err
		}
		sinks.Add(config.SinkAMQP, pub)
		healthOpts = append(healthOpts, handlers.WithReadinessCheck(config.SinkAMQP, pub.Ping))
		logger.Info("amqp order sink ready", zap.String("exchange", cfg.Orders.AMQP.Exchange))
	}
	if sinks.Len() == 0 {
		sinks.Add(config.SinkLog, events.NewLogPublisher(logger))
	}
	return sinks, healthOpts, nil
}
