package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sjlangley/social-golf-spa/pkg/api"
	"github.com/sjlangley/social-golf-spa/pkg/auth"
	"github.com/sjlangley/social-golf-spa/pkg/config"
	"github.com/sjlangley/social-golf-spa/pkg/docstore"
	"github.com/sjlangley/social-golf-spa/pkg/middleware"
	"github.com/sjlangley/social-golf-spa/pkg/observability"
	"github.com/sjlangley/social-golf-spa/pkg/rbac"
	"github.com/sjlangley/social-golf-spa/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var providers *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		providers, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			logrus.Fatalf("Failed to initialize OpenTelemetry: %v", err)
		}
	}

	var store docstore.Store
	var db *sql.DB
	switch cfg.Store.Type {
	case "postgres":
		db, err = sql.Open("postgres", cfg.Store.PostgresURL)
		if err != nil {
			logrus.Fatalf("Failed to open database: %v", err)
		}
		if err := db.PingContext(ctx); err != nil {
			logrus.Fatalf("Failed to ping database: %v", err)
		}
		pg := docstore.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			logrus.Fatalf("Failed to migrate documents table: %v", err)
		}
		store = pg
	default:
		logger.Warn("using in-memory document store, data will not survive a restart")
		store = docstore.NewMemoryStore()
	}
	defer store.Close()

	var redisClient *redis.Client
	if cfg.Store.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisURL,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		defer redisClient.Close()
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	rbacCfg := rbac.DefaultConfig()
	if cfg.RBAC.PolicyFile != "" {
		rbacCfg, err = rbac.LoadConfigFile(cfg.RBAC.PolicyFile)
		if err != nil {
			logrus.Fatalf("Failed to load role policy: %v", err)
		}
	}
	engine := rbac.NewEngine(rbacCfg, logger)
	if cfg.RBAC.PolicyFile != "" && cfg.RBAC.WatchPolicy {
		if err := rbac.WatchConfigFile(ctx, engine, cfg.RBAC.PolicyFile, logger); err != nil {
			logrus.Fatalf("Failed to watch role policy file: %v", err)
		}
	}

	userService := users.NewService(store, logger, metrics, cfg.Users.CacheSize, cfg.Users.CacheTTL)

	var authMiddleware *middleware.Auth
	if cfg.AuthBypassed() {
		logger.Warn("authentication disabled, all requests use the local development identity")
		authMiddleware = middleware.NewBypassAuth(middleware.BypassIdentity(), logger)
	} else {
		verifier, err := auth.NewOIDCVerifier(ctx, auth.VerifierConfig{
			IssuerURL: cfg.Auth.Issuer,
			ClientID:  cfg.Auth.ClientID,
		}, logger)
		if err != nil {
			logrus.Fatalf("Failed to initialize token verifier: %v", err)
		}
		authMiddleware = middleware.NewAuth(verifier, userService, logger, metrics)
	}

	health := observability.NewHealthChecker(db, redisClient)

	server := api.NewServer(api.Options{
		Users:       userService,
		Engine:      engine,
		Auth:        authMiddleware,
		Logger:      logger,
		Metrics:     metrics,
		Health:      health,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	var handler http.Handler = server
	if providers != nil {
		handler = otelhttp.NewHandler(handler, "golf-api")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Separate listener for probes and metrics so they stay reachable
	// when the API port is saturated.
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", health.Liveness)
	healthMux.HandleFunc("/health/ready", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("starting API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("API server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("health server shutdown failed")
		}
		if providers != nil {
			if err := providers.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("OpenTelemetry shutdown failed")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logrus.Fatalf("Server error: %v", err)
	}
	logger.Info("stopped")
}
