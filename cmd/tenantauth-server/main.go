// Command tenantauth-server runs the session and access-control HTTP API.
//
// Configuration comes from an optional YAML file (-config) and TENANTAUTH_*
// environment variables. TENANTAUTH_SIGNING_SECRET is required.
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

	"github.com/MrEthical07/tenantauth"
	"github.com/MrEthical07/tenantauth/httpapi"
	"github.com/MrEthical07/tenantauth/identity/memory"
	"github.com/MrEthical07/tenantauth/identity/postgres"
	"github.com/MrEthical07/tenantauth/internal/appconfig"
	"github.com/MrEthical07/tenantauth/internal/logging"
	"github.com/MrEthical07/tenantauth/internal/telemetry"
	otelexport "github.com/MrEthical07/tenantauth/metrics/export/otel"
	"github.com/MrEthical07/tenantauth/metrics/export/prometheus"
	"github.com/MrEthical07/tenantauth/middleware"
	"github.com/common-nighthawk/go-figure"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("TENANTAUTH_CONFIG"), "path to YAML config file")
	quiet := flag.Bool("quiet", false, "skip the startup banner")
	flag.Parse()

	if err := run(*configPath, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "tenantauth-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, quiet bool) error {
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		if errors.Is(err, appconfig.ErrMissingSigningSecret) {
			return fmt.Errorf("refusing to start: %w", err)
		}
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.Telemetry.ServiceName,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	if !quiet {
		figure.NewFigure("tenantauth", "cybermedium", true).Print()
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// Requests fail closed until Redis comes back.
		logger.Warn().Err(err).Strs("addrs", cfg.Redis.Addrs).Msg("redis unreachable at startup")
	}
	cancel()

	users, closeUsers, err := openUserStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	engineCfg := cfg.EngineConfig()
	for _, w := range engineCfg.Lint() {
		logger.Warn().Str("code", w.Code).Str("severity", w.Severity.String()).Msg(w.Message)
	}

	engine, err := tenantauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := engine.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("engine close")
		}
	}()

	otelMetrics, err := otelexport.Register(otel.GetMeterProvider().Meter("github.com/MrEthical07/tenantauth"), engine)
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}
	defer otelMetrics.Close()

	api := httpapi.NewHandler(engine, httpapi.Options{
		Logger:            &logger,
		Metrics:           prometheus.New(engine).Handler(),
		TrustProxyHeaders: cfg.Server.TrustProxy,
		Edge: &middleware.EdgeConfig{
			CookieName:        engine.CookieName(),
			LoginPath:         cfg.Edge.LoginPath,
			ProtectedPrefixes: cfg.Edge.ProtectedPrefixes,
			PublicPaths:       cfg.Edge.PublicPaths,
		},
		StaticDir: cfg.Server.StaticDir,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      otelhttp.NewHandler(api.Routes(), "tenantauth"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openUserStore connects to Postgres when a URL is configured and falls back
// to the in-memory store otherwise.
func openUserStore(ctx context.Context, cfg appconfig.DatabaseConfig, logger zerolog.Logger) (tenantauth.UserProvider, func(), error) {
	if cfg.URL == "" {
		logger.Warn().Msg("no database configured; users are kept in memory")
		return memory.New(), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}

	store := postgres.New(pool)
	if cfg.Migrate {
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := store.Migrate(migrateCtx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("database schema applied")
	}
	return store, pool.Close, nil
}
