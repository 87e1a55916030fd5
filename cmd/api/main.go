// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/libranexus/discovery/internal/api"
	"github.com/libranexus/discovery/internal/authz"
	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/config"
	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/fixture"
	"github.com/libranexus/discovery/internal/logging"
	"github.com/libranexus/discovery/internal/report"
	"github.com/libranexus/discovery/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("discovery service stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logging.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	books, txns, closeStores, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStores()

	books = catalog.WithBreaker(books, resilience.New("catalog", cfg.Breaker, catalog.ErrBookNotFound))
	txns = circulation.WithBreaker(txns, resilience.New("circulation", cfg.Breaker))

	engine := discovery.NewService(books, txns, discovery.Config{SearchLimit: cfg.Discovery.SearchLimit})
	reports := report.NewService(engine, books, txns, report.Config{
		RatePerSecond: cfg.Report.RatePerSecond,
		Burst:         cfg.Report.Burst,
	})

	authorizer, err := authz.New(authz.Config{
		Secret:      cfg.Auth.JWTSecret,
		Issuer:      cfg.Auth.Issuer,
		DefaultRole: cfg.Auth.DefaultRole,
	})
	if err != nil {
		return err
	}
	if authorizer == nil {
		logging.Warn().Msg("auth.jwt_secret is empty, authorization disabled")
	}

	router := api.NewRouter(api.NewHandler(engine, reports, books), authorizer, api.Config{
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
		RateWindow:  cfg.Server.RateWindow,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "discovery"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("discovery service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg config.StoreConfig) (catalog.Store, circulation.Store, func(), error) {
	if cfg.Driver == "memory" {
		lib, err := fixture.Load(cfg.FixturePath)
		if err != nil {
			return nil, nil, nil, err
		}
		books, txns, err := lib.MemoryStores()
		if err != nil {
			return nil, nil, nil, err
		}
		logging.Info().Int("books", len(lib.Books)).Int("transactions", len(lib.Transactions)).Msg("serving in-memory library")
		return books, txns, func() {}, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	return catalog.NewPostgresStore(db), circulation.NewPostgresStore(db), func() { _ = db.Close() }, nil
}

func setupTracing(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
