// Package main provides the fax bridge service entry point.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/westmount/faxbridge/internal/api/handlers"
	"github.com/westmount/faxbridge/internal/api/middleware"
	"github.com/westmount/faxbridge/internal/config"
	"github.com/westmount/faxbridge/internal/document"
	"github.com/westmount/faxbridge/internal/fax"
	"github.com/westmount/faxbridge/internal/hosting"
	"github.com/westmount/faxbridge/internal/infrastructure/postgres"
	"github.com/westmount/faxbridge/internal/infrastructure/redpanda"
	"github.com/westmount/faxbridge/internal/observability/metrics"
	"github.com/westmount/faxbridge/internal/observability/tracing"
	"github.com/westmount/faxbridge/internal/submission"
	"github.com/westmount/faxbridge/pkg/circuitbreaker"
	"github.com/westmount/faxbridge/pkg/scheduler"
)

const serviceName = "faxbridge-api"

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		zap.NewExample().Fatal("configuration error", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	traceCfg := tracing.DefaultConfig(serviceName)
	traceCfg.ServiceVersion = handlers.Version
	traceCfg.Environment = cfg.Environment
	traceCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(ctx, traceCfg)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer tp.Shutdown(context.Background())

	appMetrics := metrics.New()

	// Hosting strategy
	var strategy hosting.Strategy
	var registry *hosting.Registry
	var breakers *circuitbreaker.Manager
	if cfg.SelfHostEnabled() {
		registry = hosting.NewRegistry()
		strategy = hosting.NewSelfHost(registry, cfg.PublicBaseURL, logger)
		logger.Info("self-hosted content enabled", zap.String("base_url", cfg.PublicBaseURL))
	} else {
		httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
		providers := []hosting.Provider{
			hosting.NewFileIO(cfg.FileIOEndpoint, httpClient),
			hosting.NewTransferSh(cfg.TransferShEndpoint, httpClient),
		}
		breakers = circuitbreaker.NewManager(logger)
		strategy = hosting.NewChain(providers, breakers, cfg.ProviderTimeout, logger)
	}

	// Fax provider client
	faxClient := fax.NewClient(fax.Config{
		APIURL:       cfg.SinchAPIURL,
		AccessKey:    cfg.SinchAccessKey,
		AccessSecret: cfg.SinchAccessSecret,
		ProjectID:    cfg.SinchProjectID,
		CallbackURL:  cfg.CallbackURL,
		Timeout:      cfg.ProviderTimeout,
	}, logger)

	cleanup := scheduler.New(logger)
	defer cleanup.Stop()

	pipeline := submission.New(submission.Config{
		Destination:     cfg.PharmacyFaxNumber,
		PipelineTimeout: cfg.PipelineTimeout,
		GracePeriod:     cfg.CleanupGracePeriod,
		SaveDir:         cfg.PDFSaveDir,
	}, document.NewRenderer(), strategy, faxClient, registry, cleanup, logger).
		WithMetrics(appMetrics)

	// Optional dispatch audit log
	var audit *postgres.DispatchLog
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("database ping failed", zap.Error(err))
		}
		audit = postgres.NewDispatchLog(pool, logger)
		pipeline.WithAudit(audit)
		logger.Info("dispatch audit log enabled")
	}

	// Optional dispatch event stream
	if len(cfg.KafkaBrokers) > 0 {
		if err := redpanda.EnsureTopics(ctx, cfg.KafkaBrokers, logger); err != nil {
			logger.Fatal("topic setup failed", zap.Error(err))
		}
		producerCfg := redpanda.DefaultProducerConfig()
		producerCfg.Brokers = cfg.KafkaBrokers
		producer, err := redpanda.NewProducer(producerCfg, logger)
		if err != nil {
			logger.Fatal("failed to create event producer", zap.Error(err))
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := producer.Close(flushCtx); err != nil {
				logger.Error("producer close failed", zap.Error(err))
			}
		}()
		pipeline.WithEvents(producer)
		logger.Info("dispatch events enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	faxHandler := handlers.NewFaxHandler(pipeline, faxClient, registry, cfg.PharmacyFaxNumber, logger)
	if breakers != nil {
		faxHandler.WithBreakers(breakers)
	}
	if audit != nil {
		faxHandler.WithAudit(audit)
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing(serviceName))

	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", faxHandler.Routes())

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting fax bridge",
		zap.Int("port", cfg.Port),
		zap.String("hosting_strategy", cfg.HostingStrategy),
		zap.String("destination", cfg.PharmacyFaxNumber),
	)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zapCfg.Build()
	if err != nil {
		logger = zap.NewExample()
		logger.Error("falling back to example logger", zap.Error(err))
	}
	return logger
}
