// Package main provides the prescription safety API service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/psychrx/go-rxguard/internal/api/handlers"
	"github.com/psychrx/go-rxguard/internal/api/middleware"
	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/policy"
	"github.com/psychrx/go-rxguard/internal/domain/prescription"
	"github.com/psychrx/go-rxguard/internal/domain/screening"
	"github.com/psychrx/go-rxguard/internal/infrastructure/memory"
	"github.com/psychrx/go-rxguard/internal/infrastructure/postgres"
	"github.com/psychrx/go-rxguard/internal/observability/metrics"
	"github.com/psychrx/go-rxguard/internal/observability/tracing"
	"github.com/psychrx/go-rxguard/pkg/circuitbreaker"
	"github.com/psychrx/go-rxguard/pkg/idempotency"
)

// Config holds application configuration
type Config struct {
	Port             string
	DatabaseURL      string
	APIKeys          map[string]string
	OTLPEndpoint     string
	ScreeningWorkers int
	LogLevel         string
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := loadConfig()

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		tc := tracing.DefaultConfig("safety-api")
		tc.OTLPEndpoint = cfg.OTLPEndpoint
		provider, err := tracing.Init(ctx, tc)
		if err != nil {
			logger.Fatal("tracing init failed", zap.Error(err))
		}
		defer provider.Shutdown(context.Background())
		logger.Info("tracing enabled", zap.String("endpoint", cfg.OTLPEndpoint))
	}

	m := metrics.New()

	// Reference data and prescription persistence: postgres when a database
	// is configured, seeded in-memory stores otherwise.
	var (
		medRepo     catalog.Repository
		interRepo   interaction.Repository
		patientRepo prescription.PatientRepository
		regionRepo  policy.ConfigRepository
		sink        prescription.Sink
		eventStore  handlers.EventStore
		inbox       *idempotency.Inbox
		readyCheck  func(context.Context) error
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("database ping failed", zap.Error(err))
		}
		logger.Info("connected to database")

		breakerCfg := circuitbreaker.DefaultConfig("interaction-store")
		breakerCfg.OnStateChange = func(name string, state circuitbreaker.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(state.Value())
		}
		breaker, err := circuitbreaker.New(breakerCfg, logger)
		if err != nil {
			logger.Fatal("circuit breaker init failed", zap.Error(err))
		}

		medRepo = postgres.NewMedicationStore(pool, logger)
		interRepo = postgres.NewGuardedInteractionStore(postgres.NewInteractionStore(pool, logger), breaker)
		patientRepo = postgres.NewPatientStore(pool, logger)
		regionRepo = postgres.NewRegionConfigStore(pool, logger)

		rxStore := postgres.NewPrescriptionStore(pool, logger)
		sink = rxStore
		eventStore = rxStore

		inbox = idempotency.NewInbox(pool, idempotency.DefaultInboxConfig(), logger)
		if recovered, err := inbox.RecoverStaleEntries(ctx); err != nil {
			logger.Warn("inbox recovery failed", zap.Error(err))
		} else if recovered > 0 {
			logger.Info("recovered stale inbox entries", zap.Int64("count", recovered))
		}
		inbox.StartCleanup()
		defer inbox.Stop()

		readyCheck = pool.Ping
	} else {
		logger.Info("no DATABASE_URL set, using seeded in-memory stores")

		medRepo = memory.NewMedicationStore(memory.SeedMedications())
		interRepo = memory.NewInteractionStore(memory.SeedInteractions())
		patientRepo = memory.NewPatientStore(memory.SeedPatients())
		regionRepo = memory.NewRegionConfigStore(memory.DefaultRegionConfigs())

		rxStore := memory.NewPrescriptionStore()
		sink = rxStore
		eventStore = rxStore

		readyCheck = func(context.Context) error { return nil }
	}

	checker := interaction.NewChecker(interRepo)
	searchService := catalog.NewService(medRepo)
	screener := screening.NewScreener(patientRepo, checker, cfg.ScreeningWorkers, logger)

	catalogHandler := handlers.NewCatalogHandler(searchService, screener, m, logger)
	sessionHandler := handlers.NewSessionHandler(
		patientRepo, regionRepo, medRepo, checker, sink, eventStore, inbox, m, logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("safety-api"))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := readyCheck(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))
		r.Mount("/catalog", catalogHandler.Routes())
		r.Mount("/sessions", sessionHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting safety API", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func loadConfig() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	apiKeys := map[string]string{
		"demo-api-key-12345": "demo-client",
	}
	if key := os.Getenv("API_KEY"); key != "" {
		apiKeys[key] = "env-client"
	}

	workers := 8
	if w := os.Getenv("SCREENING_WORKERS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			workers = n
		}
	}

	return Config{
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		APIKeys:          apiKeys,
		OTLPEndpoint:     os.Getenv("OTLP_ENDPOINT"),
		ScreeningWorkers: workers,
		LogLevel:         os.Getenv("LOG_LEVEL"),
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"safety-api","version":"1.0.0"}`)
}
