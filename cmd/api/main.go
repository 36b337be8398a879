package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/skillswap/backend/internal/auth"
	"github.com/skillswap/backend/internal/cache"
	"github.com/skillswap/backend/internal/config"
	"github.com/skillswap/backend/internal/database"
	"github.com/skillswap/backend/internal/execution"
	"github.com/skillswap/backend/internal/handlers"
	"github.com/skillswap/backend/internal/ledger"
	"github.com/skillswap/backend/internal/logging"
	"github.com/skillswap/backend/internal/profiles"
	"github.com/skillswap/backend/internal/repository"
	"github.com/skillswap/backend/internal/router"
	"github.com/skillswap/backend/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger, level := logging.New(cfg.Log)
	slog.SetDefault(logger)
	cfg.OnLogLevelChange(func(l string) {
		level.Set(logging.ParseLevel(l))
		logger.Info("Log level changed", "level", l)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := database.Migrate(ctx, pool, logger); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Audit insert func is set after the River client is created (breaks init cycle)
	var insertMu sync.Mutex
	var insertFn ledger.InsertAuditTxFunc
	insertAudit := func(ctx context.Context, tx pgx.Tx, args execution.LedgerAuditArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return errors.New("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	// Ledger
	ledgerRepo := ledger.NewRepository(pool, insertAudit)
	gateway := services.NewSimulatedGateway(cfg.Ledger.GatewayDelay)
	ledgerSvc := ledger.NewService(ledgerRepo, gateway, ledger.Config{
		GatewayTimeout: cfg.Ledger.GatewayTimeout,
		StoreTimeout:   cfg.Ledger.StoreTimeout,
	}, logger)

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewLedgerAuditWorker(ledgerSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.River.MaxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args execution.LedgerAuditArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Profiles, reviews and the read-through cache
	profileRepo := repository.NewProfileRepo(pool)
	reviewRepo := repository.NewReviewRepo(pool)

	var profileStore interface {
		services.ProfileStore
		profiles.Store
	} = profileRepo
	var reviewStore services.ReviewStore = reviewRepo
	if cfg.Redis.Enabled {
		rc := cache.NewRedis(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger)
		defer rc.Close()
		profileStore = repository.NewCachedProfiles(profileRepo, rc, cfg.Redis.TTL, logger)
		reviewStore = repository.NewCachedReviews(reviewRepo, rc, cfg.Redis.TTL, logger)
	}

	matcher := services.NewMatcher(profileStore, reviewStore, logger)
	matcher.DefaultLimit = cfg.Matching.DefaultLimit

	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	api := router.New(router.Deps{
		Auth:      auth.NewHandler(authSvc, logger),
		Matches:   &handlers.MatchHandler{Matcher: matcher, Logger: logger},
		Ledger:    &handlers.LedgerHandler{Ledger: ledgerSvc, Logger: logger},
		Profiles:  &handlers.ProfileHandler{Profiles: profiles.NewService(profileStore), Logger: logger},
		Tokens:    authSvc,
		Validator: validator,
		Logger:    logger,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(api)

	// Start River client (processes audit jobs)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTP.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River stop failed", "error", err)
	}
}
