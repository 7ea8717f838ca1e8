package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"house-treasury/config"
	httpHandler "house-treasury/internal/adapter/http/handler"
	memStorage "house-treasury/internal/adapter/storage/memory"
	pgStorage "house-treasury/internal/adapter/storage/postgres"
	redisStorage "house-treasury/internal/adapter/storage/redis"
	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/internal/service"
	"house-treasury/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles the SQL-side repositories selected by storage.driver.
type storage struct {
	treasuries ports.TreasuryRepository
	games      ports.GameRepository
	ledger     ports.LedgerRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memStorage.NewStore()
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
		return &storage{
			treasuries: memStorage.NewTreasuryRepo(store),
			games:      memStorage.NewGameRepo(store),
			ledger:     memStorage.NewLedgerRepo(store),
			transactor: memStorage.NewTransactor(store),
			health:     memStorage.NewHealthCheck(),
			close:      func() {},
		}, nil
	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return &storage{
			treasuries: pgStorage.NewTreasuryRepo(pool),
			games:      pgStorage.NewGameRepo(pool),
			ledger:     pgStorage.NewLedgerRepo(pool),
			transactor: pgStorage.NewTransactor(pool, cfg.Database.LockTimeout),
			health:     pgStorage.NewHealthCheck(pool),
			close:      pool.Close,
		}, nil
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting House Treasury")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set (HTS_JWT_SECRET)")
	}

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(nonceStore, tokenSvc, cfg.Auth.ChallengeTTL, log)
	treasurySvc := service.NewTreasuryService(
		store.treasuries,
		store.ledger,
		store.transactor,
		domain.StakeBounds{Min: cfg.Treasury.DefaultMinStake, Max: cfg.Treasury.DefaultMaxStake},
		log,
	)
	gameSvc := service.NewGameService(
		store.games,
		store.treasuries,
		store.ledger,
		idempotencyCache,
		store.transactor,
		cfg.Game.FeeBps,
		cfg.Game.SettleCacheTTL,
		log,
	)
	reportingSvc := service.NewReportingService(store.treasuries, store.ledger)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		TreasurySvc:    treasurySvc,
		GameSvc:        gameSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{store.health, redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
