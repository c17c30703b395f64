package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

// storage bundles the repositories of the selected driver.
type storage struct {
	wallets    ports.WalletRepository
	txns       ports.TransactionRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
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

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("balance_strategy", cfg.Ledger.BalanceStrategy).
		Msg("Starting Wallet Ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialize storage")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis is optional; the ledger falls back to noop registry and cache.
	var (
		registry       ports.TxIDRegistry
		walletCache    ports.WalletCache
		rateLimitStore *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		registry = redisStorage.NewTxIDRegistry(rdb)
		walletCache = redisStorage.NewWalletCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Initialize services
	ledgerSvc := service.NewLedgerService(
		store.wallets,
		store.txns,
		store.transactor,
		registry,
		walletCache,
		service.LedgerOptions{
			BalanceStrategy: cfg.Ledger.BalanceStrategy,
			TxIDTTL:         cfg.Ledger.TxIDTTL,
		},
		logger.Component(log, "ledger"),
	)
	querySvc := service.NewQueryService(
		store.wallets,
		store.txns,
		walletCache,
		cfg.Ledger.WalletCacheTTL,
		logger.Component(log, "query"),
	)

	// Load OpenAPI document for Swagger UI
	specBytes, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("OpenAPI document not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		QuerySvc:       querySvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		OpenAPISpec:    specBytes,
		Mode:           cfg.Server.Mode,
		Logger:         logger.Component(log, "http"),
	})

	// HTTP Server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStorage wires the repositories of the configured driver.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		mem := memory.NewStore(memory.WithLockTimeout(cfg.Database.LockTimeout))
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		return &storage{
			wallets:    memory.NewWalletRepo(mem),
			txns:       memory.NewTransactionRepo(mem),
			transactor: mem,
			health:     mem,
			close:      func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.Database.MigrateOnStart {
			if err := pgStorage.Migrate(cfg.Database.DSN(), log); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}

		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("PostgreSQL connected")

		return &storage{
			wallets:    pgStorage.NewWalletRepo(pool),
			txns:       pgStorage.NewTransactionRepo(pool),
			transactor: pgStorage.NewTransactor(pool, cfg.Database.LockTimeout),
			health:     pgStorage.NewHealthCheck(pool),
			close:      pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
