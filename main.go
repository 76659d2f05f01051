package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusbank/internal/cardgen"
	"campusbank/internal/config"
	"campusbank/internal/database"
	"campusbank/internal/handlers"
	"campusbank/internal/logger"
	"campusbank/internal/repository"
	"campusbank/internal/repository/memory"
	"campusbank/internal/service"
)

func main() {
	// Initialize the logger from ENV vars - supports log level and file logging
	logger := logger.NewFromEnv()
	logger.Info("Starting campus banking service")

	cfg := config.Load()
	logger.Info("Configuration loaded - server_address: %s store: %s", cfg.ServerAddress, cfg.Store)

	var (
		userRepo     repository.UserRepository
		accountRepo  repository.AccountRepository
		ledgerRepo   repository.LedgerRepository
		transferRepo repository.TransferRepository
	)

	if cfg.Store == config.StoreMemory {
		store := memory.NewStore()
		userRepo = store.Users()
		accountRepo = store.Accounts()
		ledgerRepo = store.Ledger()
		transferRepo = store.Transfers()
		logger.Warn("Using the in-memory store, all state is lost on shutdown")
	} else {
		db, err := database.NewConnection(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to database: %v", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("Database connection established")

		userRepo = repository.NewUserRepository(db)
		accountRepo = repository.NewAccountRepository(db)
		ledgerRepo = repository.NewLedgerRepository(db)
		transferRepo = repository.NewTransferRepository(db)
	}

	cards := cardgen.NewLocalGenerator()

	accountService := service.NewAccountService(userRepo, accountRepo, ledgerRepo, cards)
	settlementService := service.NewSettlementService(userRepo, accountRepo, ledgerRepo)
	transferService := service.NewTransferService(userRepo, accountRepo, transferRepo)

	accountHandler := handlers.NewAccountHandler(accountService)
	settlementHandler := handlers.NewSettlementHandler(settlementService)
	transferHandler := handlers.NewTransferHandler(transferService)

	router := handlers.SetupRoutes(accountHandler, settlementHandler, transferHandler)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server - address: %s", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Received shutdown signal, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	logger.Info("Server shutdown completed")
}
