package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voucher-api/internal/config"
	"voucher-api/internal/database"
	"voucher-api/internal/handler"
	"voucher-api/internal/repository"
	"voucher-api/internal/router"
	"voucher-api/internal/seed"
	"voucher-api/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Str("store_backend", cfg.Store.Backend).Msg("starting voucher API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the voucher store and claim ledger backend
	var (
		voucherRepo repository.VoucherRepository
		claimRepo   repository.ClaimRepository
		pinger      router.Pinger
	)

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		voucherRepo = repository.NewVoucherRepository(pool, logger)
		claimRepo = repository.NewClaimRepository(pool, logger)
		pinger = pool

	case config.StoreBackendMemory:
		store := repository.NewMemoryStore(logger)
		voucherRepo = store
		claimRepo = store
		logger.Warn().Msg("using in-memory store, vouchers will not survive a restart")
	}

	// Initialize the voucher service
	voucherService := service.NewVoucherService(voucherRepo, claimRepo, logger)

	// Seed voucher definitions with S3 and local fallback
	if cfg.Seed.Enabled {
		fileLoader := seed.NewFileLoader(logger)
		loader := fileLoader

		if cfg.S3.Enabled {
			s3Loader, err := seed.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
			if err != nil {
				logger.Warn().
					Err(err).
					Msg("failed to initialise S3 seed loader, falling back to local file system only")
			} else {
				loader = seed.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger)
			}
		}

		seeder := seed.NewSeeder(voucherService, loader, logger)
		if err := seeder.Run(ctx, cfg.Seed.FilePath); err != nil {
			return fmt.Errorf("failed to seed vouchers: %w", err)
		}
	}

	// Initialize HTTP handlers
	voucherHandler := handler.NewVoucherHandler(voucherService, logger)
	adminHandler := handler.NewAdminHandler(voucherService, logger)

	// Initialize router
	mux := router.New(voucherHandler, adminHandler, pinger, cfg.Auth.AdminToken, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
