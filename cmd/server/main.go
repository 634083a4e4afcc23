package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/minhanhland/inventory/internal/auth"
	"github.com/minhanhland/inventory/internal/config"
	"github.com/minhanhland/inventory/internal/importer"
	"github.com/minhanhland/inventory/internal/notify"
	"github.com/minhanhland/inventory/internal/server"
	"github.com/minhanhland/inventory/internal/store"
	"github.com/minhanhland/inventory/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Getenv("INVENTORY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := setupLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("dbHost", cfg.Database.Host),
		zap.String("dbName", cfg.Database.Name),
		zap.Int("importWorkers", cfg.Import.Workers),
	)

	// Connect to the database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return 1
	}
	defer db.Close()

	products := store.NewPostgresProductsRepository(db)
	masterData := store.NewPostgresMasterDataRepository(db)
	users := store.NewPostgresUsersRepository(db)
	departments := store.NewPostgresDepartmentsRepository(db)
	permissions := store.NewPostgresPermissionsRepository(db)

	// Seed the default admin account on first boot
	if cfg.Auth.AdminPassword != "" {
		hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
		if err != nil {
			logger.Error("failed to hash admin password", zap.Error(err))
			return 1
		}
		if err := users.SeedAdmin(ctx, hash); err != nil {
			logger.Error("failed to seed admin account", zap.Error(err))
			return 1
		}
	}

	// Live update hub
	hub := ws.NewHub(logger)
	go hub.Run(ctx)
	notifier := ws.NewNotifier(hub, logger)

	authSvc := auth.NewService(users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Import reporting (ntfy, optional)
	notifyCfg := notify.LoadConfig()
	if err := notifyCfg.Validate(); err != nil {
		logger.Error("invalid notification config", zap.Error(err))
		return 1
	}
	reporter := notify.New(notifyCfg, logger)

	imp := importer.NewService(products, masterData, reporter, cfg.Import.Workers, logger)

	srv := server.NewServer(cfg, logger, hub, notifier, authSvc,
		products, masterData, users, departments, permissions, imp)
	router := server.NewRouter(srv)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Cancel context to stop the hub
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

func setupLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.DisableStacktrace = true

	if level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(l)
		}
	}

	return zapConfig.Build()
}
