package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"fleet-telemetry-backend/config"
	"fleet-telemetry-backend/internal/api"
	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/db"
	"fleet-telemetry-backend/internal/notification"
	"fleet-telemetry-backend/internal/store"
	"fleet-telemetry-backend/internal/sweeper"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "fleetd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.AdminToken == "" {
		logger.Fatalf("auth.admin_token must be configured; the credential resolver has no admin constant without it")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	if err := db.SeedAdmin(gormDB, &cfg.Auth); err != nil {
		logger.Fatalf("failed to seed admin account: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	resolver := auth.NewResolver(gormDB, cfg.Auth.AdminToken)
	logger.Println("data store initialized")

	// Maintenance-alert push is optional; without VAPID keys the comment
	// endpoints simply skip alert dispatch.
	var alerts *notification.WorkerPool
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		alerts = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		alerts.Start(ctx)
		logger.Printf("alert worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys are not configured; maintenance alerts disabled")
	}

	// Run the offline sweeper in the background
	sweeperSvc := sweeper.NewService(&cfg.Sweeper, appStore)
	go sweeperSvc.Run(ctx)

	// Initialize router
	router := api.NewRouter(api.RouterOptions{
		Store:           appStore,
		Resolver:        resolver,
		Alerts:          alerts,
		Webpush:         webpushOptions,
		AdminToken:      cfg.Auth.AdminToken,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
