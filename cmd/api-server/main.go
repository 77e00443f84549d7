package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockdrop/pkg/api"
	"stockdrop/pkg/auth"
	"stockdrop/pkg/config"
	"stockdrop/pkg/database"
	"stockdrop/pkg/external"
	"stockdrop/pkg/health"
	"stockdrop/pkg/markets"
	"stockdrop/pkg/monitoring"
	"stockdrop/pkg/screener"
	"stockdrop/pkg/settings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgres, err := database.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	if err := database.EnsureSchema(postgres); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	redisClient, err := database.NewRedisClient(cfg.Database.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize components
	metricsCollector := monitoring.NewMetricsCollector()
	provider := external.NewFMPClient(cfg.Provider, metricsCollector)
	pipeline := screener.NewPipeline(provider, cfg.Provider.ScreenerLimit)
	marketsService := markets.NewService(provider, redisClient, cfg.Markets.Indexes, cfg.Markets.Commodities, cfg.Markets.CacheTTL.Std())
	tokenIssuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std())
	authService := auth.NewService(postgres, tokenIssuer, auth.NewLogMailer(), cfg.Auth.ResetTokenTTL.Std())
	settingsStore := settings.NewStore(redisClient, postgres)
	healthChecker := health.NewHealthChecker(postgres, redisClient)

	// Initialize API handlers
	handlers := api.NewHandlers(pipeline, marketsService, authService, settingsStore, healthChecker, metricsCollector)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, handlers, authService, metricsCollector, cfg.Server.RequestsPerMinute)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout.Std(),
		WriteTimeout: cfg.Server.Timeout.Std(),
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting API server on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
