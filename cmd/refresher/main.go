package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stockdrop/pkg/config"
	"stockdrop/pkg/database"
	"stockdrop/pkg/external"
	"stockdrop/pkg/markets"

	"github.com/joho/godotenv"
)

func main() {
	log.Println("Starting market overview refresher...")

	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisClient, err := database.NewRedisClient(cfg.Database.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	provider := external.NewFMPClient(cfg.Provider, nil)
	service := markets.NewService(provider, redisClient, cfg.Markets.Indexes, cfg.Markets.Commodities, cfg.Markets.CacheTTL.Std())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := markets.NewRefresher(service)
	if err := refresher.Start(ctx, cfg.Markets.RefreshCron); err != nil {
		log.Fatalf("Failed to start refresher: %v", err)
	}
	defer refresher.Stop()

	log.Printf("Refresher running on schedule %q", cfg.Markets.RefreshCron)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Refresher stopped")
}
