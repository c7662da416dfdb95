package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pinboard-backend/internal/cache"
	"pinboard-backend/internal/config"
	"pinboard-backend/internal/db"
	"pinboard-backend/internal/db/memory"
	"pinboard-backend/internal/media"
	"pinboard-backend/internal/utils"
)

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load(utils.GetEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	c, err := openCache(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to cache: %v", err)
	}
	defer c.Close()

	m, err := openMedia(cfg)
	if err != nil {
		log.Fatalf("Failed to configure media store: %v", err)
	}

	app := NewServer(cfg, store, c, m)

	// Start Server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful Shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	<-sig // Block until signal
	log.Println("Gracefully shutting down...")
	if err := app.ShutdownWithTimeout(cfg.GetShutdownPeriod()); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Println("[DB] Using in-memory store")
		return memory.New(), func() {}, nil
	case "postgres":
		if cfg.AutoMigrate {
			if err := db.MigrationsUp(cfg.DatabaseURL); err != nil {
				return nil, nil, err
			}
		}
		if err := db.InitDB(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		return db.NewRepository(db.Pool), db.CloseDB, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(time.Minute), nil
	}
	return cache.NewRedis(ctx, cfg.RedisURL)
}

func openMedia(cfg *config.Config) (media.Store, error) {
	switch cfg.Media.Driver {
	case "local":
		return media.NewLocal(cfg.Media.UploadDir, cfg.Media.BaseURL)
	case "s3":
		s3cfg := cfg.Media.S3
		return media.NewS3(s3cfg.Bucket, s3cfg.Region, s3cfg.Endpoint, s3cfg.PublicURL)
	}
	return nil, fmt.Errorf("unknown media driver %q", cfg.Media.Driver)
}
