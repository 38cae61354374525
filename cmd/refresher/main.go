package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/takumidev/pricewatch/internal/config"
	"github.com/takumidev/pricewatch/internal/database"
	"github.com/takumidev/pricewatch/internal/fetch"
	"github.com/takumidev/pricewatch/internal/jobs"
	"github.com/takumidev/pricewatch/internal/ratelimit"
	"github.com/takumidev/pricewatch/internal/scrape"
)

func main() {
	once := flag.Bool("once", false, "run a single refresh batch and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Price change events written during a batch leave through the
	// same relay the server runs, so a standalone refresher still
	// publishes.
	relay := database.NewRelay(db, redisClient, logger, database.RelayConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("relay stopped with error", "error", err)
		}
	}()

	scraper := scrape.New(fetch.New(cfg.Scraper.Timeout))
	store := database.NewItemRepository(db, cfg.Redis.Stream)
	limiter := ratelimit.NewIntervalLimiter(cfg.Scraper.PaceMin, cfg.Scraper.PaceMax)
	refresher := jobs.NewRefresher(store, scraper, limiter, logger)

	if *once {
		result, err := refresher.RefreshAll(ctx)
		if err != nil {
			logger.Error("refresh batch failed", "error", err)
			os.Exit(1)
		}
		logger.Info("refresh batch done",
			"total", result.Total,
			"updated", result.Updated,
			"failed", result.Failed)
		// Give the relay a moment to drain the outbox.
		time.Sleep(6 * time.Second)
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Scraper.RefreshSchedule, func() {
		if _, err := refresher.RefreshAll(ctx); err != nil && err != context.Canceled {
			logger.Error("scheduled refresh failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid refresh schedule",
			"schedule", cfg.Scraper.RefreshSchedule,
			"error", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("refresher started", "schedule", cfg.Scraper.RefreshSchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down refresher...")
	cancel()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("timed out waiting for running jobs")
	}

	logger.Info("refresher stopped")
}
