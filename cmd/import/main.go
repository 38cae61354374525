// Command import bulk-loads the products on an Amazon wishlist into
// the tracked item list. Wishlist pages render their item grid with
// JavaScript, so this is the one path that needs a real browser.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/takumidev/pricewatch/internal/browser"
	"github.com/takumidev/pricewatch/internal/config"
	"github.com/takumidev/pricewatch/internal/database"
	"github.com/takumidev/pricewatch/internal/fetch"
	"github.com/takumidev/pricewatch/internal/importer"
	"github.com/takumidev/pricewatch/internal/models"
	"github.com/takumidev/pricewatch/internal/ratelimit"
	"github.com/takumidev/pricewatch/internal/scrape"
)

func main() {
	wishlistURL := flag.String("url", "", "public Amazon wishlist URL")
	headless := flag.Bool("headless", true, "run the browser headless")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *wishlistURL == "" {
		logger.Error("missing -url flag")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

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

	opts := browser.DefaultOptions()
	opts.Headless = *headless
	b, err := browser.New(opts)
	if err != nil {
		logger.Error("failed to start browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		logger.Error("failed to open page", "error", err)
		os.Exit(1)
	}

	html, err := b.WishlistHTML(page, *wishlistURL)
	if err != nil {
		logger.Error("failed to load wishlist", "error", err)
		os.Exit(1)
	}

	entries, err := importer.ParseWishlistHTML(html)
	if err != nil {
		logger.Error("failed to parse wishlist", "error", err)
		os.Exit(1)
	}

	logger.Info("wishlist parsed", "entries", len(entries))

	scraper := scrape.New(fetch.New(cfg.Scraper.Timeout))
	store := database.NewItemRepository(db, cfg.Redis.Stream)
	limiter := ratelimit.NewIntervalLimiter(cfg.Scraper.PaceMin, cfg.Scraper.PaceMax)

	var added, skipped, failed int
	for _, entry := range entries {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		scrapeCtx, scrapeCancel := context.WithTimeout(ctx, 30*time.Second)
		result := scraper.Scrape(scrapeCtx, entry.URL)
		scrapeCancel()

		if result.Name == models.NameFetchFailed && entry.Name != "" {
			// The wishlist itself already told us the name.
			result.Name = entry.Name
		}

		item := models.NewItem(entry.URL, result)
		if err := store.Insert(ctx, item); err != nil {
			if errors.Is(err, database.ErrDuplicateURL) {
				skipped++
				continue
			}
			failed++
			logger.Error("failed to save item", "asin", entry.ASIN, "error", err)
			continue
		}
		added++
		logger.Info("item imported", "asin", entry.ASIN, "name", item.Name, "price", item.Price)
	}

	logger.Info("import complete", "added", added, "skipped", skipped, "failed", failed)
}
