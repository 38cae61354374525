package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/takumidev/pricewatch/internal/models"
	"github.com/takumidev/pricewatch/internal/ratelimit"
)

// Scraper resolves a URL to a normalized result without erroring.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) models.ScrapeResult
}

// ItemStore is the persistence surface the refresher needs.
type ItemStore interface {
	List(ctx context.Context) ([]*models.Item, error)
	ApplyScrape(ctx context.Context, item *models.Item, result models.ScrapeResult) error
}

// Refresher walks the tracked items and re-scrapes each one, pacing
// requests so a batch run does not hammer the target sites.
type Refresher struct {
	store   ItemStore
	scraper Scraper
	limiter ratelimit.Limiter
	logger  *slog.Logger

	// PerItemTimeout bounds a single scrape within the batch.
	PerItemTimeout time.Duration
}

func NewRefresher(store ItemStore, scraper Scraper, limiter ratelimit.Limiter, logger *slog.Logger) *Refresher {
	return &Refresher{
		store:          store,
		scraper:        scraper,
		limiter:        limiter,
		logger:         logger.With("component", "refresher"),
		PerItemTimeout: 30 * time.Second,
	}
}

// BatchResult summarizes one refresh run.
type BatchResult struct {
	Total   int
	Updated int
	Failed  int
}

// RefreshAll re-scrapes every tracked item once. A single item
// failing never aborts the batch; failures are logged and counted.
// Ctx cancellation stops the batch between items.
func (r *Refresher) RefreshAll(ctx context.Context) (BatchResult, error) {
	items, err := r.store.List(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Total: len(items)}
	r.logger.Info("starting refresh batch", "items", len(items))

	for _, item := range items {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Info("refresh batch cancelled",
				"processed", result.Updated+result.Failed,
				"total", result.Total)
			return result, err
		}

		if err := r.refreshOne(ctx, item); err != nil {
			result.Failed++
			r.logger.Error("failed to refresh item",
				"item_id", item.ID,
				"url", item.URL,
				"error", err)
			continue
		}
		result.Updated++
	}

	r.logger.Info("refresh batch complete",
		"total", result.Total,
		"updated", result.Updated,
		"failed", result.Failed)

	return result, nil
}

// RefreshOne re-scrapes a single item by value, used by on-demand
// refreshes that bypass the batch walk.
func (r *Refresher) refreshOne(ctx context.Context, item *models.Item) error {
	scrapeCtx, cancel := context.WithTimeout(ctx, r.PerItemTimeout)
	defer cancel()

	result := r.scraper.Scrape(scrapeCtx, item.URL)

	if result.Price == nil && item.Price != nil {
		r.logger.Warn("scrape returned no price for priced item",
			"item_id", item.ID,
			"note", result.Note)
	}

	return r.store.ApplyScrape(ctx, item, result)
}
