package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumidev/pricewatch/internal/models"
)

type stubScraper struct {
	results map[string]models.ScrapeResult
	urls    []string
}

func (s *stubScraper) Scrape(_ context.Context, rawURL string) models.ScrapeResult {
	s.urls = append(s.urls, rawURL)
	return s.results[rawURL]
}

type stubStore struct {
	items    []*models.Item
	listErr  error
	applyErr map[string]error
	applied  []string
}

func (s *stubStore) List(_ context.Context) ([]*models.Item, error) {
	return s.items, s.listErr
}

func (s *stubStore) ApplyScrape(_ context.Context, item *models.Item, result models.ScrapeResult) error {
	if err := s.applyErr[item.URL]; err != nil {
		return err
	}
	s.applied = append(s.applied, item.URL)
	if result.Price != nil {
		item.Price = result.Price
	}
	return nil
}

type noopLimiter struct {
	calls int
}

func (l *noopLimiter) Wait(_ context.Context) error { l.calls++; return nil }

func (l *noopLimiter) SetDelay(_, _ time.Duration) {}

func TestRefreshAll(t *testing.T) {
	t.Run("refreshes every item and paces between them", func(t *testing.T) {
		items := []*models.Item{
			models.NewItem("https://example.jp/p/1", models.ScrapeResult{Name: "商品1", Price: models.IntPtr(1000)}),
			models.NewItem("https://example.jp/p/2", models.ScrapeResult{Name: "商品2", Price: models.IntPtr(2000)}),
		}
		scraper := &stubScraper{results: map[string]models.ScrapeResult{
			"https://example.jp/p/1": {Name: "商品1", Price: models.IntPtr(900), StockStatus: models.StockInStock},
			"https://example.jp/p/2": {Name: "商品2", Price: models.IntPtr(2000), StockStatus: models.StockInStock},
		}}
		store := &stubStore{items: items}
		limiter := &noopLimiter{}

		r := NewRefresher(store, scraper, limiter, slog.Default())
		result, err := r.RefreshAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 2, result.Updated)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, 2, limiter.calls)
		assert.Len(t, scraper.urls, 2)
	})

	t.Run("a failing item does not abort the batch", func(t *testing.T) {
		items := []*models.Item{
			models.NewItem("https://example.jp/p/1", models.ScrapeResult{Name: "商品1"}),
			models.NewItem("https://example.jp/p/2", models.ScrapeResult{Name: "商品2"}),
			models.NewItem("https://example.jp/p/3", models.ScrapeResult{Name: "商品3"}),
		}
		store := &stubStore{
			items: items,
			applyErr: map[string]error{
				"https://example.jp/p/2": errors.New("connection reset"),
			},
		}

		r := NewRefresher(store, &stubScraper{results: map[string]models.ScrapeResult{}}, &noopLimiter{}, slog.Default())
		result, err := r.RefreshAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 2, result.Updated)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, []string{"https://example.jp/p/1", "https://example.jp/p/3"}, store.applied)
	})

	t.Run("cancellation stops between items", func(t *testing.T) {
		items := []*models.Item{
			models.NewItem("https://example.jp/p/1", models.ScrapeResult{Name: "商品1"}),
			models.NewItem("https://example.jp/p/2", models.ScrapeResult{Name: "商品2"}),
		}
		store := &stubStore{items: items}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewRefresher(store, &stubScraper{results: map[string]models.ScrapeResult{}}, cancelledLimiter{}, slog.Default())
		result, err := r.RefreshAll(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, result.Updated)
	})

	t.Run("list failure surfaces", func(t *testing.T) {
		store := &stubStore{listErr: errors.New("db down")}
		r := NewRefresher(store, &stubScraper{}, &noopLimiter{}, slog.Default())

		_, err := r.RefreshAll(context.Background())
		assert.Error(t, err)
	})
}

type cancelledLimiter struct{}

func (cancelledLimiter) Wait(ctx context.Context) error { return ctx.Err() }

func (cancelledLimiter) SetDelay(_, _ time.Duration) {}
