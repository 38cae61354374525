package scrape

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/takumidev/pricewatch/internal/fetch"
	"github.com/takumidev/pricewatch/internal/models"
	"github.com/takumidev/pricewatch/internal/urlcheck"
)

type amazonExtractor struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// Extract fetches an Amazon product page and parses it. The hostname
// is re-verified against the Amazon allow-list before any request goes
// out, independent of what the router decided.
func (e *amazonExtractor) Extract(ctx context.Context, sanitizedURL string) models.ScrapeResult {
	if !urlcheck.IsAmazonHost(hostnameOf(sanitizedURL)) {
		return failureResult(models.SourceAmazon, sourceNameAmazon, noteInvalidURL)
	}

	// Bot walls are served with non-2xx statuses but a meaningful
	// body, so the body is parsed whenever a response came back at
	// all.
	resp, err := e.fetcher.Get(ctx, sanitizedURL, fetch.ProfileDesktop)
	if resp == nil {
		e.logger.Warn("amazon fetch failed", "url", sanitizedURL, "error", err)
		return failureResult(models.SourceAmazon, sourceNameAmazon, noteNetwork)
	}

	return parseAmazonPage(resp.Body)
}

// parseAmazonPage extracts name/price/image/stock from fetched Amazon
// HTML. Pure: no network, safe to exercise directly in tests.
func parseAmazonPage(html string) models.ScrapeResult {
	result := models.ScrapeResult{
		Name:        namePlaceholder,
		Source:      models.SourceAmazon,
		SourceName:  sourceNameAmazon,
		StockStatus: models.StockUnknown,
	}

	for _, marker := range amazonPatterns.botMarkers {
		if strings.Contains(html, marker) {
			result.Note = noteBotAmazon
			return result
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.Name = nameFetchFailed
		result.Note = noteNetwork
		return result
	}

	title := doc.Find(amazonPatterns.requiredAnchor)
	if title.Length() == 0 {
		// No product title anchor at all: interstitial or stripped
		// page rather than layout drift.
		result.Note = noteBotAmazon
		return result
	}

	if name := collapseWhitespace(title.First().Text()); name != "" {
		result.Name = name
	}

	for _, selector := range amazonPatterns.priceSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if price := parseYen(text); price != nil {
			result.Price = price
			break
		}
	}

	for _, selector := range amazonPatterns.imageSelectors {
		img := doc.Find(selector).First()
		if img.Length() == 0 {
			continue
		}
		if hires, ok := img.Attr("data-old-hires"); ok && hires != "" {
			result.ImageURL = hires
			break
		}
		if src, ok := img.Attr("src"); ok && src != "" {
			result.ImageURL = src
			break
		}
	}

	result.StockStatus = amazonPatterns.stock.classify(html)

	return result
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
