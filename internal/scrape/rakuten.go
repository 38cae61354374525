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

type rakutenExtractor struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func (e *rakutenExtractor) Extract(ctx context.Context, sanitizedURL string) models.ScrapeResult {
	if !urlcheck.IsRakutenHost(hostnameOf(sanitizedURL)) {
		return failureResult(models.SourceRakuten, sourceNameRakuten, noteInvalidURL)
	}

	resp, err := e.fetcher.Get(ctx, sanitizedURL, fetch.ProfileDesktop)
	if resp == nil {
		e.logger.Warn("rakuten fetch failed", "url", sanitizedURL, "error", err)
		return failureResult(models.SourceRakuten, sourceNameRakuten, noteNetwork)
	}

	return parseRakutenPage(resp.Body)
}

// parseRakutenPage extracts name/price/image/stock from fetched
// Rakuten item-page HTML.
func parseRakutenPage(html string) models.ScrapeResult {
	result := models.ScrapeResult{
		Name:        namePlaceholder,
		Source:      models.SourceRakuten,
		SourceName:  sourceNameRakuten,
		StockStatus: models.StockUnknown,
	}

	for _, marker := range rakutenPatterns.botMarkers {
		if strings.Contains(html, marker) {
			result.Note = noteBotRakuten
			return result
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.Name = nameFetchFailed
		result.Note = noteNetwork
		return result
	}

	anchor := doc.Find(rakutenPatterns.requiredAnchor)
	if anchor.Length() == 0 {
		result.Note = noteBotRakuten
		return result
	}

	if content, ok := anchor.First().Attr("content"); ok {
		if name := cleanRakutenTitle(content); name != "" {
			result.Name = name
		}
	}

	result.Price = extractRakutenPrice(html, doc)

	for _, selector := range rakutenPatterns.imageSelectors {
		if content, ok := doc.Find(selector).First().Attr("content"); ok && content != "" {
			result.ImageURL = content
			break
		}
	}

	result.StockStatus = rakutenPatterns.stock.classify(html)

	return result
}

// cleanRakutenTitle strips the marketplace decoration Rakuten puts
// around og:title: a leading 【楽天市場】 badge and a trailing
// ：shop-name label.
func cleanRakutenTitle(title string) string {
	title = strings.TrimPrefix(title, "【楽天市場】")
	if i := strings.LastIndex(title, "："); i > 0 {
		title = title[:i]
	}
	return collapseWhitespace(title)
}

// extractRakutenPrice reads the price calculation config node, then
// falls back to the inline item config used by older shop layouts.
// Absence stays nil; it is never defaulted to zero.
func extractRakutenPrice(html string, doc *goquery.Document) *int {
	if v, ok := doc.Find(rakutenPriceConfigSelector).First().Attr("data-price"); ok {
		if price := parseYen(v); price != nil {
			return price
		}
	}

	if m := rakutenItemPriceRe.FindStringSubmatch(html); len(m) > 1 {
		return parseYen(m[1])
	}

	return nil
}
