// Package scrape converts a product-page URL into a normalized
// ScrapeResult. The orchestrator routes through URL validation,
// short-link expansion and per-site extractors; its public contract
// never returns an error — every failure mode ends in a well-formed
// diagnostic result.
package scrape

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/takumidev/pricewatch/internal/fetch"
	"github.com/takumidev/pricewatch/internal/models"
	"github.com/takumidev/pricewatch/internal/urlcheck"
)

// Diagnostic strings surfaced to the user. Name is never empty, so
// fetch failures fall back to 取得失敗 the same way the UI expects.
const (
	nameFetchFailed = models.NameFetchFailed
	namePlaceholder = "商品名を取得できませんでした"

	noteInvalidURL = "URLを解析できませんでした。対応しているURLか確認してください。"
	noteBlocked    = "このURLは安全のため取得できません。"
	noteShortLink  = "短縮URLを展開できませんでした。商品ページのURLを直接入力してください。"
	noteNetwork    = "ページを取得できませんでした。時間をおいて再度お試しください。"
	noteBotAmazon  = "Amazonへのアクセスが制限されています。価格は手動で編集してください。"
	noteBotRakuten = "楽天市場へのアクセスが制限されています。価格は手動で編集してください。"
)

const (
	sourceNameAmazon  = "Amazon"
	sourceNameRakuten = "楽天市場"
)

// Fetcher is the single HTTP capability the core consumes. Satisfied
// by *fetch.Client; tests substitute a stub.
type Fetcher interface {
	Get(ctx context.Context, url string, profile fetch.Profile) (*fetch.Response, error)
}

// Scraper is the entry point for all scraping. It holds no mutable
// state between calls, so one instance can serve concurrent callers.
type Scraper struct {
	fetcher Fetcher
	amazon  *amazonExtractor
	rakuten *rakutenExtractor
	generic *genericExtractor
	logger  *slog.Logger
}

func New(f Fetcher) *Scraper {
	logger := slog.Default().With("component", "scraper")
	return &Scraper{
		fetcher: f,
		amazon:  &amazonExtractor{fetcher: f, logger: logger},
		rakuten: &rakutenExtractor{fetcher: f, logger: logger},
		generic: &genericExtractor{fetcher: f, logger: logger},
		logger:  logger,
	}
}

// Scrape resolves rawURL to a normalized result. Linear flow, no
// retries; pacing and retry policy belong to the caller.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) models.ScrapeResult {
	rawURL = strings.TrimSpace(rawURL)

	if host := hostnameOf(rawURL); urlcheck.IsShortLinkHost(host) {
		expanded := s.expandShortLink(ctx, rawURL)
		if expanded == "" {
			return failureResult(models.SourceAmazon, sourceNameAmazon, noteShortLink)
		}
		s.logger.Info("expanded short link", "from", rawURL, "to", expanded)
		rawURL = expanded
	}

	c := urlcheck.Classify(rawURL)
	switch {
	case c.Valid && c.Source == models.SourceAmazon:
		return s.amazon.Extract(ctx, c.SanitizedURL)
	case c.Valid && c.Source == models.SourceRakuten:
		return s.rakuten.Extract(ctx, c.SanitizedURL)
	}

	// A commerce host that failed classification had a disallowed
	// scheme; do not let it fall through to the generic path.
	if urlcheck.IsAmazonHost(c.Hostname) || urlcheck.IsRakutenHost(c.Hostname) {
		return failureResult(models.SourceOther, "", noteInvalidURL)
	}

	g := urlcheck.SanitizeGeneric(rawURL)
	if !g.Valid {
		return failureResult(models.SourceOther, "", noteBlocked)
	}

	return s.generic.Extract(ctx, g.SanitizedURL, g.Hostname)
}

func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// failureResult is the terminal diagnostic shape shared by every
// non-extracting path: name present, price nil, stock unknown, note
// explaining what to do.
func failureResult(source models.Source, sourceName, note string) models.ScrapeResult {
	return models.ScrapeResult{
		Name:        nameFetchFailed,
		Source:      source,
		SourceName:  sourceName,
		StockStatus: models.StockUnknown,
		Note:        note,
	}
}

// parseYen parses a numeric price fragment such as "1,980" or
// "¥2,480". Everything but ASCII digits is stripped and the remainder
// parsed base-10. Returns nil unless the result is a positive integer,
// so an incidental zero never masquerades as a real price.
func parseYen(s string) *int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return nil
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
