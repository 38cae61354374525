package scrape

import (
	"context"
	"net/url"
	"strings"

	"github.com/takumidev/pricewatch/internal/fetch"
	"github.com/takumidev/pricewatch/internal/urlcheck"
)

// expandShortLink resolves a known short-link URL to its Amazon
// destination. Empty string means expansion failed.
//
// The allow-list check runs here again even though the orchestrator
// already routed by host. After the guarded GET the final hostname is
// re-validated against the Amazon allow-list: a trusted-looking short
// domain must not become a pivot into arbitrary or internal hosts, so
// a redirect chain ending anywhere else fails the expansion no matter
// what status code came back.
func (s *Scraper) expandShortLink(ctx context.Context, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !urlcheck.IsShortLinkHost(u.Hostname()) {
		return ""
	}

	// Mobile profile: some short-link targets vary by client.
	resp, ferr := s.fetcher.Get(ctx, rawURL, fetch.ProfileMobile)
	if resp == nil {
		if ferr != nil {
			s.logger.Warn("short link fetch failed", "url", rawURL, "error", ferr)
		}
		return ""
	}

	final, err := url.Parse(resp.FinalURL)
	if err != nil {
		return ""
	}
	if !urlcheck.IsAmazonHost(strings.ToLower(final.Hostname())) {
		s.logger.Warn("short link resolved outside allow-list",
			"url", rawURL, "final", resp.FinalURL)
		return ""
	}

	return resp.FinalURL
}
