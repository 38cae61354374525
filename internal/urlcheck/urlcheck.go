// Package urlcheck classifies and canonicalizes product-page URLs
// before any network request is made on their behalf.
package urlcheck

import (
	"net"
	"net/url"
	"strings"

	"github.com/takumidev/pricewatch/internal/models"
)

// Classification is the outcome of validating a raw URL. SanitizedURL
// is always rebuilt from parsed components, never by substring edits
// on the input, so a lookalike host can not smuggle itself past the
// hostname checks.
type Classification struct {
	Valid        bool
	Source       models.Source
	Hostname     string
	SanitizedURL string
}

// Hostname allow-lists. Matching is exact string equality. Substring
// or suffix matching would admit attacker-controlled hosts such as
// evil-amazon.co.jp.attacker.example, so any change here must keep the
// comparison exact.
var (
	amazonHosts = map[string]bool{
		"www.amazon.co.jp": true,
		"amazon.co.jp":     true,
		"amazon.jp":        true,
	}

	rakutenHosts = map[string]bool{
		"item.rakuten.co.jp":  true,
		"books.rakuten.co.jp": true,
		"www.rakuten.co.jp":   true,
	}

	// shortLinkHosts are redirect services that mask an Amazon
	// destination. They are expanded before classification.
	shortLinkHosts = map[string]bool{
		"amzn.to":   true,
		"amzn.asia": true,
	}
)

// IsAmazonHost reports whether hostname is an allow-listed Amazon
// product host. Exported for the short-link expander, which must
// re-validate the post-redirect destination on its own.
func IsAmazonHost(hostname string) bool {
	return amazonHosts[strings.ToLower(hostname)]
}

// IsRakutenHost reports whether hostname is an allow-listed Rakuten
// product host.
func IsRakutenHost(hostname string) bool {
	return rakutenHosts[strings.ToLower(hostname)]
}

// IsShortLinkHost reports whether hostname is a known short-link
// service.
func IsShortLinkHost(hostname string) bool {
	return shortLinkHosts[strings.ToLower(hostname)]
}

func invalid() Classification {
	return Classification{Valid: false, Source: models.SourceOther}
}

// Classify parses raw and matches its hostname against the commerce
// allow-lists. Only allow-listed hosts classify as valid, and only
// over https. Every other parseable URL comes back Valid:false with
// the hostname filled in; callers route those through SanitizeGeneric
// when they intend to fall back to the generic extractor.
func Classify(raw string) Classification {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return invalid()
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())

	switch {
	case amazonHosts[host]:
		if scheme != "https" {
			// Keep the hostname so callers can tell a commerce host
			// with a bad scheme apart from an unknown host; the
			// former must never reach the generic extractor.
			return Classification{Valid: false, Source: models.SourceAmazon, Hostname: host}
		}
		return Classification{
			Valid:        true,
			Source:       models.SourceAmazon,
			Hostname:     host,
			SanitizedURL: rebuild(scheme, host, u),
		}
	case rakutenHosts[host]:
		if scheme != "https" {
			return Classification{Valid: false, Source: models.SourceRakuten, Hostname: host}
		}
		return Classification{
			Valid:        true,
			Source:       models.SourceRakuten,
			Hostname:     host,
			SanitizedURL: rebuild(scheme, host, u),
		}
	default:
		return Classification{Valid: false, Source: models.SourceOther, Hostname: host}
	}
}

// SanitizeGeneric validates a URL destined for the generic extractor.
// It accepts http or https to arbitrary public hosts but rejects
// private, loopback and link-local targets so a stored wishlist URL
// can not be used to probe internal infrastructure.
func SanitizeGeneric(raw string) Classification {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return invalid()
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return invalid()
	}

	host := strings.ToLower(u.Hostname())
	if isPrivateHost(host) {
		return invalid()
	}

	return Classification{
		Valid:        true,
		Source:       models.SourceOther,
		Hostname:     host,
		SanitizedURL: rebuild(scheme, host, u),
	}
}

// rebuild reconstructs the canonical URL from parsed parts. Fragments
// are dropped; scheme and host are lowercased; path and query pass
// through as parsed.
func rebuild(scheme, host string, u *url.URL) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	if p := u.Port(); p != "" {
		b.WriteString(":")
		b.WriteString(p)
	}
	if u.Path != "" {
		b.WriteString(u.EscapedPath())
	}
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// isPrivateHost reports whether hostname points at loopback, RFC1918,
// link-local or otherwise internal address space.
func isPrivateHost(hostname string) bool {
	h := strings.ToLower(hostname)

	if h == "localhost" || strings.HasSuffix(h, ".local") {
		return true
	}

	ip := net.ParseIP(h)
	if ip == nil {
		// Not an IP literal. Named hosts are accepted here; DNS
		// rebinding is out of scope for this layer.
		return false
	}

	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
