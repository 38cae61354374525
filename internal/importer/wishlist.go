// Package importer turns a rendered Amazon wishlist page into product
// URLs for bulk tracking.
package importer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var asinPathRe = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)

// WishlistEntry is one product found on a wishlist page.
type WishlistEntry struct {
	ASIN string
	URL  string
	Name string
}

// ParseWishlistHTML extracts the product entries from a wishlist
// page. Entries are deduplicated by ASIN since a wishlist row links
// the same product from both title and image.
func ParseWishlistHTML(html string) ([]WishlistEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wishlist html: %w", err)
	}

	seen := make(map[string]bool)
	var entries []WishlistEntry

	doc.Find(`li[data-itemid] a[href]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		asin := extractASIN(href)
		if asin == "" || seen[asin] {
			return
		}
		seen[asin] = true

		name := strings.TrimSpace(sel.AttrOr("title", ""))
		if name == "" {
			name = strings.TrimSpace(sel.Text())
		}

		entries = append(entries, WishlistEntry{
			ASIN: asin,
			URL:  "https://www.amazon.co.jp/dp/" + asin,
			Name: name,
		})
	})

	// Some wishlist layouts link products outside the item list.
	if len(entries) == 0 {
		doc.Find(`a[href*="/dp/"]`).Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			asin := extractASIN(href)
			if asin == "" || seen[asin] {
				return
			}
			seen[asin] = true
			entries = append(entries, WishlistEntry{
				ASIN: asin,
				URL:  "https://www.amazon.co.jp/dp/" + asin,
				Name: strings.TrimSpace(sel.AttrOr("title", "")),
			})
		})
	}

	return entries, nil
}

func extractASIN(href string) string {
	if href == "" {
		return ""
	}
	// Relative wishlist links carry tracking query params; the path
	// alone holds the ASIN.
	if u, err := url.Parse(href); err == nil {
		href = u.Path
	}
	m := asinPathRe.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}
