package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/takumidev/pricewatch/internal/fetch"
	"github.com/takumidev/pricewatch/internal/models"
	"github.com/takumidev/pricewatch/internal/urlcheck"
)

type genericExtractor struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func (e *genericExtractor) Extract(ctx context.Context, sanitizedURL, hostname string) models.ScrapeResult {
	// Redundant with the orchestrator's sanitize step on purpose:
	// this layer must hold even when called directly.
	c := urlcheck.SanitizeGeneric(sanitizedURL)
	if !c.Valid {
		return failureResult(models.SourceOther, "", noteBlocked)
	}

	resp, err := e.fetcher.Get(ctx, c.SanitizedURL, fetch.ProfileDesktop)
	if resp == nil {
		e.logger.Warn("generic fetch failed", "url", sanitizedURL, "error", err)
		return failureResult(models.SourceOther, siteLabel(hostname), noteNetwork)
	}

	return parseGenericPage(resp.Body, resp.FinalURL, hostname)
}

// parseGenericPage runs the heuristic chain against HTML from an
// arbitrary site: title-based name, the prioritized price cascade,
// meta/class-hinted image, generic stock vocabulary.
func parseGenericPage(html, pageURL, hostname string) models.ScrapeResult {
	result := models.ScrapeResult{
		Name:        namePlaceholder,
		Source:      models.SourceOther,
		SourceName:  siteLabel(hostname),
		StockStatus: models.StockUnknown,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.Name = nameFetchFailed
		result.Note = noteNetwork
		return result
	}

	if name := cleanGenericTitle(doc.Find("title").First().Text()); name != "" {
		result.Name = name
	}

	result.Price = runPriceCascade(html, doc)
	result.ImageURL = extractGenericImage(doc, pageURL)
	result.StockStatus = genericStock.classify(html)

	return result
}

// priceStep is one rung of the cascade: pure function from page to
// price, nil meaning "this step found nothing". Steps are evaluated in
// priority order with a short-circuiting fold, so structured data
// always beats free-text matches.
type priceStep struct {
	name string
	fn   func(html string, doc *goquery.Document) *int
}

var priceCascade = []priceStep{
	{"ld+json offers", priceFromJSONLD},
	{"inline JPY pair", priceFromInlineJSON},
	{"shopify minor units", priceFromShopify},
	{"og price meta", priceFromOGMeta},
	{"cart system id", priceFromCartSystemID},
	{"sale price label", priceFromSaleLabel},
	{"price class near yen", priceFromPriceClass},
	{"data-price attribute", priceFromDataPriceAttr},
	{"yen suffix text", priceFromYenSuffix},
	{"yen prefix text", priceFromYenPrefix},
}

func runPriceCascade(html string, doc *goquery.Document) *int {
	for _, step := range priceCascade {
		if price := step.fn(html, doc); price != nil {
			return price
		}
	}
	return nil
}

// --- step 1: application/ld+json -----------------------------------

// jsonLDNode is the loosely-typed shape of a structured data block;
// only the offer-bearing fields are looked at.
type jsonLDNode struct {
	Offers     json.RawMessage `json:"offers"`
	HasVariant []jsonLDNode    `json:"hasVariant"`
	Graph      []jsonLDNode    `json:"@graph"`
}

type jsonLDOffer struct {
	Price         json.RawMessage `json:"price"`
	PriceCurrency string          `json:"priceCurrency"`
}

func priceFromJSONLD(_ string, doc *goquery.Document) *int {
	var found *int

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var nodes []jsonLDNode
		if strings.HasPrefix(raw, "[") {
			if json.Unmarshal([]byte(raw), &nodes) != nil {
				return true
			}
		} else {
			var node jsonLDNode
			if json.Unmarshal([]byte(raw), &node) != nil {
				return true
			}
			nodes = []jsonLDNode{node}
		}

		for _, node := range nodes {
			if price := priceFromNode(node); price != nil {
				found = price
				return false
			}
		}
		return true
	})

	return found
}

func priceFromNode(node jsonLDNode) *int {
	for _, variant := range node.HasVariant {
		if price := offersPrice(variant.Offers); price != nil {
			return price
		}
	}
	if price := offersPrice(node.Offers); price != nil {
		return price
	}
	for _, child := range node.Graph {
		if price := offersPrice(child.Offers); price != nil {
			return price
		}
	}
	return nil
}

// offersPrice accepts either a single offer object or an array, and
// takes the first offer whose currency is JPY or unspecified.
func offersPrice(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var offers []jsonLDOffer
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if json.Unmarshal(raw, &offers) != nil {
			return nil
		}
	} else {
		var offer jsonLDOffer
		if json.Unmarshal(raw, &offer) != nil {
			return nil
		}
		offers = []jsonLDOffer{offer}
	}

	for _, offer := range offers {
		if offer.PriceCurrency != "" && offer.PriceCurrency != "JPY" {
			continue
		}
		if price := rawJSONPrice(offer.Price); price != nil {
			return price
		}
	}
	return nil
}

// rawJSONPrice handles price encoded as a JSON number or a string.
func rawJSONPrice(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var asString string
	if json.Unmarshal(raw, &asString) == nil {
		return parseYen(asString)
	}

	var asNumber float64
	if json.Unmarshal(raw, &asNumber) == nil {
		return parseYen(fmt.Sprintf("%.0f", asNumber))
	}

	return nil
}

// --- steps 2-10 -----------------------------------------------------

var (
	inlineJPYRe      = regexp.MustCompile(`"priceCurrency"\s*:\s*"JPY"`)
	inlinePriceRe    = regexp.MustCompile(`"price"\s*:\s*"?([0-9][0-9,]*)`)
	shopifyMarkerRe  = regexp.MustCompile(`cdn\.shopify\.com|Shopify\.theme`)
	shopifyPriceRe   = regexp.MustCompile(`"price"\s*:\s*([0-9]{3,})`)
	cartSystemIDRe   = regexp.MustCompile(`id="pricech"[^>]*>\s*(?:[¥￥])?\s*([0-9][0-9,]*)`)
	saleLabelRe      = regexp.MustCompile(`(?:販売価格|セール価格|特価)[^0-9¥￥]{0,20}[¥￥]?\s*([0-9][0-9,]*)`)
	priceClassYenRe  = regexp.MustCompile(`(?:class|id)="[^"]*price[^"]*"[^>]*>\s*[¥￥]\s*([0-9][0-9,]*)`)
	yenSuffixRe      = regexp.MustCompile(`([0-9][0-9,]*)\s*円`)
	yenPrefixRe      = regexp.MustCompile(`(?:[¥￥]|JPY)\s*([0-9][0-9,]*)`)
)

// Labeled sale prices below this are more likely unit counts or
// incidental numbers than prices.
const saleLabelMinPrice = 100

// Step 2: an inline price/currency pair with an explicit JPY tag,
// outside of well-formed ld+json (many shops emit this in page config
// scripts).
func priceFromInlineJSON(html string, _ *goquery.Document) *int {
	if !inlineJPYRe.MatchString(html) {
		return nil
	}
	if m := inlinePriceRe.FindStringSubmatch(html); len(m) > 1 {
		return parseYen(m[1])
	}
	return nil
}

// Step 3: Shopify stores price in minor units (sen), scaled by /100.
// Gated on a platform fingerprint so the convention is never applied
// to other sites.
func priceFromShopify(html string, _ *goquery.Document) *int {
	if !shopifyMarkerRe.MatchString(html) {
		return nil
	}
	m := shopifyPriceRe.FindStringSubmatch(html)
	if len(m) < 2 {
		return nil
	}
	minor := parseYen(m[1])
	if minor == nil || *minor < 100 {
		return nil
	}
	yen := *minor / 100
	if yen <= 0 {
		return nil
	}
	return &yen
}

// Step 4: Open Graph / product meta price, accepted only alongside a
// JPY currency meta tag.
func priceFromOGMeta(_ string, doc *goquery.Document) *int {
	currency, _ := doc.Find(`meta[property="og:price:currency"], meta[property="product:price:currency"]`).
		First().Attr("content")
	if strings.ToUpper(strings.TrimSpace(currency)) != "JPY" {
		return nil
	}

	amount, _ := doc.Find(`meta[property="og:price:amount"], meta[property="product:price:amount"]`).
		First().Attr("content")
	return parseYen(amount)
}

// Step 5: the MakeShop cart system renders the computed price into a
// fixed element id.
func priceFromCartSystemID(html string, doc *goquery.Document) *int {
	if text := doc.Find("#pricech").First().Text(); text != "" {
		return parseYen(text)
	}
	if m := cartSystemIDRe.FindStringSubmatch(html); len(m) > 1 {
		return parseYen(m[1])
	}
	return nil
}

// Step 6: a labeled sale price in text, with a plausibility floor.
func priceFromSaleLabel(html string, _ *goquery.Document) *int {
	m := saleLabelRe.FindStringSubmatch(html)
	if len(m) < 2 {
		return nil
	}
	price := parseYen(m[1])
	if price == nil || *price < saleLabelMinPrice {
		return nil
	}
	return price
}

// Step 7: a class or id containing "price" followed by a yen-prefixed
// number.
func priceFromPriceClass(html string, _ *goquery.Document) *int {
	if m := priceClassYenRe.FindStringSubmatch(html); len(m) > 1 {
		return parseYen(m[1])
	}
	return nil
}

// Step 8: data-price attribute anywhere in the document.
func priceFromDataPriceAttr(_ string, doc *goquery.Document) *int {
	var found *int
	doc.Find("[data-price]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("data-price")
		if price := parseYen(v); price != nil {
			found = price
			return false
		}
		return true
	})
	return found
}

// Steps 9-10: bare yen amounts in text. Known, accepted false-positive
// source (shipping fees, unit counts); kept last for coverage.
func priceFromYenSuffix(html string, _ *goquery.Document) *int {
	if m := yenSuffixRe.FindStringSubmatch(html); len(m) > 1 {
		return parseYen(m[1])
	}
	return nil
}

func priceFromYenPrefix(html string, _ *goquery.Document) *int {
	if m := yenPrefixRe.FindStringSubmatch(html); len(m) > 1 {
		return parseYen(m[1])
	}
	return nil
}

// --- name / image / label helpers ----------------------------------

var titleSeparators = []string{" - ", " | ", " – ", " — ", "｜"}

// cleanGenericTitle collapses whitespace and strips a trailing
// site-name suffix after the last dash/pipe separator. goquery already
// decoded HTML entities during parsing.
func cleanGenericTitle(title string) string {
	title = collapseWhitespace(title)

	cut := -1
	for _, sep := range titleSeparators {
		if i := strings.LastIndex(title, sep); i > cut {
			cut = i
		}
	}
	if cut > 0 {
		title = strings.TrimSpace(title[:cut])
	}
	return title
}

// extractGenericImage prefers og:image, then product-photo class
// hints. Relative URLs resolve against the fetched page.
func extractGenericImage(doc *goquery.Document, pageURL string) string {
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && content != "" {
		return resolveImageURL(pageURL, content)
	}

	hintSelectors := []string{
		`img[class*="main"]`,
		`img[class*="product"]`,
		`img[class*="item"]`,
		`img[id*="main"]`,
	}
	for _, selector := range hintSelectors {
		if src, ok := doc.Find(selector).First().Attr("src"); ok && src != "" {
			return resolveImageURL(pageURL, src)
		}
	}

	return ""
}

func resolveImageURL(pageURL, imageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return imageURL
	}
	ref, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// siteLabel derives a human-readable site name from the hostname's
// first label: "www." stripped, first letter capitalized.
func siteLabel(hostname string) string {
	host := strings.TrimPrefix(strings.ToLower(hostname), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
