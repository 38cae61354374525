package models

// Source is the coarse origin classification of a scraped URL. It is
// assigned from the URL alone, independent of whether extraction
// succeeded.
type Source string

const (
	SourceAmazon  Source = "amazon"
	SourceRakuten Source = "rakuten"
	SourceOther   Source = "other"
)

// StockStatus is the tri-state stock signal. Unknown is the safe
// default under ambiguity; extractors never invent a positive or
// negative without matching evidence.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockUnknown    StockStatus = "unknown"
)

// ScrapeResult is the normalized output of a single scrape call. It is
// transient; persistence belongs to the item store.
//
// Price is nil when no price pattern matched, which downstream code
// must keep distinguishable from an actual price of zero. Note carries
// an advisory message for the end user (for example when a bot wall
// was hit) without the call itself failing.
type ScrapeResult struct {
	Name        string      `json:"name"`
	Price       *int        `json:"price"`
	ImageURL    string      `json:"image_url,omitempty"`
	Source      Source      `json:"source"`
	SourceName  string      `json:"source_name,omitempty"`
	StockStatus StockStatus `json:"stock_status"`
	Note        string      `json:"note,omitempty"`
}

// NameFetchFailed is the placeholder name a scrape reports when the
// page could not be fetched or parsed. Stores must not overwrite a
// previously known name with it.
const NameFetchFailed = "取得失敗"

// IntPtr is a small helper for building a *int price value.
func IntPtr(v int) *int {
	return &v
}
