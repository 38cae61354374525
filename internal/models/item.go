package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a tracked wishlist entry.
type Item struct {
	ID          uuid.UUID   `json:"id"`
	URL         string      `json:"url"`
	Name        string      `json:"name"`
	Price       *int        `json:"price"`
	ImageURL    string      `json:"image_url,omitempty"`
	Source      Source      `json:"source"`
	SourceName  string      `json:"source_name,omitempty"`
	StockStatus StockStatus `json:"stock_status"`
	Note        string      `json:"note,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PricePoint is one observation in an item's price history. History
// rows are appended only when the observed price changed.
type PricePoint struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	Price      int       `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewItem builds an Item from a scrape result for first-time
// persistence.
func NewItem(url string, r ScrapeResult) *Item {
	now := time.Now()
	return &Item{
		ID:          uuid.New(),
		URL:         url,
		Name:        r.Name,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		Source:      r.Source,
		SourceName:  r.SourceName,
		StockStatus: r.StockStatus,
		Note:        r.Note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
