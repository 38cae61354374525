package scrape

import (
	"strings"

	"github.com/takumidev/pricewatch/internal/models"
)

// stockRules maps raw HTML to the tri-state stock signal. Negative
// phrases are checked first and win: an out-of-stock banner can share
// a page with cached buy-button markup, and reporting that as in-stock
// would be a false positive the user acts on.
type stockRules struct {
	negative []string
	positive []string
}

func (r stockRules) classify(html string) models.StockStatus {
	lower := strings.ToLower(html)

	for _, phrase := range r.negative {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return models.StockOutOfStock
		}
	}

	for _, phrase := range r.positive {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return models.StockInStock
		}
	}

	return models.StockUnknown
}
