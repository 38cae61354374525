package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumidev/pricewatch/internal/models"
)

func TestParseAmazonPage(t *testing.T) {
	result := parseAmazonPage(amazonFixture)

	assert.Equal(t, "Widget", result.Name)
	require.NotNil(t, result.Price)
	assert.Equal(t, 1980, *result.Price)
	assert.Equal(t, models.StockInStock, result.StockStatus)
	assert.Equal(t, "https://m.media-amazon.com/images/I/large.jpg", result.ImageURL)
}

func TestParseAmazonBotWallShortCircuits(t *testing.T) {
	// CAPTCHA page carries no product markup but does carry prices in
	// unrelated places sometimes; fingerprints must win before any
	// price matching.
	html := `<html><body>
		<h4>続行するには、以下の文字を入力してください</h4>
		<form action="/errors/validateCaptcha">
			<input id="captchacharacters">
		</form>
		<span class="a-price-whole">9,999</span>
	</body></html>`

	result := parseAmazonPage(html)

	assert.Nil(t, result.Price)
	assert.Equal(t, models.StockUnknown, result.StockStatus)
	assert.NotEmpty(t, result.Note)
	assert.Equal(t, models.SourceAmazon, result.Source)
}

func TestParseAmazonMissingTitleAnchorTreatedAsInterdiction(t *testing.T) {
	html := `<html><body><p>Service Unavailable</p></body></html>`

	result := parseAmazonPage(html)

	assert.Nil(t, result.Price)
	assert.NotEmpty(t, result.Note)
	assert.Equal(t, models.StockUnknown, result.StockStatus)
}

func TestParseAmazonPriceAbsenceIsNil(t *testing.T) {
	html := `<html><body>
		<span id="productTitle">Widget Without Price</span>
	</body></html>`

	result := parseAmazonPage(html)

	assert.Equal(t, "Widget Without Price", result.Name)
	assert.Nil(t, result.Price, "missing price must stay nil, not zero")
}

func TestParseAmazonOutOfStockBeatsCartButton(t *testing.T) {
	html := `<html><body>
		<span id="productTitle">Widget</span>
		<div id="availability">在庫切れ</div>
		<input id="add-to-cart-button" type="submit">
	</body></html>`

	result := parseAmazonPage(html)
	assert.Equal(t, models.StockOutOfStock, result.StockStatus)
}

func TestParseAmazonLegacyPriceBlock(t *testing.T) {
	html := `<html><body>
		<span id="productTitle">Widget</span>
		<span id="priceblock_ourprice">￥12,800</span>
	</body></html>`

	result := parseAmazonPage(html)
	require.NotNil(t, result.Price)
	assert.Equal(t, 12800, *result.Price)
}

func TestParseAmazonImageFallsBackToSrc(t *testing.T) {
	html := `<html><body>
		<span id="productTitle">Widget</span>
		<img id="landingImage" src="https://m.media-amazon.com/images/I/only.jpg">
	</body></html>`

	result := parseAmazonPage(html)
	assert.Equal(t, "https://m.media-amazon.com/images/I/only.jpg", result.ImageURL)
}
