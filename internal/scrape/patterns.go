package scrape

import "regexp"

// Per-site extraction patterns, kept as data rather than inline code so
// the same tables can back other frontends (the browser extension runs
// the equivalent heuristics against the live DOM).
type sitePatterns struct {
	// botMarkers are textual fingerprints of interdiction pages. Any
	// match short-circuits extraction before price matching runs.
	botMarkers []string

	// requiredAnchor is a selector that a genuine product page always
	// carries; its absence is treated the same as a bot wall.
	requiredAnchor string

	nameSelector   string
	priceSelectors []string
	imageSelectors []string

	stock stockRules
}

var amazonPatterns = sitePatterns{
	botMarkers: []string{
		"api-services-support@amazon.com",
		"captchacharacters",
		"ご迷惑をおかけしています",
		"お客様のリクエストの処理中にエラーが発生しました",
	},
	requiredAnchor: "#productTitle",
	nameSelector:   "#productTitle",
	priceSelectors: []string{
		".a-price-whole",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
	},
	imageSelectors: []string{"#landingImage"},
	stock: stockRules{
		negative: []string{
			"在庫切れ",
			"現在在庫切れです",
			"この商品は現在お取り扱いできません",
			"currently unavailable",
		},
		positive: []string{
			"add-to-cart-button",
			"カートに入れる",
			"在庫あり",
			"残り",
		},
	},
}

var rakutenPatterns = sitePatterns{
	botMarkers: []string{
		"認証にご協力ください",
		"アクセスが集中しています",
	},
	requiredAnchor: `meta[property="og:title"]`,
	nameSelector:   `meta[property="og:title"]`,
	imageSelectors: []string{`meta[property="og:image"]`},
	stock: stockRules{
		negative: []string{
			"売り切れ",
			"完売しました",
			"販売期間外",
			"この商品は現在お取り扱いできません",
		},
		positive: []string{
			"かごに追加",
			"買い物かごに入れる",
			"購入手続きへ",
			"在庫あり",
		},
	},
}

// Rakuten item pages carry the computed price in a calculation config
// node; the inline item config is the fallback for older shop layouts.
var (
	rakutenPriceConfigSelector = "#priceCalculationConfig"
	rakutenItemPriceRe         = regexp.MustCompile(`"itemPrice"\s*:\s*"?([0-9][0-9,]*)"?`)
)

var genericStock = stockRules{
	negative: []string{
		"在庫切れ",
		"売り切れ",
		"品切れ",
		"入荷待ち",
		"sold out",
		"out of stock",
	},
	positive: []string{
		"カートに入れる",
		"カートに追加",
		"在庫あり",
		"購入する",
		"add to cart",
		"in stock",
	},
}
