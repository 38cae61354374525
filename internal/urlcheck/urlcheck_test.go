package urlcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumidev/pricewatch/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		valid     bool
		source    models.Source
		hostname  string
		sanitized string
	}{
		{
			name:      "amazon product page",
			url:       "https://www.amazon.co.jp/dp/B000123456",
			valid:     true,
			source:    models.SourceAmazon,
			hostname:  "www.amazon.co.jp",
			sanitized: "https://www.amazon.co.jp/dp/B000123456",
		},
		{
			name:     "amazon over plain http rejected but hostname kept",
			url:      "http://www.amazon.co.jp/dp/B000123456",
			valid:    false,
			source:   models.SourceAmazon,
			hostname: "www.amazon.co.jp",
		},
		{
			name:     "rakuten over plain http rejected but hostname kept",
			url:      "http://item.rakuten.co.jp/shop/item-001/",
			valid:    false,
			source:   models.SourceRakuten,
			hostname: "item.rakuten.co.jp",
		},
		{
			name:     "lookalike host is not amazon",
			url:      "https://evil-amazon.co.jp.attacker.example/dp/X",
			valid:    false,
			source:   models.SourceOther,
			hostname: "evil-amazon.co.jp.attacker.example",
		},
		{
			name:      "rakuten item page",
			url:       "https://item.rakuten.co.jp/shop/item-001/",
			valid:     true,
			source:    models.SourceRakuten,
			hostname:  "item.rakuten.co.jp",
			sanitized: "https://item.rakuten.co.jp/shop/item-001/",
		},
		{
			name:      "fragment is dropped",
			url:       "https://www.amazon.co.jp/dp/B000123456#reviews",
			valid:     true,
			source:    models.SourceAmazon,
			hostname:  "www.amazon.co.jp",
			sanitized: "https://www.amazon.co.jp/dp/B000123456",
		},
		{
			name:      "query survives, host lowercased",
			url:       "https://WWW.AMAZON.CO.JP/dp/B000123456?th=1&psc=1",
			valid:     true,
			source:    models.SourceAmazon,
			hostname:  "www.amazon.co.jp",
			sanitized: "https://www.amazon.co.jp/dp/B000123456?th=1&psc=1",
		},
		{
			name:   "unparseable input",
			url:    "://not a url",
			valid:  false,
			source: models.SourceOther,
		},
		{
			name:   "missing host",
			url:    "https:///path-only",
			valid:  false,
			source: models.SourceOther,
		},
		{
			name:     "generic shop is not a commerce match",
			url:      "http://shop.example.com/items/42",
			valid:    false,
			source:   models.SourceOther,
			hostname: "shop.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.url)
			assert.Equal(t, tt.valid, c.Valid)
			assert.Equal(t, tt.source, c.Source)
			assert.Equal(t, tt.hostname, c.Hostname)
			if tt.valid {
				assert.Equal(t, tt.sanitized, c.SanitizedURL)
			} else {
				assert.Empty(t, c.SanitizedURL)
			}
		})
	}
}

func TestSanitizeGenericBlocksInternalTargets(t *testing.T) {
	blocked := []string{
		"http://127.0.0.1/admin",
		"http://localhost:8080/debug/pprof",
		"http://10.0.0.5/x",
		"http://192.168.1.1/router",
		"http://172.16.3.4/metadata",
		"http://169.254.169.254/latest/meta-data",
		"http://printer.local/jobs",
		"http://0.0.0.0/",
		"ftp://shop.example.com/file",
	}

	for _, u := range blocked {
		c := SanitizeGeneric(u)
		assert.False(t, c.Valid, "expected %s to be blocked", u)
	}
}

func TestSanitizeGenericAllowsPublicHosts(t *testing.T) {
	c := SanitizeGeneric("https://shop.example.com/items/42?color=red")
	require.True(t, c.Valid)
	assert.Equal(t, models.SourceOther, c.Source)
	assert.Equal(t, "shop.example.com", c.Hostname)
	assert.Equal(t, "https://shop.example.com/items/42?color=red", c.SanitizedURL)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	t.Run("classify", func(t *testing.T) {
		first := Classify("https://www.amazon.co.jp/dp/B000123456?th=1#frag")
		require.True(t, first.Valid)
		second := Classify(first.SanitizedURL)
		require.True(t, second.Valid)
		assert.Equal(t, first.SanitizedURL, second.SanitizedURL)
	})

	t.Run("generic", func(t *testing.T) {
		first := SanitizeGeneric("http://shop.example.com/items/42?a=1&b=2#frag")
		require.True(t, first.Valid)
		second := SanitizeGeneric(first.SanitizedURL)
		require.True(t, second.Valid)
		assert.Equal(t, first.SanitizedURL, second.SanitizedURL)
	})
}

func TestShortLinkHosts(t *testing.T) {
	assert.True(t, IsShortLinkHost("amzn.to"))
	assert.True(t, IsShortLinkHost("amzn.asia"))
	assert.False(t, IsShortLinkHost("www.amazon.co.jp"))
	assert.False(t, IsShortLinkHost("amzn.to.attacker.example"))
}
