// Package browser drives a real Chromium instance for the pages the
// plain HTTP fetcher cannot handle, mainly Amazon wishlists whose
// item list is rendered and extended by JavaScript.
package browser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "ja-JP,ja;q=0.9,en;q=0.8",
		TimezoneID:     "Asia/Tokyo",
		Locale:         "ja-JP",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--window-size=1920,1080",
			"--user-agent=" + opts.UserAgent,
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: context,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(DefaultOptions().Timeout.Milliseconds()))

	return page, nil
}

func (b *Browser) Context() playwright.BrowserContext {
	return b.context
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

func (b *Browser) NavigateWithRetry(page playwright.Page, url string, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(30000),
		})

		if err == nil {
			passed, err := b.checkBotInterstitial(page)
			if err != nil {
				b.logger.Error("failed to check bot interstitial", "error", err)
				lastErr = err
				continue
			}
			if passed {
				b.logger.Info("bot interstitial dismissed")
			}
			return nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// checkBotInterstitial detects Amazon.co.jp's interstitial pages and
// tries the continue button when one is present. CAPTCHAs are not
// solved; detection is reported so the caller can give up cleanly.
func (b *Browser) checkBotInterstitial(page playwright.Page) (bool, error) {
	time.Sleep(2 * time.Second)

	title, err := page.Title()
	if err != nil {
		return false, fmt.Errorf("failed to get page title: %w", err)
	}

	b.logger.Debug("checking page", "title", title)

	content, err := page.Content()
	if err != nil {
		return false, fmt.Errorf("failed to get page content: %w", err)
	}

	if strings.Contains(content, "captchacharacters") {
		return false, fmt.Errorf("captcha page detected")
	}

	if strings.Contains(content, "ご迷惑をおかけしています") ||
		strings.Contains(content, "ショッピングを続ける") {
		b.logger.Info("bot interstitial detected, attempting to continue")

		buttonSelectors := []string{
			`button:has-text("ショッピングを続ける")`,
			`input[type="submit"][value*="続行"]`,
			`.a-button-primary`,
			`button.a-button-text`,
		}

		for _, selector := range buttonSelectors {
			button := page.Locator(selector).First()

			count, err := button.Count()
			if err != nil || count == 0 {
				continue
			}

			b.logger.Info("found continue button", "selector", selector)

			if err := button.Click(); err != nil {
				b.logger.Error("failed to click button", "error", err)
				continue
			}

			time.Sleep(3 * time.Second)

			newContent, _ := page.Content()
			if !strings.Contains(newContent, "ご迷惑をおかけしています") {
				b.logger.Info("interstitial dismissed")
				return true, nil
			}
		}

		return false, fmt.Errorf("could not dismiss bot interstitial")
	}

	return false, nil
}

// WishlistHTML loads a wishlist page and scrolls until no further
// items appear, then returns the rendered HTML. Amazon wishlists load
// in chunks of roughly ten items per scroll.
func (b *Browser) WishlistHTML(page playwright.Page, url string) (string, error) {
	if err := b.NavigateWithRetry(page, url, 3); err != nil {
		return "", err
	}

	const maxScrolls = 50
	lastCount := -1

	for i := 0; i < maxScrolls; i++ {
		count, err := page.Locator(`li[data-itemid]`).Count()
		if err != nil {
			return "", fmt.Errorf("failed to count wishlist items: %w", err)
		}
		if count == lastCount {
			break
		}
		lastCount = count

		if _, err := page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return "", fmt.Errorf("failed to scroll: %w", err)
		}
		time.Sleep(1500 * time.Millisecond)
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get wishlist content: %w", err)
	}

	b.logger.Info("wishlist loaded", "items", lastCount)
	return content, nil
}
