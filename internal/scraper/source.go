package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/bbernstein/surftrack/backend-go/pkg/http/client"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

const (
	forecastTableSelector = "table.forecast-table__table"
	daysButtonSelector    = ".forecast-table-days__button"
	tableWait             = 15 * time.Second
	expandWait            = 5 * time.Second
	expandDelay           = 2 * time.Second
	settleDelay           = 500 * time.Millisecond
)

// PageSource returns the rendered HTML of a page
type PageSource interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageSourceFunc adapts a function to PageSource
type PageSourceFunc func(ctx context.Context, url string) (string, error)

func (f PageSourceFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// HTTPSource fetches pages without executing scripts. The forecast table is
// server rendered, so this works whenever the site does not gate on JS.
type HTTPSource struct {
	client client.Interface
}

func NewHTTPSource(c client.Interface) *HTTPSource {
	return &HTTPSource{client: c}
}

func (s *HTTPSource) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &client.StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return string(resp.Body), nil
}

// BrowserSource drives a shared headless Chrome. Each Fetch opens its own tab.
type BrowserSource struct {
	browserCtx      context.Context
	cancelBrowser   context.CancelFunc
	cancelAllocator context.CancelFunc
}

// NewBrowserSource prepares the browser allocator. Chrome itself is started
// lazily on the first Fetch. An empty chromePath lets chromedp find Chrome.
func NewBrowserSource(chromePath string) *BrowserSource {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(client.DefaultUserAgent),
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocatorCtx)

	return &BrowserSource{
		browserCtx:      browserCtx,
		cancelBrowser:   cancelBrowser,
		cancelAllocator: cancelAllocator,
	}
}

func (b *BrowserSource) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	start := time.Now()
	html, err := render(tabCtx, chromedpTab{}, url)
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("url", url).
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(html)).
		Msg("Rendered forecast page")

	return html, nil
}

// tab is the browser interaction a render needs
type tab interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Count(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
	Sleep(ctx context.Context, d time.Duration) error
	HTML(ctx context.Context) (string, error)
}

// render loads the page, expands the table to every day when the Days button
// is there, and returns the final HTML. Only navigation and reading the HTML
// can fail it: a page without a forecast table comes back as-is and parses
// empty.
func render(ctx context.Context, t tab, url string) (string, error) {
	if err := t.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, tableWait)
	err := t.WaitVisible(waitCtx, forecastTableSelector)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("rendering page: %w", ctx.Err())
		}
		log.Warn().Err(err).Str("url", url).Msg("Forecast table did not appear")
	} else {
		expand(ctx, t, url)
	}

	if err := t.Sleep(ctx, settleDelay); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	html, err := t.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return html, nil
}

func expand(ctx context.Context, t tab, url string) {
	expandCtx, cancel := context.WithTimeout(ctx, expandWait)
	defer cancel()

	n, err := t.Count(expandCtx, daysButtonSelector)
	if err == nil && n == 0 {
		return
	}
	if err == nil {
		err = t.Click(expandCtx, daysButtonSelector)
	}
	if err == nil {
		err = t.Sleep(ctx, expandDelay)
	}
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Expanding forecast days failed")
	}
}

type chromedpTab struct{}

func (chromedpTab) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (chromedpTab) WaitVisible(ctx context.Context, selector string) error {
	return chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (chromedpTab) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf("document.querySelectorAll(%q).length", selector), &n))
	return n, err
}

func (chromedpTab) Click(ctx context.Context, selector string) error {
	return chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (chromedpTab) Sleep(ctx context.Context, d time.Duration) error {
	return chromedp.Run(ctx, chromedp.Sleep(d))
}

func (chromedpTab) HTML(ctx context.Context) (string, error) {
	var html string
	err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Close shuts down the browser
func (b *BrowserSource) Close() {
	b.cancelBrowser()
	b.cancelAllocator()
}

// NewSource picks the page source the configuration asks for. The returned
// func releases it.
func NewSource(cfg *config.Config) (PageSource, func()) {
	if cfg.UseBrowser {
		browser := NewBrowserSource(cfg.ChromePath)
		return browser, browser.Close
	}

	httpClient := client.New(client.Options{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.MaxRetries,
	})
	return NewHTTPSource(httpClient), func() {}
}

// NewFromConfig builds a Scraper over the configured source
func NewFromConfig(cfg *config.Config) (*Scraper, func()) {
	source, closeSource := NewSource(cfg)
	return New(source, WithBaseURL(cfg.ForecastBaseURL), WithTimeout(cfg.FetchTimeout)), closeSource
}
