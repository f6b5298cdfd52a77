package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
)

// DefaultTabPool bounds concurrent tabs in the shared browser session.
const DefaultTabPool = 3

// BrowserSession is a persistent headless browser reused across URLs.
// Starting a browser costs seconds; a shared session with a small tab pool
// amortizes that over every JS-heavy page it renders.
//
// Close must be called by whoever owns the session, typically at process
// shutdown.
type BrowserSession struct {
	browser *rod.Browser
	cleanup func()
	tabs    chan struct{}
}

// NewBrowserSession launches a headless browser with a tab pool of tabLimit.
// Fails when no Chromium binary can be found or launched; callers treat that
// as "browser fallback unavailable" and continue without it.
func NewBrowserSession(tabLimit int) (*BrowserSession, error) {
	if tabLimit <= 0 {
		tabLimit = DefaultTabPool
	}

	l := launcher.New().Headless(true).NoSandbox(true)
	if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	tabs := make(chan struct{}, tabLimit)
	for i := 0; i < tabLimit; i++ {
		tabs <- struct{}{}
	}

	return &BrowserSession{
		browser: browser,
		cleanup: l.Cleanup,
		tabs:    tabs,
	}, nil
}

// Render loads the URL in a fresh tab, waits for the page load event plus a
// short settle delay, and returns the rendered DOM.
func (s *BrowserSession) Render(ctx context.Context, pageURL string) ([]byte, error) {
	domain := urlutil.ETLDPlusOne(pageURL)

	select {
	case <-s.tabs:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { s.tabs <- struct{}{} }()

	html, err := s.renderInTab(ctx, pageURL)
	if err != nil {
		metrics.RecordBrowserFallback(domain, "error")
		return nil, err
	}
	metrics.RecordBrowserFallback(domain, "success")
	return html, nil
}

func (s *BrowserSession) renderInTab(ctx context.Context, pageURL string) ([]byte, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.Debug("closing browser tab", slog.Any("error", err))
		}
	}()

	page = page.Context(ctx)
	if err := page.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", pageURL, err)
	}
	// Give client-side rendering a moment after the load event.
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading DOM of %s: %w", pageURL, err)
	}
	return []byte(html), nil
}

// Close shuts the browser down and releases its process.
func (s *BrowserSession) Close() {
	if err := s.browser.Close(); err != nil {
		slog.Debug("closing browser", slog.Any("error", err))
	}
	if s.cleanup != nil {
		s.cleanup()
	}
}
