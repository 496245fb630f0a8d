// Package scraper implements the adaptive extraction pipeline: a static
// HTTP fetch, a sufficiency check, an interactive browser-rendered fallback,
// and the section extraction that turns either document into the final
// result.
package scraper

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/sectify/config"
	"github.com/use-agent/sectify/models"
	"github.com/use-agent/sectify/section"
)

// staticFetcher is the capability the coordinator uses for the static pass.
type staticFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// renderFunc is the capability the coordinator uses for the rendered pass.
// Production binds it to Scraper.renderPage; tests substitute a stub.
type renderFunc func(ctx context.Context, url string) (*RenderOutcome, error)

// Scraper manages the global browser lifecycle and the page pool, and owns
// the whole scrape pipeline. It is safe for concurrent use; concurrent
// requests get isolated pages, budgets and event logs.
type Scraper struct {
	browser     *rod.Browser
	pagePool    *pagePool
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	interactCfg config.InteractConfig
	builder     *section.Builder
	fetcher     staticFetcher
	render      renderFunc
}

// NewScraper launches a headless browser and initialises the reusable page
// pool. Close must be called on shutdown to prevent zombie Chrome processes.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	l := launcher.New().
		Headless(cfg.Browser.Headless).
		NoSandbox(cfg.Browser.NoSandbox)

	if cfg.Browser.BrowserBin != "" {
		l = l.Bin(cfg.Browser.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewPipelineError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewPipelineError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	pool := newPagePool(cfg.Browser,
		func() (*rod.Page, error) {
			return browser.Page(proto.TargetCreateTarget{})
		},
		func(p *rod.Page) {
			_ = p.Close()
		},
	)
	slog.Info("page pool created",
		"maxPages", cfg.Browser.MaxPages,
		"maxPageUses", cfg.Browser.MaxPageUses,
		"maxPageAge", cfg.Browser.MaxPageAge,
	)

	s := &Scraper{
		browser:     browser,
		pagePool:    pool,
		browserCfg:  cfg.Browser,
		scraperCfg:  cfg.Scraper,
		interactCfg: cfg.Interact,
		builder:     section.NewBuilder(cfg.Section),
		fetcher:     newHTTPFetcher(cfg.Scraper.FetchTimeout),
	}
	s.render = s.renderPage
	return s, nil
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.browserCfg.MaxPages,
		ActivePages: s.pagePool.activeCount(),
	}
}

// Close drains the page pool and kills the browser process.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining page pool")
	s.pagePool.drain()
	slog.Info("scraper shutting down: closing browser")
	s.browser.MustClose()
	slog.Info("scraper shutdown complete")
}
