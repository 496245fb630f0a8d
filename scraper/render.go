package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/sectify/models"
)

// RenderOutcome is everything the rendered pass produces: the settled
// markup plus the interaction record that explains how it got there.
type RenderOutcome struct {
	HTML     string
	FinalURL string
	Events   []models.InteractionEvent
	Errors   []models.ScrapeError
}

// renderPage runs the full browser pass for one URL.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Acquire page           – borrow a tab from the pool (or create one)
//  2. DEFER: cleanup         – about:blank + return to pool with the outcome
//  3. Stealth injection      – mask navigator.webdriver etc. (before navigation!)
//  4. Extra headers          – Google-search Referer for the target host
//  5. Hijack mount           – block images/fonts/media (before navigation!)
//  6. Context binding        – propagate the request deadline to all Rod ops
//  7. Navigate + settle      – page load ceiling, DOM stability, settle delay
//  8. Interact               – bounded driver run against the live page
//  9. Extract                – settled HTML + final URL
//
// Steps 3-5 MUST happen before step 7: stealth JS, headers and resource
// blocking only take effect for navigations installed before them. Step 2's
// about:blank uses the ORIGINAL page reference (without request context), so
// cleanup succeeds even if the request context has expired.
func (s *Scraper) renderPage(ctx context.Context, targetURL string) (*RenderOutcome, error) {
	// ── 1. Acquire page from pool ─────────────────────────────────────
	handle, acquireErr := s.pagePool.get(ctx)
	if acquireErr != nil {
		if errors.Is(acquireErr, context.DeadlineExceeded) || errors.Is(acquireErr, context.Canceled) {
			return nil, models.NewPipelineError(
				models.ErrCodeTimeout,
				"timed out waiting for a free page",
				acquireErr,
			)
		}
		return nil, models.NewPipelineError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}
	page := handle.page

	// ── 2. CRITICAL DEFER: prevent DOM memory leak + guarantee pool return.
	// The outcome feeds the pool's health tracking: pages that keep failing
	// get retired instead of recycled.
	sessionOK := false
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank",
				"error", navErr,
			)
		}
		s.pagePool.put(handle, sessionOK)
	}()

	// ── 3. Stealth injection ──────────────────────────────────────────
	if s.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 4. Google-search Referer for the target host ──────────────────
	if u, parseErr := url.Parse(targetURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	// ── 5. Mount hijack router (blocks Image/Font/Media) ──────────────
	router := setupHijack(page, s.scraperCfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Bind request context to page ───────────────────────────────
	p := page.Context(ctx)

	// ── 7. Navigate and settle ────────────────────────────────────────
	navPage := p.Timeout(s.scraperCfg.PageLoadTimeout)
	if navErr := navPage.Navigate(targetURL); navErr != nil {
		navPage.CancelTimeout()
		return nil, categorizeRenderError(navErr, "navigation to target URL failed")
	}
	// NOTE: WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests on Chromium 145+. Use WaitDOMStable instead.
	if stableErr := navPage.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}
	navPage.CancelTimeout()
	settle(ctx, s.scraperCfg.SettleDelay)

	// ── 8. Bounded interaction pass ───────────────────────────────────
	sess := &rodSession{page: p}
	driver := NewDriver(s.interactCfg, s.scraperCfg.PageLoadTimeout)
	events, interactErrs := driver.Run(ctx, sess)

	// ── 9. Extract settled HTML ───────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeRenderError(htmlErr, "failed to extract page HTML")
	}

	finalURL := sess.CurrentURL()
	if finalURL == "" {
		finalURL = targetURL
	}
	sessionOK = true

	slog.Debug("render pass complete",
		"url", targetURL,
		"finalURL", finalURL,
		"htmlBytes", len(rawHTML),
		"interactions", len(events),
	)

	return &RenderOutcome{
		HTML:     rawHTML,
		FinalURL: finalURL,
		Events:   events,
		Errors:   interactErrs,
	}, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeRenderError wraps raw browser errors into typed PipelineErrors
// so the API layer can map them to appropriate HTTP status codes.
func categorizeRenderError(err error, msg string) *models.PipelineError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewPipelineError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewPipelineError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewPipelineError(models.ErrCodeNavigation, msg, err)
	}
}
