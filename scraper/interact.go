package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/sectify/config"
	"github.com/use-agent/sectify/models"
)

// The driver's heuristics are ordered tables evaluated top to bottom with
// first-match-wins semantics; within one selector, candidates are taken in
// document order.

// dismissTextRe matches consent/cookie-banner accept controls by label.
var dismissTextRe = regexp.MustCompile(`(?i)^(accept( all)?( cookies)?|i agree|agree|got it|ok)$`)

// dismissCloseSelectors match modal-overlay close controls.
var dismissCloseSelectors = []string{
	`[aria-label="Close"]`,
	`button[aria-label*="close" i]`,
	`.modal-close`,
	`.close-button`,
}

// tabSelectors match tab-like controls.
var tabSelectors = []string{
	`[role="tab"]`,
	`button[aria-selected]`,
	`.tab-button`,
}

// loadMoreTextRe matches "Load more / Show more / View more" labels.
var loadMoreTextRe = regexp.MustCompile(`(?i)\b(load|show|view)\s+more\b`)

// loadMoreSelectors match load-more controls by class when no labeled
// control is found.
var loadMoreSelectors = []string{
	`[class*="load-more"]`,
	`[class*="show-more"]`,
	`[class*="view-more"]`,
}

// nextTextRe matches "next page" controls by label.
var nextTextRe = regexp.MustCompile(`(?i)^next( page)?\s*[›»>]?$`)

// nextSelectors match pagination controls by rel and class patterns, in
// priority order. rel="next" is the strongest signal and goes first.
var nextSelectors = []string{
	`a[rel="next"]`,
	`[aria-label*="next" i]`,
	`.pagination .next`,
	`.pager .next`,
}

// clickableSelector is the candidate pool for text-matched controls.
const clickableSelector = `button, a, [role="button"]`

// drivePhase enumerates the driver's states. Phases always run in this
// order; each one is independently skippable when its preconditions fail.
type drivePhase int

const (
	phaseDismiss drivePhase = iota
	phaseTabs
	phaseLoadMore
	phaseScroll
	phasePaginate
	phaseDone
)

func (p drivePhase) String() string {
	switch p {
	case phaseDismiss:
		return "dismiss"
	case phaseTabs:
		return "tabs"
	case phaseLoadMore:
		return "loadMore"
	case phaseScroll:
		return "scroll"
	case phasePaginate:
		return "paginate"
	default:
		return "done"
	}
}

// Budget holds the driver's mutable interaction counters. Each is bounded by
// its configured ceiling; the driver never exceeds them. A Budget belongs to
// exactly one render session and is never shared across requests.
type Budget struct {
	TabsClicked     int
	LoadMoreClicks  int
	Scrolls         int
	PaginationDepth int
}

// Driver is the bounded-step interaction state machine. It operates only on
// the Session capability interface, accumulating an append-only event log
// and recoverable per-step errors.
type Driver struct {
	cfg             config.InteractConfig
	pageLoadTimeout time.Duration
	budget          Budget
	events          []models.InteractionEvent
	errs            []models.ScrapeError
	clicked         map[string]map[string]struct{} // category -> element ID set
}

// NewDriver creates a Driver for one render session.
func NewDriver(cfg config.InteractConfig, pageLoadTimeout time.Duration) *Driver {
	return &Driver{
		cfg:             cfg,
		pageLoadTimeout: pageLoadTimeout,
		events:          []models.InteractionEvent{},
		clicked:         make(map[string]map[string]struct{}),
	}
}

// Budget returns a snapshot of the driver's counters.
func (d *Driver) Budget() Budget {
	return d.budget
}

// Run executes all phases against the session in fixed order, each to its
// individual stop condition, and returns the chronological event log plus
// any recoverable step errors. Run never fails: a broken step is recorded
// and skipped.
func (d *Driver) Run(ctx context.Context, sess Session) ([]models.InteractionEvent, []models.ScrapeError) {
	for ph := phaseDismiss; ph != phaseDone; ph++ {
		if ctx.Err() != nil {
			break
		}
		switch ph {
		case phaseDismiss:
			d.dismissOverlays(ctx, sess)
		case phaseTabs:
			d.revealTabs(ctx, sess)
		case phaseLoadMore:
			d.revealLoadMore(ctx, sess)
		case phaseScroll:
			d.probeScroll(ctx, sess)
		case phasePaginate:
			d.walkPagination(ctx, sess)
		}
	}
	return d.events, d.errs
}

// dismissOverlays runs once, before any content interaction: it clicks the
// first visible consent-accept or overlay-close control, if any. Entirely
// best-effort; failures are cosmetic and swallowed.
func (d *Driver) dismissOverlays(ctx context.Context, sess Session) {
	el, target := d.findByText(sess, clickableSelector, dismissTextRe, "dismiss")
	if el == nil {
		el, target = d.findBySelectors(sess, dismissCloseSelectors, "dismiss")
	}
	if el == nil {
		return
	}
	d.markClicked("dismiss", el)
	if err := el.Click(); err != nil {
		slog.Debug("interact: overlay dismiss failed", "target", target, "error", err)
		return
	}
	d.record(models.InteractDismiss, target, "")
	settle(ctx, d.cfg.SettleShort)
}

// revealTabs clicks distinct tab-like controls until none remain or the
// budget is exhausted. Guard: hasMoreTabs.
func (d *Driver) revealTabs(ctx context.Context, sess Session) {
	for d.budget.TabsClicked < d.cfg.MaxTabClicks && ctx.Err() == nil {
		el, target := d.findBySelectors(sess, tabSelectors, "tab")
		if el == nil {
			return // no more unclicked tabs
		}
		// Mark before clicking so a failing control is never retried.
		d.markClicked("tab", el)
		if err := el.Click(); err != nil {
			d.stepFailed("tab click", target, err)
			continue
		}
		d.budget.TabsClicked++
		d.record(models.InteractTab, target, "")
		d.settleAfterClick(ctx, sess, d.cfg.SettleShort)
	}
}

// revealLoadMore clicks "load/show/view more" controls until none remain or
// the budget is exhausted. Each click is followed by the settle+idle wait.
func (d *Driver) revealLoadMore(ctx context.Context, sess Session) {
	for d.budget.LoadMoreClicks < d.cfg.MaxLoadMoreClicks && ctx.Err() == nil {
		el, target := d.findByText(sess, clickableSelector, loadMoreTextRe, "loadMore")
		if el == nil {
			el, target = d.findBySelectors(sess, loadMoreSelectors, "loadMore")
		}
		if el == nil {
			return
		}
		// The same control is legitimately clicked more than once (each
		// click loads another batch); only a failing control is retired.
		if err := el.Click(); err != nil {
			d.markClicked("loadMore", el)
			d.stepFailed("load-more click", target, err)
			continue
		}
		d.budget.LoadMoreClicks++
		d.record(models.InteractLoadMore, target, "")
		d.settleAfterClick(ctx, sess, d.cfg.SettleLong)
	}
}

// probeScroll scrolls to the bottom of the document, comparing heights
// before and after each scroll. Guard: heightChanged. An unchanged height
// means no new content, so no further scroll is performed or recorded.
func (d *Driver) probeScroll(ctx context.Context, sess Session) {
	prevHeight := -1
	for d.budget.Scrolls < d.cfg.MaxScrolls && ctx.Err() == nil {
		height, err := sess.DocumentHeight()
		if err != nil {
			d.stepFailed("document height probe", "document", err)
			return
		}
		if height == prevHeight {
			return
		}
		if err := sess.ScrollToBottom(); err != nil {
			d.stepFailed("scroll to bottom", "document", err)
			return
		}
		d.budget.Scrolls++
		d.record(models.InteractScroll, "document", "")
		d.settleAfterClick(ctx, sess, d.cfg.SettleLong)
		prevHeight = height
	}
}

// walkPagination follows "next page" controls, re-entering the stability
// wait after each navigation and recording the resulting URL. Guard:
// hasNextLink. A click that does not change the URL ends the walk to avoid
// loops.
func (d *Driver) walkPagination(ctx context.Context, sess Session) {
	prevURL := sess.CurrentURL()
	for d.budget.PaginationDepth < d.cfg.MaxPaginationDepth && ctx.Err() == nil {
		el, target := d.findNext(sess)
		if el == nil {
			return
		}
		if err := el.Click(); err != nil {
			d.stepFailed("pagination click", target, err)
			return
		}

		// Navigation re-enters the stability wait: best-effort idle up
		// to the page-load ceiling, then the long settle delay.
		if err := sess.WaitIdle(d.pageLoadTimeout); err != nil {
			slog.Debug("interact: post-pagination idle wait timed out", "error", err)
		}
		settle(ctx, d.cfg.SettleLong)

		currentURL := sess.CurrentURL()
		if currentURL == "" || currentURL == prevURL {
			return
		}
		d.budget.PaginationDepth++
		d.record(models.InteractPaginate, target, currentURL)
		prevURL = currentURL
	}
}

// findNext locates the next-page control: rel="next" and pagination class
// patterns first, then labeled links.
func (d *Driver) findNext(sess Session) (Element, string) {
	if el, target := d.findBySelectors(sess, nextSelectors, "paginate"); el != nil {
		return el, target
	}
	return d.findByText(sess, clickableSelector, nextTextRe, "paginate")
}

// findBySelectors returns the first visible, not-yet-clicked element across
// the ordered selector table.
func (d *Driver) findBySelectors(sess Session, selectors []string, category string) (Element, string) {
	for _, sel := range selectors {
		els, err := sess.Find(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if !el.Visible() || d.alreadyClicked(category, el) {
				continue
			}
			return el, sel
		}
	}
	return nil, ""
}

// findByText returns the first visible, not-yet-clicked element from the
// candidate pool whose text or aria-label matches the pattern.
func (d *Driver) findByText(sess Session, baseSelector string, re *regexp.Regexp, category string) (Element, string) {
	els, err := sess.Find(baseSelector)
	if err != nil {
		return nil, ""
	}
	for _, el := range els {
		if !el.Visible() || d.alreadyClicked(category, el) {
			continue
		}
		text := strings.TrimSpace(el.Text())
		if re.MatchString(text) || re.MatchString(el.Attribute("aria-label")) {
			if text == "" {
				text = el.Attribute("aria-label")
			}
			return el, fmt.Sprintf("%s %q", baseSelector, text)
		}
	}
	return nil, ""
}

func (d *Driver) alreadyClicked(category string, el Element) bool {
	_, ok := d.clicked[category][el.ID()]
	return ok
}

func (d *Driver) markClicked(category string, el Element) {
	if d.clicked[category] == nil {
		d.clicked[category] = make(map[string]struct{})
	}
	d.clicked[category][el.ID()] = struct{}{}
}

func (d *Driver) record(kind models.InteractionKind, target, resultingURL string) {
	d.events = append(d.events, models.InteractionEvent{
		Kind:         kind,
		Target:       target,
		ResultingURL: resultingURL,
		Timestamp:    time.Now().UTC(),
	})
}

// stepFailed logs a recoverable step failure and records it as an
// interact-phase error. The step is skipped; the driver moves on.
func (d *Driver) stepFailed(step, target string, err error) {
	slog.Warn("interact: step failed", "step", step, "target", target, "error", err)
	d.errs = append(d.errs, models.ScrapeError{
		Phase:   models.PhaseInteract,
		Message: fmt.Sprintf("%s on %s: %v", step, target, err),
	})
}

// settleAfterClick applies the per-interaction wait from the render policy:
// a fixed settle delay followed by a best-effort idle wait whose timeout is
// expected and ignored.
func (d *Driver) settleAfterClick(ctx context.Context, sess Session, delay time.Duration) {
	settle(ctx, delay)
	if err := sess.WaitIdle(d.cfg.IdleTimeout); err != nil {
		slog.Debug("interact: post-click idle wait timed out", "error", err)
	}
}

// settle sleeps for the given duration, returning early on cancellation.
func settle(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
