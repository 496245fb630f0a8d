package scraper

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/sectify/config"
)

// retireErrScore is the cumulative error score at which a page is retired.
// Failures add 1.0, successes subtract 0.5 (floored at 0), so a page needs
// several failures in a row, not one slow site, before it is replaced.
const retireErrScore = 3.0

const (
	defaultMaxPageUses = 50
	defaultMaxPageAge  = 50 * time.Minute
)

// pageHandle wraps a pooled browser page with health-tracking metadata.
// A handle is checked out by exactly one render session at a time.
type pageHandle struct {
	page     *rod.Page
	mu       sync.Mutex
	errScore float64
	useCount int
	created  time.Time
}

func newPageHandle(page *rod.Page) *pageHandle {
	return &pageHandle{page: page, created: time.Now()}
}

// recordSuccess decreases the error score (min 0).
func (h *pageHandle) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore = math.Max(0, h.errScore-0.5)
}

// recordFailure increases the error score.
func (h *pageHandle) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore += 1.0
}

// shouldRetire reports whether the page has degraded past reuse: too many
// accumulated errors, too many sessions, or too old.
func (h *pageHandle) shouldRetire(maxUses int, maxAge time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errScore >= retireErrScore {
		return true
	}
	if h.useCount >= maxUses {
		return true
	}
	if time.Since(h.created) >= maxAge {
		return true
	}
	return false
}

// stats returns a consistent snapshot for logging.
func (h *pageHandle) stats() (errScore float64, useCount int, age time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errScore, h.useCount, time.Since(h.created)
}

// pageFactory creates a fresh browser page.
type pageFactory func() (*rod.Page, error)

// pageCloser disposes of a browser page.
type pageCloser func(*rod.Page)

// pagePool hands out health-tracked browser pages up to a fixed capacity.
// Pages are created lazily: the pool starts with empty slots and fills them
// on demand. A page returned after too many failures, uses or minutes is
// closed and its slot freed, so the next acquire creates a fresh tab instead
// of recycling a degraded one.
type pagePool struct {
	maxUses int
	maxAge  time.Duration
	factory pageFactory
	closer  pageCloser

	// slots is buffered to the pool capacity; a nil entry is an empty
	// slot, meaning "create a page on demand".
	slots  chan *pageHandle
	active atomic.Int32
}

func newPagePool(cfg config.BrowserConfig, factory pageFactory, closer pageCloser) *pagePool {
	capacity := cfg.MaxPages
	if capacity < 1 {
		capacity = 1
	}
	maxUses := cfg.MaxPageUses
	if maxUses < 1 {
		maxUses = defaultMaxPageUses
	}
	maxAge := cfg.MaxPageAge
	if maxAge <= 0 {
		maxAge = defaultMaxPageAge
	}

	p := &pagePool{
		maxUses: maxUses,
		maxAge:  maxAge,
		factory: factory,
		closer:  closer,
		slots:   make(chan *pageHandle, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.slots <- nil
	}
	return p
}

// get acquires a page, blocking until a slot is free or ctx is done. An
// empty slot is filled by the factory; a factory error returns the slot so
// pool capacity is never lost.
func (p *pagePool) get(ctx context.Context) (*pageHandle, error) {
	var h *pageHandle
	select {
	case h = <-p.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if h == nil {
		page, err := p.factory()
		if err != nil {
			p.slots <- nil
			return nil, err
		}
		h = newPageHandle(page)
		slog.Debug("page pool: created page")
	}

	p.active.Add(1)
	return h, nil
}

// put returns a page to the pool, recording the session outcome. A page due
// for retirement is closed and replaced by an empty slot.
func (p *pagePool) put(h *pageHandle, success bool) {
	p.active.Add(-1)

	if success {
		h.recordSuccess()
	} else {
		h.recordFailure()
	}

	if h.shouldRetire(p.maxUses, p.maxAge) {
		errScore, useCount, age := h.stats()
		slog.Debug("page pool: retiring page",
			"errScore", errScore,
			"useCount", useCount,
			"age", age.Round(time.Second),
		)
		p.closer(h.page)
		p.slots <- nil
		return
	}

	p.slots <- h
}

// activeCount returns the number of currently checked-out pages.
func (p *pagePool) activeCount() int {
	return int(p.active.Load())
}

// drain closes every idle page. Outstanding handles are not waited for; the
// caller is expected to have stopped accepting work first.
func (p *pagePool) drain() {
	for {
		select {
		case h := <-p.slots:
			if h != nil {
				p.closer(h.page)
			}
		default:
			return
		}
	}
}
