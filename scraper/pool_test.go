package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/sectify/config"
)

// poolHarness counts factory and closer invocations. Pages are zero-value
// rod.Page structs; no browser is involved.
type poolHarness struct {
	created int
	closed  int
}

func newTestPool(cfg config.BrowserConfig) (*pagePool, *poolHarness) {
	h := &poolHarness{}
	p := newPagePool(cfg,
		func() (*rod.Page, error) {
			h.created++
			return &rod.Page{}, nil
		},
		func(*rod.Page) {
			h.closed++
		},
	)
	return p, h
}

func mustGet(t *testing.T, p *pagePool) *pageHandle {
	t.Helper()
	h, err := p.get(context.Background())
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	return h
}

func TestPoolRecyclesHealthyPage(t *testing.T) {
	p, h := newTestPool(config.BrowserConfig{MaxPages: 1})

	first := mustGet(t, p)
	p.put(first, true)
	second := mustGet(t, p)

	if first != second {
		t.Error("healthy page was not recycled")
	}
	if h.created != 1 {
		t.Errorf("factory calls = %d, want 1", h.created)
	}
	if h.closed != 0 {
		t.Errorf("closer calls = %d, want 0", h.closed)
	}
}

func TestPoolRetiresAfterRepeatedFailures(t *testing.T) {
	p, h := newTestPool(config.BrowserConfig{MaxPages: 1})

	// Three straight failures push the error score to the retire threshold.
	for i := 0; i < 3; i++ {
		handle := mustGet(t, p)
		p.put(handle, false)
	}

	if h.closed != 1 {
		t.Fatalf("closer calls = %d, want 1 (page retired on third failure)", h.closed)
	}
	if h.created != 1 {
		t.Fatalf("factory calls = %d, want 1 (same page recycled until retirement)", h.created)
	}

	// The freed slot is refilled on demand.
	mustGet(t, p)
	if h.created != 2 {
		t.Errorf("factory calls after refill = %d, want 2", h.created)
	}
}

func TestPoolSuccessOffsetsFailures(t *testing.T) {
	p, h := newTestPool(config.BrowserConfig{MaxPages: 1})

	// fail, fail, success, fail leaves the score below the threshold
	// (1 + 1 - 0.5 + 1 = 2.5); the page survives.
	for _, ok := range []bool{false, false, true, false} {
		handle := mustGet(t, p)
		p.put(handle, ok)
	}
	if h.closed != 0 {
		t.Fatalf("closer calls = %d, want 0 (score should still be below threshold)", h.closed)
	}

	// One more failure crosses it.
	handle := mustGet(t, p)
	p.put(handle, false)
	if h.closed != 1 {
		t.Errorf("closer calls = %d, want 1 after crossing the threshold", h.closed)
	}
}

func TestPoolRetiresAfterMaxUses(t *testing.T) {
	p, h := newTestPool(config.BrowserConfig{MaxPages: 1, MaxPageUses: 3})

	for i := 0; i < 3; i++ {
		handle := mustGet(t, p)
		p.put(handle, true)
	}

	if h.closed != 1 {
		t.Errorf("closer calls = %d, want 1 (retired after 3 uses)", h.closed)
	}
}

func TestPoolRetiresOldPages(t *testing.T) {
	p, h := newTestPool(config.BrowserConfig{MaxPages: 1, MaxPageAge: time.Millisecond})

	handle := mustGet(t, p)
	time.Sleep(5 * time.Millisecond)
	p.put(handle, true)

	if h.closed != 1 {
		t.Errorf("closer calls = %d, want 1 (page older than max age)", h.closed)
	}
}

func TestPoolGetHonorsContext(t *testing.T) {
	p, _ := newTestPool(config.BrowserConfig{MaxPages: 1})

	// Hold the only slot so the next get has to wait.
	handle := mustGet(t, p)
	defer p.put(handle, true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.get(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("get() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestPoolFactoryErrorKeepsSlot(t *testing.T) {
	failNext := true
	p := newPagePool(config.BrowserConfig{MaxPages: 1},
		func() (*rod.Page, error) {
			if failNext {
				failNext = false
				return nil, errors.New("browser gone")
			}
			return &rod.Page{}, nil
		},
		func(*rod.Page) {},
	)

	if _, err := p.get(context.Background()); err == nil {
		t.Fatal("get() expected factory error")
	}

	// The slot survives the failure, so the retry can succeed without
	// blocking.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := p.get(ctx); err != nil {
		t.Fatalf("get() after factory failure error = %v", err)
	}
}

func TestPoolDrainClosesIdlePages(t *testing.T) {
	p, h := newTestPool(config.BrowserConfig{MaxPages: 2})

	a := mustGet(t, p)
	b := mustGet(t, p)
	p.put(a, true)
	p.put(b, true)

	p.drain()
	if h.closed != 2 {
		t.Errorf("closer calls = %d, want 2", h.closed)
	}
}

func TestPoolActiveCount(t *testing.T) {
	p, _ := newTestPool(config.BrowserConfig{MaxPages: 2})

	if got := p.activeCount(); got != 0 {
		t.Fatalf("activeCount() = %d, want 0", got)
	}
	handle := mustGet(t, p)
	if got := p.activeCount(); got != 1 {
		t.Errorf("activeCount() after get = %d, want 1", got)
	}
	p.put(handle, true)
	if got := p.activeCount(); got != 0 {
		t.Errorf("activeCount() after put = %d, want 0", got)
	}
}
