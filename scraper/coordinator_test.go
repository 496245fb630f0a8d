package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/sectify/config"
	"github.com/use-agent/sectify/models"
	"github.com/use-agent/sectify/section"
)

type stubFetcher struct {
	html  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

// newTestScraper builds a Scraper with stubbed fetch and render paths; no
// browser is involved.
func newTestScraper(fetcher *stubFetcher, render renderFunc) *Scraper {
	s := &Scraper{
		scraperCfg: config.ScraperConfig{
			FetchTimeout:    5 * time.Second,
			PageLoadTimeout: 5 * time.Second,
			MaxTimeout:      30 * time.Second,
		},
		interactCfg: testInteractConfig(),
		builder:     section.NewBuilder(config.SectionConfig{}),
		fetcher:     fetcher,
	}
	s.render = render
	return s
}

func renderNotExpected(t *testing.T) renderFunc {
	return func(context.Context, string) (*RenderOutcome, error) {
		t.Error("render pass invoked for a sufficient static document")
		return nil, errors.New("unexpected render")
	}
}

// richStaticHTML is a content-heavy page that passes the sufficiency check.
var richStaticHTML = `<html><head><title>Widgets Inc</title></head><body>
<nav><a href="/pricing">Pricing</a></nav>
<main><section class="hero"><h1>Widgets for everyone</h1>
<p>` + strings.Repeat("A long paragraph about widgets and their many virtues. ", 10) + `</p>
</section></main>
<footer><p>All rights reserved by Widgets Inc forever.</p></footer>
</body></html>`

const jsShellHTML = `<html><head><title>App</title></head><body><div id="root"></div></body></html>`

func TestDoScrape_StaticSufficient(t *testing.T) {
	fetcher := &stubFetcher{html: richStaticHTML}
	s := newTestScraper(fetcher, renderNotExpected(t))

	result, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://widgets.example", Timeout: 30})
	if err != nil {
		t.Fatalf("DoScrape() error = %v", err)
	}

	if result.SourceMode != models.SourceStatic {
		t.Errorf("SourceMode = %q, want %q", result.SourceMode, models.SourceStatic)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.calls)
	}
	if len(result.Interactions) != 0 {
		t.Errorf("Interactions = %d, want 0 for the static path", len(result.Interactions))
	}
	if len(result.Sections) == 0 {
		t.Fatal("Sections is empty, want nav/hero/footer sections")
	}
	if result.Metadata.Title != "Widgets Inc" {
		t.Errorf("Metadata.Title = %q, want %q", result.Metadata.Title, "Widgets Inc")
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}
}

func TestDoScrape_JSShellEscalatesToRender(t *testing.T) {
	renderCalls := 0
	render := func(_ context.Context, url string) (*RenderOutcome, error) {
		renderCalls++
		return &RenderOutcome{
			HTML:     richStaticHTML,
			FinalURL: url,
			Events: []models.InteractionEvent{
				{Kind: models.InteractScroll, Target: "document", Timestamp: time.Now()},
			},
		}, nil
	}
	s := newTestScraper(&stubFetcher{html: jsShellHTML}, render)

	result, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://app.example", Timeout: 30})
	if err != nil {
		t.Fatalf("DoScrape() error = %v", err)
	}

	if renderCalls != 1 {
		t.Fatalf("render calls = %d, want 1", renderCalls)
	}
	if result.SourceMode != models.SourceRendered {
		t.Errorf("SourceMode = %q, want %q", result.SourceMode, models.SourceRendered)
	}
	if len(result.Interactions) != 1 {
		t.Errorf("Interactions = %d, want the renderer's event log", len(result.Interactions))
	}
	if len(result.Sections) == 0 {
		t.Error("Sections is empty, want sections from the rendered document")
	}
}

func TestDoScrape_FetchFailureStillRenders(t *testing.T) {
	render := func(_ context.Context, url string) (*RenderOutcome, error) {
		return &RenderOutcome{HTML: richStaticHTML, FinalURL: url}, nil
	}
	s := newTestScraper(&stubFetcher{err: errors.New("connection refused")}, render)

	result, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://blocked.example", Timeout: 30})
	if err != nil {
		t.Fatalf("DoScrape() error = %v", err)
	}

	if result.SourceMode != models.SourceRendered {
		t.Errorf("SourceMode = %q, want %q", result.SourceMode, models.SourceRendered)
	}

	found := false
	for _, e := range result.Errors {
		if e.Phase == models.PhaseFetch {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a fetch-phase entry", result.Errors)
	}
	if len(result.Sections) == 0 {
		t.Error("Sections is empty, want sections despite the failed static fetch")
	}
}

func TestDoScrape_RenderFailureFallsBackToStatic(t *testing.T) {
	render := func(context.Context, string) (*RenderOutcome, error) {
		return nil, errors.New("browser crashed")
	}
	// The shell parses fine, so it remains available as the fallback
	// document when the renderer dies.
	s := newTestScraper(&stubFetcher{html: jsShellHTML}, render)

	result, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://app.example", Timeout: 30})
	if err != nil {
		t.Fatalf("DoScrape() error = %v", err)
	}

	if result.SourceMode != models.SourceStatic {
		t.Errorf("SourceMode = %q, want %q (static fallback)", result.SourceMode, models.SourceStatic)
	}

	found := false
	for _, e := range result.Errors {
		if e.Phase == models.PhaseRender {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a render-phase entry", result.Errors)
	}
}

func TestDoScrape_BothPathsFailed(t *testing.T) {
	render := func(context.Context, string) (*RenderOutcome, error) {
		return nil, errors.New("browser crashed")
	}
	s := newTestScraper(&stubFetcher{err: errors.New("dns failure")}, render)

	result, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://down.example", Timeout: 30})
	if err != nil {
		t.Fatalf("DoScrape() error = %v, want a partial result instead", err)
	}

	if result.SourceMode != "" {
		t.Errorf("SourceMode = %q, want empty when no document was obtained", result.SourceMode)
	}
	if len(result.Sections) != 0 {
		t.Errorf("Sections = %d, want 0", len(result.Sections))
	}
	if len(result.Errors) < 2 {
		t.Errorf("Errors = %v, want both fetch and render entries", result.Errors)
	}
}

func TestDoScrape_InvalidURL(t *testing.T) {
	s := newTestScraper(&stubFetcher{}, renderNotExpected(t))

	tests := []string{
		"not-a-url",
		"ftp://example.com/file",
		"//missing-scheme.example",
	}
	for _, u := range tests {
		_, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: u, Timeout: 30})
		if err == nil {
			t.Errorf("DoScrape(%q) error = nil, want invalid input", u)
			continue
		}
		var pipeErr *models.PipelineError
		if !errors.As(err, &pipeErr) || pipeErr.Code != models.ErrCodeInvalidInput {
			t.Errorf("DoScrape(%q) error = %v, want code %s", u, err, models.ErrCodeInvalidInput)
		}
	}
}
