package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/sectify/models"
	"github.com/use-agent/sectify/section"
)

// DoScrape runs the full adaptive pipeline for one request:
//
//  1. Static fetch; evaluate sufficiency of the returned markup.
//  2. If insufficient (or the fetch failed), run the rendered pass with the
//     bounded interaction driver.
//  3. Segment, classify, label and sanitize the best available document.
//
// DoScrape degrades instead of failing: phase errors are accumulated on the
// result and the pipeline continues with whatever state it has. The only
// hard failures are invalid input and having no document at all from either
// path.
func (s *Scraper) DoScrape(ctx context.Context, req *models.ScrapeRequest) (*models.ScrapeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 || timeout > s.scraperCfg.MaxTimeout {
		timeout = s.scraperCfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &models.ScrapeResult{
		URL:          req.URL,
		ScrapedAt:    time.Now().UTC(),
		Sections:     []models.Section{},
		Interactions: []models.InteractionEvent{},
		Errors:       []models.ScrapeError{},
	}

	// ── Static pass ───────────────────────────────────────────────────
	var doc *section.PageDocument
	needRender := false

	rawHTML, fetchErr := s.fetcher.Fetch(ctx, req.URL)
	if fetchErr != nil {
		// A failed static fetch is automatic insufficiency, not a hard
		// failure: the renderer still gets its chance.
		slog.Warn("static fetch failed, escalating to render",
			"url", req.URL, "error", fetchErr)
		result.Errors = append(result.Errors, models.ScrapeError{
			Phase:   models.PhaseFetch,
			Message: fmt.Sprintf("static fetch failed: %v", fetchErr),
		})
		needRender = true
	} else {
		suff := Evaluate(rawHTML)
		needRender = suff.NeedsRender()
		slog.Debug("static pass evaluated",
			"url", req.URL,
			"textLength", suff.TextLength,
			"jsIndicators", suff.JSIndicatorsFound,
			"scriptCount", suff.ScriptCount,
			"needsRender", needRender,
		)

		parsed, parseErr := section.Parse(rawHTML, req.URL, models.SourceStatic)
		if parseErr != nil {
			result.Errors = append(result.Errors, models.ScrapeError{
				Phase:   models.PhaseFetch,
				Message: fmt.Sprintf("static parse failed: %v", parseErr),
			})
			needRender = true
		} else {
			doc = parsed
		}
	}

	// ── Rendered pass ─────────────────────────────────────────────────
	if needRender {
		outcome, renderErr := s.render(ctx, req.URL)
		if renderErr != nil {
			// Keep the static document (if any) as the fallback.
			slog.Warn("render pass failed",
				"url", req.URL, "error", renderErr)
			result.Errors = append(result.Errors, models.ScrapeError{
				Phase:   models.PhaseRender,
				Message: fmt.Sprintf("render failed: %v", renderErr),
			})
		} else {
			result.Interactions = append(result.Interactions, outcome.Events...)
			result.Errors = append(result.Errors, outcome.Errors...)

			parsed, parseErr := section.Parse(outcome.HTML, outcome.FinalURL, models.SourceRendered)
			if parseErr != nil {
				result.Errors = append(result.Errors, models.ScrapeError{
					Phase:   models.PhaseRender,
					Message: fmt.Sprintf("rendered parse failed: %v", parseErr),
				})
			} else {
				doc = parsed
			}
		}
	}

	if doc == nil {
		// Both paths failed. The result still carries the error trail.
		return result, nil
	}

	// ── Extraction ────────────────────────────────────────────────────
	result.SourceMode = doc.Mode
	result.Metadata = doc.Metadata()

	boundaries := section.Segment(doc)
	for i := range boundaries {
		bd := &boundaries[i]
		typ := section.Classify(bd)
		label := section.Label(bd)

		sec, buildErr := s.builder.Build(doc, bd, typ, label, i)
		if buildErr != nil {
			result.Errors = append(result.Errors, models.ScrapeError{
				Phase:   models.PhaseSanitize,
				Message: fmt.Sprintf("section %d (%s) dropped: %v", i, typ, buildErr),
			})
			continue
		}
		result.Sections = append(result.Sections, sec)
	}

	slog.Info("scrape complete",
		"url", req.URL,
		"sourceMode", result.SourceMode,
		"sections", len(result.Sections),
		"interactions", len(result.Interactions),
		"errors", len(result.Errors),
	)

	return result, nil
}
