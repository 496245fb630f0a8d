package section

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/use-agent/sectify/config"
	"github.com/use-agent/sectify/models"
)

// truncationMarker is appended to rawHtml when the size cap fires.
const truncationMarker = "..."

// Builder turns classified boundaries into finished sections. It owns the
// shared markdown converter (created once, goroutine-safe) and the size and
// noise bounds. Safe for concurrent use.
type Builder struct {
	cfg  config.SectionConfig
	conv *converter.Converter
}

// NewBuilder creates a Builder with the given bounds.
func NewBuilder(cfg config.SectionConfig) *Builder {
	if cfg.MaxRawHTML <= 0 {
		cfg.MaxRawHTML = 5000
	}
	if cfg.MinTextFragment <= 0 {
		cfg.MinTextFragment = 10
	}
	if cfg.MaxTextFragments <= 0 {
		cfg.MaxTextFragments = 50
	}
	return &Builder{
		cfg:  cfg,
		conv: newMarkdownConverter(),
	}
}

// Build sanitizes one boundary into a Section: scripts and styles are removed
// before text extraction, text fragments below the noise floor are dropped
// from the derived text view (rawHtml keeps them), and rawHtml is capped with
// Truncated set accordingly. The type and label must already be assigned;
// the ID is derived from type and position so it is unique per result.
func (b *Builder) Build(d *PageDocument, bd *Boundary, typ models.SectionType, label string, index int) (models.Section, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, bd.Node); err != nil {
		return models.Section{}, fmt.Errorf("section: render boundary: %w", err)
	}
	outerHTML := buf.String()

	rawHTML, truncated := capHTML(outerHTML, b.cfg.MaxRawHTML)

	// Re-parse the fragment so noise removal never mutates the shared
	// document tree (nested landmarks reuse the same nodes).
	frag, err := goquery.NewDocumentFromReader(strings.NewReader(outerHTML))
	if err != nil {
		return models.Section{}, fmt.Errorf("section: parse fragment: %w", err)
	}
	frag.Find("script, style, noscript").Remove()

	content := b.extractContent(frag, d)

	sec := models.Section{
		ID:        fmt.Sprintf("%s-%d", typ, index),
		Type:      typ,
		Label:     label,
		SourceURL: d.URL.String(),
		Text:      b.extractText(frag),
		Content:   content,
		RawHTML:   rawHTML,
		Truncated: truncated,
	}

	if b.cfg.Markdown {
		md, err := toMarkdown(b.conv, rawHTML, d.URL.String())
		if err != nil {
			// Markdown is a derived convenience view; its failure never
			// drops the section.
			slog.Warn("section: markdown conversion failed",
				"url", d.URL.String(), "section", sec.ID, "error", err)
		} else {
			sec.Markdown = md
		}
	}

	return sec, nil
}

// capHTML truncates s to at most max bytes, backing off to a rune boundary,
// and appends the truncation marker when the cap fires.
func capHTML(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker, true
}

// extractText assembles the noise-filtered text view: fragments shorter than
// the configured floor are discarded, and at most MaxTextFragments fragments
// are joined.
func (b *Builder) extractText(frag *goquery.Document) string {
	parts := make([]string, 0, b.cfg.MaxTextFragments)
	frag.Find("p, span, div, li, td, th").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapseWhitespace(s.Text())
		if len(text) >= b.cfg.MinTextFragment {
			parts = append(parts, text)
		}
		return len(parts) < b.cfg.MaxTextFragments
	})
	return strings.Join(parts, " ")
}

// extractContent pulls the structured views (headings, links, images, lists,
// tables) out of the sanitized fragment. Relative URLs are resolved against
// the page URL so the output is self-contained.
func (b *Builder) extractContent(frag *goquery.Document, d *PageDocument) models.SectionContent {
	content := models.SectionContent{
		Headings: []string{},
		Links:    []models.Link{},
		Images:   []models.Image{},
		Lists:    [][]string{},
		Tables:   [][][]string{},
	}

	frag.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			content.Headings = append(content.Headings, text)
		}
	})

	seenLinks := make(map[string]struct{})
	frag.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved, err := d.URL.Parse(href)
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			return
		}
		abs := resolved.String()
		if _, ok := seenLinks[abs]; ok {
			return
		}
		seenLinks[abs] = struct{}{}

		text := collapseWhitespace(s.Text())
		if text == "" {
			text = abs
		}
		content.Links = append(content.Links, models.Link{Href: abs, Text: text})
	})

	seenImages := make(map[string]struct{})
	frag.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		resolved, err := d.URL.Parse(src)
		if err != nil || resolved.Scheme == "data" {
			return
		}
		abs := resolved.String()
		if _, ok := seenImages[abs]; ok {
			return
		}
		seenImages[abs] = struct{}{}

		alt, _ := s.Attr("alt")
		content.Images = append(content.Images, models.Image{
			Src: abs,
			Alt: strings.TrimSpace(alt),
		})
	})

	frag.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		var items []string
		s.Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := collapseWhitespace(li.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			content.Lists = append(content.Lists, items)
		}
	})

	frag.Find("table").Each(func(_ int, s *goquery.Selection) {
		var rows [][]string
		s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, collapseWhitespace(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		if len(rows) > 0 {
			content.Tables = append(content.Tables, rows)
		}
	})

	return content
}
