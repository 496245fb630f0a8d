package section

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/use-agent/sectify/models"
)

// Metadata extracts page-level metadata: title, description, language and
// canonical URL from the document's meta tags, with Open Graph tags as the
// first fallback and a readability pass as the last one for description and
// site name. A page that declares no language gets one detected from its
// visible text.
func (d *PageDocument) Metadata() models.Metadata {
	meta := models.Metadata{Language: "en"}

	meta.Title = strings.TrimSpace(d.doc.Find("title").First().Text())
	if meta.Title == "" {
		meta.Title = metaContent(d, `meta[property="og:title"]`)
	}

	meta.Description = metaContent(d, `meta[name="description"]`)
	if meta.Description == "" {
		meta.Description = metaContent(d, `meta[property="og:description"]`)
	}

	if lang, ok := d.doc.Find("html").First().Attr("lang"); ok && lang != "" {
		meta.Language = lang
	} else if detected := d.detectLanguage(); detected != "" {
		meta.Language = detected
	}

	if href, ok := d.doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && href != "" {
		if resolved, err := d.URL.Parse(href); err == nil {
			meta.Canonical = resolved.String()
		}
	}

	meta.SiteName = metaContent(d, `meta[property="og:site_name"]`)

	// Readability is the extraction of last resort: only run it when the
	// page's own tags left gaps it can fill.
	if meta.Description == "" || meta.SiteName == "" {
		d.enrichFromReadability(&meta)
	}

	return meta
}

func metaContent(d *PageDocument, selector string) string {
	content, _ := d.doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

const (
	// languageSampleMin is the minimum visible text length worth running
	// detection on; below it the "en" default stands.
	languageSampleMin = 64

	// languageSampleMax caps the text fed to the detector.
	languageSampleMax = 4096
)

// languageDetector is built on first use: the n-gram models are not free and
// most pages declare their language in <html lang>.
var languageDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.Spanish, lingua.French, lingua.German,
			lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Polish,
			lingua.Swedish, lingua.Russian, lingua.Ukrainian, lingua.Turkish,
			lingua.Arabic, lingua.Hindi, lingua.Thai, lingua.Vietnamese,
			lingua.Indonesian, lingua.Japanese, lingua.Korean, lingua.Chinese,
		).
		WithLowAccuracyMode().
		Build()
})

// detectLanguage guesses the page language from its visible body text,
// returning a lowercase ISO 639-1 code, or "" when the text is too short or
// the detector cannot make a call.
func (d *PageDocument) detectLanguage() string {
	body := d.doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(body.Text()), " ")
	if len(text) < languageSampleMin {
		return ""
	}
	if len(text) > languageSampleMax {
		cut := languageSampleMax
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// enrichFromReadability fills still-empty metadata fields from a readability
// pass over the full document. Failures are logged and swallowed: metadata
// enrichment must never fail the pipeline.
func (d *PageDocument) enrichFromReadability(meta *models.Metadata) {
	article, err := readability.FromReader(strings.NewReader(d.RawHTML), d.URL)
	if err != nil {
		slog.Debug("metadata: readability enrichment failed",
			"url", d.URL.String(), "error", err)
		return
	}

	if meta.Description == "" {
		meta.Description = strings.TrimSpace(article.Excerpt)
	}
	if meta.SiteName == "" {
		meta.SiteName = strings.TrimSpace(article.SiteName)
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(article.Title)
	}
}
