package models

import "time"

// SourceMode records which fetch path produced the document a result was
// extracted from.
type SourceMode string

const (
	SourceStatic   SourceMode = "static"
	SourceRendered SourceMode = "rendered"
)

// ScrapeResult is the response for POST /api/v1/scrape. It is assembled once
// by the coordinator and immutable after that. Sections and Interactions are
// ordered sequences: sections follow document order, interactions follow
// chronological order.
type ScrapeResult struct {
	// URL is the requested page URL.
	URL string `json:"url"`

	// ScrapedAt is the UTC timestamp the scrape started.
	ScrapedAt time.Time `json:"scrapedAt"`

	// SourceMode indicates whether the sections were extracted from the
	// static fetch or from the rendered DOM. Empty when both paths failed.
	SourceMode SourceMode `json:"sourceMode,omitempty"`

	// Metadata contains page-level metadata.
	Metadata Metadata `json:"metadata"`

	// Sections is the ordered list of extracted sections.
	Sections []Section `json:"sections"`

	// Interactions is the chronological log of UI interactions the
	// renderer performed. Empty when no rendered pass ran.
	Interactions []InteractionEvent `json:"interactions"`

	// Errors lists recoverable failures encountered along the way.
	// A non-empty list does not mean the scrape failed: the rest of the
	// result holds the best data available.
	Errors []ScrapeError `json:"errors"`
}

// Metadata holds page-level information extracted during scraping.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Canonical   string `json:"canonical,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
}

// SectionType is the semantic type assigned to a section by the classifier.
type SectionType string

const (
	SectionNav     SectionType = "nav"
	SectionHeader  SectionType = "header"
	SectionFooter  SectionType = "footer"
	SectionHero    SectionType = "hero"
	SectionPricing SectionType = "pricing"
	SectionFAQ     SectionType = "faq"
	SectionGrid    SectionType = "grid"
	SectionList    SectionType = "list"
	SectionGeneric SectionType = "section"
	SectionUnknown SectionType = "unknown"
)

// Section is one labeled region of the page.
type Section struct {
	// ID is unique within one result, derived from type and position.
	ID string `json:"id"`

	// Type is the semantic section type.
	Type SectionType `json:"type"`

	// Label is a human-readable name for the section. Never empty.
	Label string `json:"label"`

	// SourceURL is the page the section was extracted from.
	SourceURL string `json:"sourceUrl"`

	// Text is the noise-filtered plain-text view of the section.
	Text string `json:"text"`

	// Content is the structured view of the section body.
	Content SectionContent `json:"content"`

	// RawHTML is the section's outer HTML, capped at the configured
	// maximum. Scripts and styles are NOT stripped from this field;
	// only the derived Text view is filtered.
	RawHTML string `json:"rawHtml"`

	// Markdown is a markdown rendering of the (possibly capped) RawHTML.
	Markdown string `json:"markdown,omitempty"`

	// Truncated is true iff RawHTML was capped.
	Truncated bool `json:"truncated"`
}

// SectionContent is the structured content extracted from a section.
type SectionContent struct {
	Headings []string     `json:"headings"`
	Links    []Link       `json:"links"`
	Images   []Image      `json:"images"`
	Lists    [][]string   `json:"lists"`
	Tables   [][][]string `json:"tables"`
}

// Link represents a hyperlink with its href resolved to an absolute URL.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Image represents an image with its src resolved to an absolute URL.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// InteractionKind identifies the kind of UI interaction performed.
type InteractionKind string

const (
	InteractTab      InteractionKind = "tab"
	InteractLoadMore InteractionKind = "loadMore"
	InteractScroll   InteractionKind = "scroll"
	InteractPaginate InteractionKind = "paginate"
	InteractDismiss  InteractionKind = "dismiss"
)

// InteractionEvent is one entry of the append-only interaction log.
type InteractionEvent struct {
	// Kind is the interaction category.
	Kind InteractionKind `json:"kind"`

	// Target describes the control that was acted on (selector or text).
	Target string `json:"target"`

	// ResultingURL is set for paginate events: the URL after navigation.
	ResultingURL string `json:"resultingUrl,omitempty"`

	// Timestamp is when the interaction completed.
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
