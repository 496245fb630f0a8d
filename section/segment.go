package section

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// landmarkSelector matches every semantic landmark element that becomes a
// section boundary: the HTML5 sectioning tags plus their ARIA role
// equivalents. Compiled once; cascadia's MatchAll walks the tree in document
// order, which is the ordering contract for the result's sections.
var landmarkSelector = cascadia.MustCompile(
	`header, nav, main, section, article, footer,` +
		` [role="banner"], [role="navigation"], [role="main"],` +
		` [role="region"], [role="contentinfo"], [role="complementary"]`,
)

var bodySelector = cascadia.MustCompile("body")

// Boundary is one raw, pre-classification section boundary.
type Boundary struct {
	Node *html.Node
}

// Tag returns the boundary element's tag name.
func (b *Boundary) Tag() string {
	return b.Node.Data
}

// Role returns the boundary element's ARIA role attribute, if any.
func (b *Boundary) Role() string {
	return attr(b.Node, "role")
}

// Segment partitions the document into ordered boundaries, one per landmark
// element. Nested landmarks (a <nav> inside a <header>) are each emitted as
// their own boundary; the resulting content overlap is intentional and
// surfaced as-is rather than deduplicated.
//
// When the page has no landmarks at all, the whole <body> becomes the single
// boundary so that every page yields at least one section.
func Segment(d *PageDocument) []Boundary {
	matches := landmarkSelector.MatchAll(d.root)

	if len(matches) == 0 {
		if body := bodySelector.MatchFirst(d.root); body != nil {
			matches = []*html.Node{body}
		}
	}

	boundaries := make([]Boundary, 0, len(matches))
	for _, n := range matches {
		boundaries = append(boundaries, Boundary{Node: n})
	}
	return boundaries
}
