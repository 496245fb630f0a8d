package section

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/sectify/models"
)

// typeRule pairs a predicate with the section type it yields. The rules are
// evaluated top to bottom with first-match-wins semantics, so ordering in the
// table is the priority order.
type typeRule struct {
	match func(*Boundary) bool
	typ   models.SectionType
}

// typeRules maps boundaries to semantic types. Tag/role mappings come first,
// then class/id keyword scans in fixed priority order. Boundaries matching no
// rule fall back to classifyFallback.
var typeRules = []typeRule{
	{tagOrRole("header", "banner"), models.SectionNav},
	{tagOrRole("nav", "navigation"), models.SectionNav},
	{tagOrRole("footer", "contentinfo"), models.SectionFooter},
	{keyword("hero"), models.SectionHero},
	{keyword("pricing"), models.SectionPricing},
	{keyword("faq"), models.SectionFAQ},
	{keyword("grid"), models.SectionGrid},
	{keyword("list"), models.SectionList},
}

func tagOrRole(tag, role string) func(*Boundary) bool {
	return func(b *Boundary) bool {
		return b.Tag() == tag || b.Role() == role
	}
}

func keyword(kw string) func(*Boundary) bool {
	return func(b *Boundary) bool {
		class := strings.ToLower(attr(b.Node, "class"))
		id := strings.ToLower(attr(b.Node, "id"))
		return strings.Contains(class, kw) || strings.Contains(id, kw)
	}
}

// Classify assigns exactly one semantic type to a boundary.
func Classify(b *Boundary) models.SectionType {
	for _, rule := range typeRules {
		if rule.match(b) {
			return rule.typ
		}
	}
	if inMainFlow(b) {
		return models.SectionGeneric
	}
	return models.SectionUnknown
}

// inMainFlow reports whether the boundary belongs to the page's main content
// flow: it is itself a content sectioning element, or sits under <main> (or
// a role="main" ancestor).
func inMainFlow(b *Boundary) bool {
	switch b.Tag() {
	case "main", "section", "article":
		return true
	}
	if b.Role() == "main" || b.Role() == "region" {
		return true
	}
	for n := b.Node.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if n.Data == "main" || attr(n, "role") == "main" {
			return true
		}
	}
	return false
}

var headingSelector = cascadia.MustCompile("h1, h2, h3, h4, h5, h6")

// labelWordCap bounds the fallback label built from leading text.
const labelWordCap = 7

// Label derives a human-readable label for a boundary. The first rule that
// yields a non-empty candidate wins:
//
//  1. text of the first heading element within the boundary
//  2. the boundary's own aria-label attribute
//  3. the first few words of extracted text, with an ellipsis marker
//  4. a generic label derived from the tag name
//
// The result is never empty.
func Label(b *Boundary) string {
	if h := headingSelector.MatchFirst(b.Node); h != nil {
		if text := nodeText(h); text != "" {
			return text
		}
	}

	if aria := strings.TrimSpace(attr(b.Node, "aria-label")); aria != "" {
		return aria
	}

	if text := nodeText(b.Node); text != "" {
		words := strings.Fields(text)
		if len(words) >= labelWordCap {
			return strings.Join(words[:labelWordCap], " ") + "..."
		}
		return strings.Join(words, " ")
	}

	return genericLabel(b.Tag())
}

// genericLabel builds the last-resort label from a tag name, e.g.
// "section" -> "Section Content".
func genericLabel(tag string) string {
	if tag == "" {
		return "Section Content"
	}
	return strings.ToUpper(tag[:1]) + tag[1:] + " Content"
}
