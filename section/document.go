// Package section turns a fetched or rendered HTML document into an ordered
// list of typed, labeled, size-bounded sections.
package section

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/use-agent/sectify/models"
)

// PageDocument is the parsed, queryable representation of a page produced by
// either fetch path. It is owned by the pipeline stage that created it and is
// never mutated concurrently.
type PageDocument struct {
	// URL is the page URL, used to resolve relative hrefs and srcs.
	URL *url.URL

	// Mode records which fetch path produced the document.
	Mode models.SourceMode

	// RawHTML is the serialized markup the document was parsed from.
	RawHTML string

	root *html.Node
	doc  *goquery.Document
}

// Parse builds a PageDocument from raw markup.
func Parse(rawHTML, sourceURL string, mode models.SourceMode) (*PageDocument, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("section: invalid source URL %q: %w", sourceURL, err)
	}

	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("section: parse HTML: %w", err)
	}

	return &PageDocument{
		URL:     u,
		Mode:    mode,
		RawHTML: rawHTML,
		root:    root,
		doc:     goquery.NewDocumentFromNode(root),
	}, nil
}

// nodeText returns the concatenated visible text under n, skipping script,
// style and noscript subtrees, with whitespace collapsed.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseWhitespace(b.String())
}

// collapseWhitespace trims a string and folds all internal whitespace runs
// (including escaped \n and \t sequences that survive serialization) into
// single spaces.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, `\n`, " ")
	s = strings.ReplaceAll(s, `\t`, " ")
	return strings.Join(strings.Fields(s), " ")
}

// attr returns the value of the named attribute on an element node.
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
