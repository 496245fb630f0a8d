package scraper

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// minStaticText is the visible-text length below which a static document is
// assumed to be a JS shell.
const minStaticText = 200

// jsShellTextCeiling is the visible-text length below which a script-heavy
// page is still treated as insufficient.
const jsShellTextCeiling = 500

// jsShellScriptCount is the script-tag count above which a page counts as
// script-heavy.
const jsShellScriptCount = 10

// jsMarkers are framework root containers and reactive-framework directive
// attributes whose presence indicates client-side rendering.
var jsMarkers = []string{
	`id="root"`,
	`id="app"`,
	`id="__next"`,
	"data-reactroot",
	"data-v-app",
	"ng-app",
	"v-cloak",
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// Sufficiency is the derived, stateless signal the evaluator computes from a
// fetched document.
type Sufficiency struct {
	// TextLength is the visible body text length in bytes.
	TextLength int

	// JSIndicatorsFound is true when a framework marker or a
	// JS-required noscript warning is present in the markup.
	JSIndicatorsFound bool

	// ScriptCount is the number of <script> tags in the markup.
	ScriptCount int
}

// Evaluate derives the sufficiency signal from raw markup. It is a pure
// function: the same input always yields the same signal.
func Evaluate(rawHTML string) Sufficiency {
	lower := strings.ToLower(rawHTML)

	s := Sufficiency{
		TextLength:  len(extractVisibleText(rawHTML)),
		ScriptCount: strings.Count(lower, "<script"),
	}

	for _, marker := range jsMarkers {
		if strings.Contains(lower, marker) {
			s.JSIndicatorsFound = true
			break
		}
	}
	if !s.JSIndicatorsFound && reNoscript.MatchString(lower) {
		s.JSIndicatorsFound = true
	}

	return s
}

// NeedsRender decides whether a rendered pass is required. The bias is
// deliberately conservative: rendering a page that was already sufficient
// only costs time, while treating a JS shell as sufficient silently loses
// content.
func (s Sufficiency) NeedsRender() bool {
	if s.TextLength < minStaticText {
		return true
	}
	if s.JSIndicatorsFound {
		return true
	}
	if s.ScriptCount > jsShellScriptCount && s.TextLength < jsShellTextCeiling {
		return true
	}
	return false
}

// extractVisibleText extracts the visible text from within <body>, stripping
// all tags and <script>/<style>/<noscript> content. Used for heuristic
// analysis only.
func extractVisibleText(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
