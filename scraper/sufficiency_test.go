package scraper

import (
	"strings"
	"testing"
)

func pageWithText(text string) string {
	return "<html><head><title>t</title></head><body><p>" + text + "</p></body></html>"
}

func TestEvaluate_RichStaticPage(t *testing.T) {
	rawHTML := pageWithText(strings.Repeat("plenty of real visible content here ", 20))

	s := Evaluate(rawHTML)

	if s.TextLength < minStaticText {
		t.Fatalf("TextLength = %d, want >= %d", s.TextLength, minStaticText)
	}
	if s.JSIndicatorsFound {
		t.Error("JSIndicatorsFound = true for a plain static page")
	}
	if s.NeedsRender() {
		t.Error("NeedsRender() = true for a content-rich static page")
	}
}

func TestEvaluate_JSShellWithRootMarker(t *testing.T) {
	rawHTML := `<html><body><div id="root"></div><p>Loading your experience now, please wait here.</p></body></html>`

	s := Evaluate(rawHTML)

	if !s.JSIndicatorsFound {
		t.Error("JSIndicatorsFound = false, want true for id=\"root\" marker")
	}
	if !s.NeedsRender() {
		t.Error("NeedsRender() = false for a JS shell with a framework root")
	}
}

func TestEvaluate_MarkerOverridesLongText(t *testing.T) {
	// Framework markers force a render even when the shell carries enough
	// placeholder text to pass the length check.
	rawHTML := `<html><body><div data-reactroot>` +
		strings.Repeat("server side rendered preview text ", 30) + `</div></body></html>`

	s := Evaluate(rawHTML)

	if s.TextLength < minStaticText {
		t.Fatalf("test setup: TextLength = %d, want >= %d", s.TextLength, minStaticText)
	}
	if !s.NeedsRender() {
		t.Error("NeedsRender() = false despite data-reactroot marker")
	}
}

func TestEvaluate_ScriptHeavyThinPage(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><p>")
	b.WriteString(strings.Repeat("some words here padding out text ", 8)) // > 200, < 500
	b.WriteString("</p>")
	for i := 0; i < 12; i++ {
		b.WriteString(`<script src="/chunk.js"></script>`)
	}
	b.WriteString("</body></html>")

	s := Evaluate(b.String())

	if s.ScriptCount <= jsShellScriptCount {
		t.Fatalf("test setup: ScriptCount = %d, want > %d", s.ScriptCount, jsShellScriptCount)
	}
	if s.TextLength < minStaticText || s.TextLength >= jsShellTextCeiling {
		t.Fatalf("test setup: TextLength = %d, want in [%d, %d)", s.TextLength, minStaticText, jsShellTextCeiling)
	}
	if !s.NeedsRender() {
		t.Error("NeedsRender() = false for a script-heavy page with thin text")
	}
}

func TestEvaluate_NoscriptWarning(t *testing.T) {
	rawHTML := `<html><body><noscript>Please enable JavaScript to view this site.</noscript></body></html>`

	s := Evaluate(rawHTML)

	if !s.JSIndicatorsFound {
		t.Error("JSIndicatorsFound = false, want true for a JS-required noscript warning")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	rawHTML := pageWithText("short")

	s1 := Evaluate(rawHTML)
	s2 := Evaluate(rawHTML)

	if s1 != s2 {
		t.Errorf("Evaluate is not deterministic: %+v vs %+v", s1, s2)
	}
	if !s1.NeedsRender() {
		t.Error("NeedsRender() = false for a near-empty page")
	}
}

func TestExtractVisibleText_SkipsScriptAndStyle(t *testing.T) {
	rawHTML := `<html><body><p>visible</p><script>var hidden = "nope";</script><style>.x{color:red}</style></body></html>`

	text := extractVisibleText(rawHTML)

	if !strings.Contains(text, "visible") {
		t.Errorf("extractVisibleText() = %q, want it to contain %q", text, "visible")
	}
	if strings.Contains(text, "hidden") || strings.Contains(text, "color") {
		t.Errorf("extractVisibleText() = %q, script/style content leaked", text)
	}
}

func TestExtractVisibleText_IgnoresHead(t *testing.T) {
	rawHTML := `<html><head><title>head title</title></head><body><p>body text</p></body></html>`

	text := extractVisibleText(rawHTML)

	if strings.Contains(text, "head title") {
		t.Errorf("extractVisibleText() = %q, head content leaked", text)
	}
	if !strings.Contains(text, "body text") {
		t.Errorf("extractVisibleText() = %q, want body text", text)
	}
}
