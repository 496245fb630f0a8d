package section

import (
	"testing"

	"github.com/use-agent/sectify/models"
)

func mustParse(t *testing.T, rawHTML string) *PageDocument {
	t.Helper()
	d, err := Parse(rawHTML, "https://example.com/page", models.SourceStatic)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return d
}

func TestSegment_DocumentOrder(t *testing.T) {
	d := mustParse(t, `<html><body>
		<header><h1>Top</h1></header>
		<nav><a href="/">Home</a></nav>
		<main><section><p>First</p></section><section><p>Second</p></section></main>
		<footer><p>Bottom</p></footer>
	</body></html>`)

	boundaries := Segment(d)

	want := []string{"header", "nav", "main", "section", "section", "footer"}
	if len(boundaries) != len(want) {
		t.Fatalf("Segment() = %d boundaries, want %d", len(boundaries), len(want))
	}
	for i, tag := range want {
		if boundaries[i].Tag() != tag {
			t.Errorf("boundary %d tag = %q, want %q", i, boundaries[i].Tag(), tag)
		}
	}
}

func TestSegment_RoleLandmarks(t *testing.T) {
	d := mustParse(t, `<html><body>
		<div role="banner">Brand</div>
		<div role="navigation">Menu</div>
		<div role="main"><div role="region">Stuff</div></div>
		<div role="contentinfo">Legal</div>
	</body></html>`)

	boundaries := Segment(d)

	want := []string{"banner", "navigation", "main", "region", "contentinfo"}
	if len(boundaries) != len(want) {
		t.Fatalf("Segment() = %d boundaries, want %d", len(boundaries), len(want))
	}
	for i, role := range want {
		if boundaries[i].Role() != role {
			t.Errorf("boundary %d role = %q, want %q", i, boundaries[i].Role(), role)
		}
	}
}

func TestSegment_BodyFallback(t *testing.T) {
	d := mustParse(t, `<html><body><div><p>Just divs here, no landmarks at all.</p></div></body></html>`)

	boundaries := Segment(d)

	if len(boundaries) != 1 {
		t.Fatalf("Segment() = %d boundaries, want 1 (whole body)", len(boundaries))
	}
	if boundaries[0].Tag() != "body" {
		t.Errorf("fallback boundary tag = %q, want %q", boundaries[0].Tag(), "body")
	}
}

func TestSegment_NestedLandmarksEmittedSeparately(t *testing.T) {
	d := mustParse(t, `<html><body>
		<header><nav><a href="/">Home</a></nav></header>
	</body></html>`)

	boundaries := Segment(d)

	if len(boundaries) != 2 {
		t.Fatalf("Segment() = %d boundaries, want 2 (header and its nested nav)", len(boundaries))
	}
	if boundaries[0].Tag() != "header" || boundaries[1].Tag() != "nav" {
		t.Errorf("boundaries = [%q, %q], want [header, nav]",
			boundaries[0].Tag(), boundaries[1].Tag())
	}
}
