package rewrite

import (
	"strings"
	"testing"
)

func TestParseSections_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"no headers at all\njust code\n",
		"preamble\n## STEP 0 : Config\nbody0\n## STEP 1 : Run\nbody1\n",
		"## STEP 0 : Config\nbody without trailing newline",
		"## STEP 2 : Only\n\n\nblank heavy\n\n",
	}
	for _, in := range inputs {
		if got := ParseSections(in).String(); got != in {
			t.Errorf("round trip changed input:\nin:  %q\nout: %q", in, got)
		}
	}
}

func TestParseSections_SplitsOnHeaders(t *testing.T) {
	doc := ParseSections("intro\n## STEP 0 : Config\nalpha\n### sub\nbeta\n## STEP 1 : Run\ngamma\n")
	if doc.Preamble != "intro\n" {
		t.Errorf("preamble = %q", doc.Preamble)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}
	if !strings.Contains(doc.Sections[0].Body, "### sub") {
		t.Error("subsection marker should stay inside the enclosing body")
	}
	if doc.Sections[1].Header != "## STEP 1 : Run\n" {
		t.Errorf("second header = %q", doc.Sections[1].Header)
	}
}

func TestDocument_FindMutatesInPlace(t *testing.T) {
	doc := ParseSections("## STEP 0 : Config\nold body\n## STEP 1 : Run\nkeep\n")
	sec := doc.Find(func(h string) bool { return strings.Contains(h, "STEP 0") })
	if sec == nil {
		t.Fatal("section not found")
	}
	sec.Body = "new body\n"

	out := doc.String()
	if !strings.Contains(out, "new body") || strings.Contains(out, "old body") {
		t.Errorf("edit not reflected: %q", out)
	}
	if !strings.Contains(out, "## STEP 1 : Run\nkeep\n") {
		t.Errorf("untouched section changed: %q", out)
	}
}

func TestDocument_FindMissing(t *testing.T) {
	doc := ParseSections("## STEP 1 : Run\nbody\n")
	if sec := doc.Find(func(h string) bool { return strings.Contains(h, "STEP 9") }); sec != nil {
		t.Errorf("expected nil, got %+v", sec)
	}
}
