package htmldoc

import (
	"bytes"
	"strings"
	"testing"
)

const sectionsPage = `<html><body>
<h1>Reference</h1>
<h2 id="userObjectValues">User</h2>
<p>Fields of a user.</p>
<div class="note"><span>intro</span></div>
<table id="t-user"><tr><th>Property Name</th><th>Type</th></tr><tr><td>id</td><td>id</td></tr></table>
<h2 id="documentObjectValues">Document</h2>
<table id="t-document"><tr><th>Property Name</th><th>Type</th></tr></table>
<h2 id="otherSection">Other</h2>
<h2>No id</h2>
<h2 id="projectObjectValues">Project</h2>
<p>No table after this one.</p>
</body></html>`

func TestFindHeadingsWithIDSuffix_DocumentOrder(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sectionsPage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := FindHeadingsWithIDSuffix(doc, "ObjectValues")
	var ids []string
	for _, h := range got {
		ids = append(ids, HeadingID(h))
	}

	want := []string{"userObjectValues", "documentObjectValues", "projectObjectValues"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("ids=%v, want %v", ids, want)
	}
}

func TestFindHeadingsWithIDSuffix_CaseSensitiveAndEmpty(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sectionsPage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := FindHeadingsWithIDSuffix(doc, "objectvalues"); len(got) != 0 {
		t.Fatalf("suffix match must be case-sensitive, got %d matches", len(got))
	}
	if got := FindHeadingsWithIDSuffix(doc, "Missing"); got != nil && len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestFindFirstTableAfter_SkipsNonTableElements(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sectionsPage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	headings := FindHeadingsWithIDSuffix(doc, "ObjectValues")

	table, ok := FindFirstTableAfter(doc, headings[0])
	if !ok {
		t.Fatalf("expected a table after the first heading")
	}
	if id, _ := table.Attr("id"); id != "t-user" {
		t.Fatalf("table id=%q, want t-user", id)
	}

	table, ok = FindFirstTableAfter(doc, headings[1])
	if !ok {
		t.Fatalf("expected a table after the second heading")
	}
	if id, _ := table.Attr("id"); id != "t-document" {
		t.Fatalf("table id=%q, want t-document", id)
	}
}

func TestFindFirstTableAfter_NoTableFollows(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sectionsPage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	headings := FindHeadingsWithIDSuffix(doc, "ObjectValues")

	if table, ok := FindFirstTableAfter(doc, headings[2]); ok || table != nil {
		t.Fatalf("expected absent table after the last heading")
	}
}

func TestFindFirstTableAfter_TableBeforeIsIgnored(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<table id="before"></table><section><h2 id="aObjectValues">A</h2></section><div><table id="after"></table></div>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h := FindHeadingsWithIDSuffix(doc, "ObjectValues")[0]

	table, ok := FindFirstTableAfter(doc, h)
	if !ok {
		t.Fatalf("expected table")
	}
	if id, _ := table.Attr("id"); id != "after" {
		t.Fatalf("table id=%q, want after", id)
	}
}

func TestFindFirstTableAfter_PanicsOnNil(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sectionsPage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	assertPanics := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	assertPanics("nil document", func() { FindFirstTableAfter(nil, doc.Find("h2").First()) })
	assertPanics("nil node", func() { FindFirstTableAfter(doc, nil) })
	assertPanics("empty node", func() { FindFirstTableAfter(doc, doc.Find("nav")) })
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	if _, err := Parse("   \n"); err == nil {
		t.Fatalf("expected error for blank document")
	}
}

func TestDebugPrintSelector(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := DebugPrintSelector(&out, `<div id="x">  A  </div><div id="x">B</div>`, "div#x", true); err != nil {
		t.Fatalf("DebugPrintSelector: %v", err)
	}
	if out.String() != "A\n\nB\n\n" {
		t.Fatalf("unexpected text output: %q", out.String())
	}

	out.Reset()
	if err := DebugPrintSelector(&out, `<p class="k">hi</p>`, "p.k", false); err != nil {
		t.Fatalf("DebugPrintSelector: %v", err)
	}
	if !strings.Contains(out.String(), `<p class="k">hi</p>`) {
		t.Fatalf("expected outer html, got %q", out.String())
	}
}
