package layout

import (
	"strings"
	"testing"

	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/render"
	"github.com/dgallion1/protoreview/internal/tree"
	"github.com/google/go-cmp/cmp"
)

const protocol = `{
	"study_title": "A Phase 3 Trial",
	"study_title_provenance": {"page_number": 1},
	"sponsor": {"name": "Acme", "provenance": {"page_number": 2}},
	"arms": [{"name": "Placebo"}, {"name": "Drug"}],
	"inclusion_criteria": ["Adults", "Consent"],
	"extra_notes": {"reviewer": "n/a"}
}`

func parseDoc(t *testing.T) tree.Value {
	t.Helper()
	v, err := tree.Parse([]byte(protocol))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return v
}

func TestDefault_IsValid(t *testing.T) {
	l := Default()
	if len(l.Tabs) == 0 {
		t.Fatal("expected built-in tabs")
	}
	if _, ok := l.Tab("overview"); !ok {
		t.Error("expected overview tab")
	}
	for _, tab := range l.Tabs {
		for _, f := range tab.Fields {
			if f.Location().Len() == 0 {
				t.Errorf("tab %s: expected parsed path for %q", tab.ID, f.Path)
			}
		}
	}
}

func TestParse_JSONC(t *testing.T) {
	l, err := Parse("tabs.jsonc", []byte(`{
		// one tab
		"tabs": [{"id": "a", "title": "A", "fields": [{"path": "arms[0].name", "label": "First arm"}]}],
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Tabs[0].Fields[0].Location().Equal(docpath.Of("arms", 0, "name")) {
		t.Errorf("expected arms[0].name, got %q", l.Tabs[0].Fields[0].Location())
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"no tabs":      "tabs: []\n",
		"missing id":   "tabs:\n  - title: X\n",
		"missing path": "tabs:\n  - id: a\n    title: A\n    fields:\n      - label: L\n",
		"bad path":     "tabs:\n  - id: a\n    title: A\n    fields:\n      - path: a..b\n",
		"duplicate":    "tabs:\n  - id: a\n    title: A\n  - id: a\n    title: B\n",
	}
	for name, src := range cases {
		if _, err := Parse("layout.yaml", []byte(src)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Parse("layout.json", []byte(`{"tabs":[{"id":"a","title":"A","colour":"red"}]}`)); err == nil {
		t.Error("expected unknown json fields to be rejected")
	}
}

func TestMount_MarksShownFields(t *testing.T) {
	doc := parseDoc(t)
	reg := coverage.New(doc, nil)
	l, err := Parse("l.yaml", []byte("tabs:\n  - id: overview\n    title: Overview\n    fields:\n      - path: study_title\n        label: Title\n      - path: sponsor\n      - path: protocol_version\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tab, _ := l.Tab("overview")
	n := Mount(tab, doc, render.Context{}, reg)

	if n.Label != "Overview" || len(n.Children) != 3 {
		t.Fatalf("expected 3 fields under Overview, got %q with %d", n.Label, len(n.Children))
	}
	title := n.Children[0]
	if title.Label != "Title" || title.Citation == nil || title.Citation.Page != 1 {
		t.Errorf("expected labelled title cited on page 1, got %q %+v", title.Label, title.Citation)
	}
	sponsor := n.Children[1]
	if sponsor.Kind != render.KindSection || sponsor.Citation.Page != 2 {
		t.Errorf("expected cited sponsor section, got %s", sponsor.Kind)
	}
	missing := n.Children[2]
	if missing.Children[0].Kind != render.KindNotSpecified {
		t.Errorf("expected missing field to be not specified, got %s", missing.Children[0].Kind)
	}

	got := reg.Stats()
	if diff := cmp.Diff(coverage.Stats{Rendered: 2, Total: 5, Percentage: 40}, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestMount_NestedFieldMarksTopLevel(t *testing.T) {
	doc := parseDoc(t)
	reg := coverage.New(doc, nil)
	tab := Tab{ID: "design", Title: "Design", Fields: []Field{{Path: "arms[1].name", path: docpath.Of("arms", 1, "name")}}}
	n := Mount(tab, doc, render.Context{}, reg)
	if n.Children[0].Children[0].Text != "Drug" {
		t.Errorf("expected Drug, got %q", n.Children[0].Children[0].Text)
	}
	if !reg.IsRendered(docpath.Of("arms")) {
		t.Error("expected arms to be marked")
	}
}

func TestUnmapped_ShowsLeftoversWithoutMarking(t *testing.T) {
	doc := parseDoc(t)
	reg := coverage.New(doc, nil)
	reg.MarkRendered(docpath.Of("study_title"), docpath.Of("sponsor"), docpath.Of("arms"))

	n := Unmapped(reg, render.Context{})
	var keys []string
	for _, c := range n.Children {
		keys = append(keys, c.Key)
	}
	if diff := cmp.Diff([]string{"inclusion_criteria", "extra_notes"}, keys); diff != "" {
		t.Errorf("unmapped mismatch (-want +got):\n%s", diff)
	}
	if reg.Stats().Rendered != 3 {
		t.Errorf("expected unmapped fragment not to mark, got %d rendered", reg.Stats().Rendered)
	}
	if !strings.HasPrefix(n.Children[0].Path.String(), "inclusion_criteria") {
		t.Errorf("expected document-rooted paths, got %q", n.Children[0].Path)
	}
}

func TestMount_EditPathsAreDocumentRooted(t *testing.T) {
	doc := parseDoc(t)
	var got []string
	ctx := render.Context{Editable: true, OnEdit: func(p docpath.Path, v tree.Value) { got = append(got, p.String()) }}
	tab := Tab{ID: "p", Title: "P", Fields: []Field{{Path: "inclusion_criteria", path: docpath.Of("inclusion_criteria")}}}
	n := Mount(tab, doc, ctx, nil)

	s := n.Leaf(docpath.Of("inclusion_criteria", 1)).Edit()
	s.Set("Signed consent")
	s.Press(render.KeyEnter)
	if diff := cmp.Diff([]string{"inclusion_criteria[1]"}, got); diff != "" {
		t.Errorf("edit path mismatch (-want +got):\n%s", diff)
	}
}

func TestMount_IndexFieldLabel(t *testing.T) {
	doc := parseDoc(t)
	tab := Tab{ID: "arms", Title: "Arms", Fields: []Field{
		{Path: "arms[1]", path: docpath.Of("arms", 1)},
		{Path: "arms[0]", Label: "Control", path: docpath.Of("arms", 0)},
	}}
	n := Mount(tab, doc, render.Context{}, nil)

	if got := n.Children[0].Label; got != "Arms #2" {
		t.Errorf("expected label %q, got %q", "Arms #2", got)
	}
	if got := n.Children[1].Label; got != "Control" {
		t.Errorf("expected layout label to win, got %q", got)
	}
	if got := fieldLabel(docpath.Of("arms", 0, "name")); got != "Name" {
		t.Errorf("expected %q, got %q", "Name", got)
	}
}
