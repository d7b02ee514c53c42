package markedcontent

import (
	"testing"

	"github.com/wudi/pdftag/semtree"
	"github.com/wudi/pdftag/tagging"
)

func tableTree(t *testing.T) *semtree.Tree {
	t.Helper()
	tr := semtree.NewTree()
	for _, n := range [][3]string{
		{"1", "table", ""},
		{"2", "tr", "1"},
		{"3", "td", "2"},
		{"4", "#text", "3"},
		{"5", "td", "2"},
	} {
		if _, err := tr.AddNode(n[0], n[1], nil, "", n[2]); err != nil {
			t.Fatal(err)
		}
	}
	return tr
}

func TestClassifyDrawingNoRegion(t *testing.T) {
	d := ClassifyDrawing(nil, "1", semtree.NewTree())
	if d.Class != DrawArtifact {
		t.Fatalf("no open region must be artifact, got %+v", d)
	}
	if d.Before != "/Artifact BMC\n" || d.After != "EMC\n" {
		t.Fatalf("artifact wrap operators wrong: %+v", d)
	}
}

func TestClassifyDrawingSameNode(t *testing.T) {
	tr := tableTree(t)
	region := &Region{NodeID: "3", StructTag: "TD", MCID: 0}
	d := ClassifyDrawing(region, "3", tr)
	if d.Class != DrawContent || d.Before != "" || d.After != "" {
		t.Fatalf("same-node draw must pass through: %+v", d)
	}
}

func TestClassifyDrawingUnderlineIsContent(t *testing.T) {
	// p#1 -> u#2 -> #text#3; underline drawn with the u's frame id while
	// the p region is open.
	tr := semtree.NewTree()
	if _, err := tr.AddNode("1", "p", nil, "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddNode("2", "u", nil, "", "1"); err != nil {
		t.Fatal(err)
	}
	region := &Region{NodeID: "1", StructTag: "P", MCID: 4}
	d := ClassifyDrawing(region, "2", tr)
	if d.Class != DrawContent {
		t.Fatalf("decoration on the chain must stay content: %+v", d)
	}
}

func TestClassifyDrawingStyleDecoration(t *testing.T) {
	tr := semtree.NewTree()
	if _, err := tr.AddNode("1", "p", nil, "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddNode("2", "span", map[string]string{"style": "text-decoration: underline"}, "", "1"); err != nil {
		t.Fatal(err)
	}
	region := &Region{NodeID: "1", StructTag: "P", MCID: 0}
	if d := ClassifyDrawing(region, "2", tr); d.Class != DrawContent {
		t.Fatalf("inline underline style must stay content: %+v", d)
	}
}

func TestClassifyDrawingTableBorderKeepsRegionOpen(t *testing.T) {
	tr := tableTree(t)
	// Rect drawn while td#3's region is open, frame id pointing at the
	// sibling column td#5.
	region := &Region{NodeID: "3", StructTag: "TD", MCID: 7}
	d := ClassifyDrawing(region, "5", tr)
	if d.Class != DrawDecorativeInsideTag {
		t.Fatalf("table border must be decorative: %+v", d)
	}
	if d.ReopensRegion {
		t.Fatalf("table case must not close the region: %+v", d)
	}
	if d.Before != "/Artifact BMC\n" || d.After != "EMC\n" {
		t.Fatalf("table border wrap wrong: %+v", d)
	}
}

func TestClassifyDrawingGenericCloseReopenSameMCID(t *testing.T) {
	tr := semtree.NewTree()
	if _, err := tr.AddNode("1", "p", nil, "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddNode("2", "div", nil, "", ""); err != nil {
		t.Fatal(err)
	}
	region := &Region{NodeID: "1", StructTag: "P", MCID: 3}
	d := ClassifyDrawing(region, "2", tr)
	if d.Class != DrawDecorativeInsideTag || !d.ReopensRegion {
		t.Fatalf("generic interruption must close and reopen: %+v", d)
	}
	if d.Before != "EMC\n/Artifact BMC\n" {
		t.Fatalf("close+artifact prefix wrong: %q", d.Before)
	}
	// Reopen uses the original tag and the original MCID, never a new one.
	if d.After != "EMC\n/P <</MCID 3>> BDC\n" {
		t.Fatalf("reopen suffix wrong: %q", d.After)
	}
}

func TestClassifyDrawingDoesNotLogEvents(t *testing.T) {
	tr := tableTree(t)
	r := tagging.NewResolver()
	m := NewStateMachine()
	m.ProcessFragment(r.Resolve("4", tr), 1)
	before := len(m.Events())
	ClassifyDrawing(m.Region(), "5", tr)
	if len(m.Events()) != before {
		t.Fatalf("classification must be pure")
	}
}
