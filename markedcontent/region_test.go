package markedcontent

import (
	"strings"
	"testing"

	"github.com/wudi/pdftag/semtree"
	"github.com/wudi/pdftag/tagging"
)

func helloTree(t *testing.T) *semtree.Tree {
	t.Helper()
	tr := semtree.NewTree()
	for _, n := range [][4]string{
		{"1", "div", "", ""},
		{"2", "p", "Hello", "1"},
		{"3", "#text", "Hello", "2"},
	} {
		if _, err := tr.AddNode(n[0], n[1], nil, n[2], n[3]); err != nil {
			t.Fatal(err)
		}
	}
	return tr
}

func TestOpenAndContinuation(t *testing.T) {
	tr := helloTree(t)
	r := tagging.NewResolver()
	m := NewStateMachine()

	// Two fragment calls for the same #text node: one region, one MCID,
	// one event, zero closes until page end.
	f1 := m.ProcessFragment(r.Resolve("3", tr), 1)
	if f1.Before != "/P <</MCID 0>> BDC\n" || f1.After != "" || !f1.Tracked {
		t.Fatalf("first fragment wrong: %+v", f1)
	}
	f2 := m.ProcessFragment(r.Resolve("3", tr), 1)
	if f2.Before != "" || f2.After != "" || !f2.Tracked {
		t.Fatalf("continuation must be a no-op: %+v", f2)
	}
	if len(m.Events()) != 1 {
		t.Fatalf("want 1 event, got %d", len(m.Events()))
	}
	ev := m.Events()[0]
	if ev.StructTag != "P" || ev.MCID != 0 || ev.Page != 1 || ev.Node.ID != "2" {
		t.Fatalf("event wrong: %+v", ev)
	}
	if got := m.ForceClose(); got != "EMC\n" {
		t.Fatalf("page end must close the region, got %q", got)
	}
	if m.Region() != nil || m.Depth() != 0 {
		t.Fatalf("region must be cleared after close")
	}
}

func TestContinuationIdempotence(t *testing.T) {
	tr := helloTree(t)
	r := tagging.NewResolver()
	m := NewStateMachine()
	opens := 0
	for i := 0; i < 20; i++ {
		f := m.ProcessFragment(r.Resolve("3", tr), 1)
		opens += strings.Count(f.Before, "BDC")
		if m.Depth() != 1 {
			t.Fatalf("depth must stay 1 while a region is open, got %d", m.Depth())
		}
	}
	if opens != 1 || len(m.Events()) != 1 {
		t.Fatalf("k fragments must open exactly once: opens=%d events=%d", opens, len(m.Events()))
	}
}

func TestArtifactGapForcesNewMCID(t *testing.T) {
	tr := helloTree(t)
	r := tagging.NewResolver()
	m := NewStateMachine()

	m.ProcessFragment(r.Resolve("3", tr), 1)
	// Decorative footer rendered with no frame id.
	fa := m.ProcessFragment(r.Resolve("", tr), 1)
	if fa.Before != "EMC\n/Artifact BMC\n" || fa.After != "EMC\n" || fa.Tracked {
		t.Fatalf("artifact must close the region and wrap itself: %+v", fa)
	}
	// Back to the same paragraph: reopened with a new MCID.
	fb := m.ProcessFragment(r.Resolve("3", tr), 1)
	if fb.Before != "/P <</MCID 1>> BDC\n" {
		t.Fatalf("resumed region must get a fresh MCID: %+v", fb)
	}
	if len(m.Events()) != 2 {
		t.Fatalf("want 2 events, got %d", len(m.Events()))
	}
}

func TestRegionSwitchBetweenNodes(t *testing.T) {
	tr := semtree.NewTree()
	for _, n := range [][4]string{
		{"1", "h1", "", ""},
		{"2", "p", "", ""},
	} {
		if _, err := tr.AddNode(n[0], n[1], nil, "", n[3]); err != nil {
			t.Fatal(err)
		}
	}
	r := tagging.NewResolver()
	m := NewStateMachine()

	m.ProcessFragment(r.Resolve("1", tr), 1)
	f := m.ProcessFragment(r.Resolve("2", tr), 1)
	if f.Before != "EMC\n/P <</MCID 1>> BDC\n" {
		t.Fatalf("switch must close then open: %q", f.Before)
	}
	reg := m.Region()
	if reg == nil || reg.NodeID != "2" || reg.MCID != 1 {
		t.Fatalf("region wrong after switch: %+v", reg)
	}
}

func TestTransparentKeepsRegion(t *testing.T) {
	tr := helloTree(t)
	r := tagging.NewResolver()
	m := NewStateMachine()

	m.ProcessFragment(r.Resolve("3", tr), 1)
	if _, err := tr.AddNode("4", "b", nil, "", "2"); err != nil {
		t.Fatal(err)
	}
	f := m.ProcessFragment(r.Resolve("4", tr), 1)
	if f.Before != "" || f.After != "" {
		t.Fatalf("transparent fragment must not touch the region: %+v", f)
	}
	if m.Region() == nil {
		t.Fatalf("region must stay open across transparent fragments")
	}
}

func TestForceCloseIdempotent(t *testing.T) {
	m := NewStateMachine()
	if got := m.ForceClose(); got != "" {
		t.Fatalf("closing with no region open must be a safe no-op, got %q", got)
	}
	if m.Depth() != 0 {
		t.Fatalf("depth corrupted by no-op close: %d", m.Depth())
	}
}

// Balanced operators: over a full page the BDC/BMC opens equal the EMC
// closes and each close precedes the next open.
func TestBalancedOperators(t *testing.T) {
	tr := helloTree(t)
	if _, err := tr.AddNode("4", "p", nil, "", "1"); err != nil {
		t.Fatal(err)
	}
	r := tagging.NewResolver()
	m := NewStateMachine()

	var page strings.Builder
	emit := func(f Fragment) {
		page.WriteString(f.Before)
		page.WriteString("(content) Tj\n")
		page.WriteString(f.After)
	}
	emit(m.ProcessFragment(r.Resolve("3", tr), 1))
	emit(m.ProcessFragment(r.Resolve("", tr), 1))
	emit(m.ProcessFragment(r.Resolve("4", tr), 1))
	emit(m.ProcessFragment(r.Resolve("3", tr), 1))
	page.WriteString(m.ForceClose())

	s := page.String()
	opens := strings.Count(s, "BDC") + strings.Count(s, "BMC")
	closes := strings.Count(s, "EMC")
	if opens != closes {
		t.Fatalf("unbalanced operators: %d opens, %d closes\n%s", opens, closes, s)
	}

	depth := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.HasSuffix(line, "BDC") || strings.HasSuffix(line, "BMC") {
			depth++
			if depth > 1 {
				t.Fatalf("overlapping regions in stream:\n%s", s)
			}
		}
		if line == "EMC" {
			depth--
			if depth < 0 {
				t.Fatalf("close without open in stream:\n%s", s)
			}
		}
	}
	if depth != 0 {
		t.Fatalf("stream ends with open region:\n%s", s)
	}
}

func TestMCIDsStrictlyIncreasing(t *testing.T) {
	tr := helloTree(t)
	if _, err := tr.AddNode("4", "p", nil, "", "1"); err != nil {
		t.Fatal(err)
	}
	r := tagging.NewResolver()
	m := NewStateMachine()
	ids := []string{"3", "4", "3", "4"}
	for _, id := range ids {
		m.ProcessFragment(r.Resolve(id, tr), 1)
	}
	events := m.Events()
	for i := 1; i < len(events); i++ {
		if events[i].MCID <= events[i-1].MCID {
			t.Fatalf("MCIDs must strictly increase: %+v", events)
		}
	}
}
