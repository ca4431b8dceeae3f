package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/hb"
)

func testPlacement() (*netlist.Placement, []*netlist.SymmetryGroup) {
	a := netlist.NewModule("A", 4, 2)
	a.SetPosition(0, 0)
	b := netlist.NewModule("B", 4, 2)
	b.SetPosition(4, 0)
	f := netlist.NewModule("F", 3, 3)
	f.SetPosition(0, 2)

	p := &netlist.Placement{
		Modules: map[string]*netlist.Module{"A": a, "B": b, "F": f},
		Area:    8 * 5,
	}
	groups := []*netlist.SymmetryGroup{
		{Name: "SG", Axis: netlist.AxisVertical, Pairs: []netlist.SymmetryPair{{A: "A", B: "B"}}},
	}
	return p, groups
}

func TestSVGDrawsEveryModule(t *testing.T) {
	p, groups := testPlacement()
	svg := string(SVG(p, groups))

	if !strings.HasPrefix(svg, "<svg ") {
		t.Fatalf("output does not start with an svg tag: %.60s", svg)
	}
	// One background rect plus one per module.
	if got := strings.Count(svg, "<rect"); got != len(p.Modules)+1 {
		t.Errorf("rect count = %d, want %d", got, len(p.Modules)+1)
	}
	for name := range p.Modules {
		if !strings.Contains(svg, ">"+name+"</text>") {
			t.Errorf("label for %q missing", name)
		}
	}
	// Paired modules share a fill, the free module does not.
	if !strings.Contains(svg, groupPalette[0]) {
		t.Error("group color missing")
	}
	if !strings.Contains(svg, freeFill) {
		t.Error("free module fill missing")
	}
}

func TestSVGOptions(t *testing.T) {
	p, groups := testPlacement()

	plain := string(SVG(p, groups, WithLabels(false)))
	if strings.Contains(plain, "</text>") {
		t.Error("labels rendered with WithLabels(false)")
	}

	withAxes := string(SVG(p, groups, WithAxes(true)))
	if !strings.Contains(withAxes, "<line") {
		t.Error("axes missing with WithAxes(true)")
	}

	small := SVG(p, groups, WithScale(1))
	big := SVG(p, groups, WithScale(20))
	if len(big) <= len(small) && bytes.Equal(big, small) {
		t.Error("scale option has no effect")
	}
}

func TestSVGIsDeterministic(t *testing.T) {
	p, groups := testPlacement()
	if !bytes.Equal(SVG(p, groups), SVG(p, groups)) {
		t.Error("repeated renders differ")
	}
}

func packedTree(t *testing.T) *hb.Tree {
	t.Helper()
	nl := &netlist.Netlist{
		Modules: map[string]*netlist.Module{
			"M1": netlist.NewModule("M1", 2, 2),
			"M2": netlist.NewModule("M2", 2, 2),
			"F1": netlist.NewModule("F1", 3, 3),
		},
		Groups: []*netlist.SymmetryGroup{
			{Name: "SG1", Axis: netlist.AxisVertical, Pairs: []netlist.SymmetryPair{{A: "M1", B: "M2"}}},
		},
	}
	tree, err := hb.New(nl)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tree.Pack(); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	return tree
}

func TestToDOT(t *testing.T) {
	tree := packedTree(t)
	dot := ToDOT(tree)

	if !strings.HasPrefix(dot, "digraph placement {") {
		t.Fatalf("unexpected prefix: %.40s", dot)
	}
	for _, want := range []string{`"SG1"`, `"F1"`, `label="L"`, "peripheries=2"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s", want)
		}
	}
	// The packed island publishes at least one contour segment.
	if !strings.Contains(dot, "dashed") {
		t.Error("contour node styling missing")
	}
}

func TestToDOTDetailed(t *testing.T) {
	tree := packedTree(t)
	dot := ToDOT(tree, WithDetail(true))
	if !strings.Contains(dot, "3x3") {
		t.Error("detailed module label missing dimensions")
	}
	if !strings.Contains(dot, "vertical") {
		t.Error("detailed hierarchy label missing axis")
	}
}

func TestAxisStep(t *testing.T) {
	tests := []struct {
		extent, want int
	}{
		{5, 1},
		{10, 1},
		{11, 5},
		{25, 5},
		{100, 10},
		{250, 50},
	}
	for _, tt := range tests {
		if got := axisStep(tt.extent); got != tt.want {
			t.Errorf("axisStep(%d) = %d, want %d", tt.extent, got, tt.want)
		}
	}
}
